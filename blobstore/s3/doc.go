// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("snapshots/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = snapshot.Export(ctx, store, "points.snap", raw, snapshot.Options{})
//
// Reads use ranged GETs. Create streams through the multipart uploader and
// Put sends a CRC32C checksum with the object.
package s3
