// Package minio provides a snapshot BlobStore on the MinIO client.
//
// It works with MinIO and other S3-compatible services (Ceph, Garage,
// SeaweedFS) without pulling in the AWS SDK.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "snapshots/")
//	err = snapshot.Export(ctx, store, "points.snap", raw, snapshot.Options{})
//
// Create streams with an unknown length, so large vectors are uploaded
// without buffering the whole snapshot in memory.
package minio
