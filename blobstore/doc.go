// Package blobstore is the storage abstraction for vector snapshots.
//
// A BlobStore holds write-once objects produced by the snapshot package.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: a local directory; reads are served from a read-only mmap
//   - MemoryStore: in-process, for tests
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Writable blobs that can discard a partial upload implement Aborter; the
// snapshot exporter aborts instead of closing when an export fails.
package blobstore
