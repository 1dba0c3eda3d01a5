package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/shmvec/blobstore"
	"github.com/minio/minio-go/v7"
)

const contentType = "application/octet-stream"

var errAborted = errors.New("minio: upload aborted")

// Store implements blobstore.BlobStore for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore returns a store writing under rootPrefix (e.g. "snapshots/")
// in bucket.
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: rootPrefix}
}

func (s *Store) key(name string) string { return path.Join(s.prefix, name) }

// translate maps missing-object responses to blobstore.ErrNotFound.
func translate(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return blobstore.ErrNotFound
	}
	return err
}

func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	obj := object{client: s.client, bucket: s.bucket, key: s.key(name)}
	info, err := s.client.StatObject(ctx, obj.bucket, obj.key, minio.StatObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	obj.size = info.Size
	return &obj, nil
}

func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType, SendContentMd5: true})
	return err
}

// Create streams writes into a PutObject of unknown size. The object
// appears when the writer is closed; Abort cancels it.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	up := &upload{pw: pw, result: make(chan error, 1)}

	go func(key string) {
		_, err := s.client.PutObject(ctx, s.bucket, key, pr, -1, minio.PutObjectOptions{ContentType: contentType})
		_ = pr.CloseWithError(err)
		up.result <- err
	}(s.key(name))

	return up, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err = translate(err); errors.Is(err, blobstore.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: s.key(prefix), Recursive: true}

	var names []string
	for info := range s.client.ListObjects(ctx, s.bucket, opts) {
		if info.Err != nil {
			return nil, info.Err
		}
		if name := trimRoot(info.Key, s.prefix); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func trimRoot(key, root string) string {
	key = strings.TrimPrefix(key, strings.TrimSuffix(root, "/"))
	return strings.TrimPrefix(key, "/")
}

// object is an opened blob; reads are ranged GETs.
type object struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

func (o *object) Size() int64 { return o.size }

func (o *object) Close() error { return nil }

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || off >= o.size {
		return nil, io.EOF
	}
	var opts minio.GetObjectOptions
	if err := opts.SetRange(off, min(off+length, o.size)-1); err != nil {
		return nil, err
	}
	return o.client.GetObject(ctx, o.bucket, o.key, opts)
}

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	switch {
	case off >= o.size:
		return 0, io.EOF
	case len(p) == 0:
		return 0, nil
	}
	rc, err := o.ReadRange(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	avail := min(int64(len(p)), o.size-off)
	n, err := io.ReadFull(rc, p[:avail])
	if err == nil && avail < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

type upload struct {
	pw     *io.PipeWriter
	result chan error
	once   sync.Once
}

func (u *upload) Write(p []byte) (int, error) { return u.pw.Write(p) }

func (u *upload) Sync() error { return nil }

func (u *upload) Close() error {
	err := io.ErrClosedPipe
	u.once.Do(func() {
		if err = u.pw.Close(); err == nil {
			err = <-u.result
		}
	})
	return err
}

// Abort fails the in-flight PutObject so the object is never created.
func (u *upload) Abort() error {
	u.once.Do(func() {
		_ = u.pw.CloseWithError(errAborted)
		<-u.result
	})
	return nil
}
