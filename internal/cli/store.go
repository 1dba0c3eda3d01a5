package cli

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/shmvec/blobstore"
	"github.com/hupe1980/shmvec/blobstore/minio"
	"github.com/hupe1980/shmvec/blobstore/s3"
)

// OpenStore resolves a store URL:
//
//	/path or file:///path                      local directory
//	s3://bucket/prefix?region=R&endpoint=URL   Amazon S3 (default credential chain)
//	minio://[key:secret@]host:port/bucket/prefix?secure=false
//
// MinIO credentials default to MINIO_ACCESS_KEY and MINIO_SECRET_KEY.
func OpenStore(ctx context.Context, raw string) (blobstore.BlobStore, error) {
	if raw == "" {
		return nil, NewExitError(ExitCommandError, "--store is required")
	}
	if !strings.Contains(raw, "://") {
		return blobstore.NewLocalStore(raw), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "parse store url", err)
	}

	switch u.Scheme {
	case "file":
		if u.Path == "" {
			return nil, NewExitError(ExitCommandError, "file store needs a path")
		}
		return blobstore.NewLocalStore(u.Path), nil
	case "s3":
		return openS3(ctx, u)
	case "minio":
		return openMinio(u)
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unsupported store scheme %q", u.Scheme))
	}
}

func prefixOf(u *url.URL) string {
	return strings.Trim(u.Path, "/")
}

func openS3(ctx context.Context, u *url.URL) (blobstore.BlobStore, error) {
	if u.Host == "" {
		return nil, NewExitError(ExitCommandError, "s3 store needs a bucket")
	}
	q := u.Query()
	opts := []s3.Option{s3.WithPrefix(prefixOf(u))}
	if r := q.Get("region"); r != "" {
		opts = append(opts, s3.WithRegion(r))
	}
	if e := q.Get("endpoint"); e != "" {
		opts = append(opts, s3.WithEndpoint(e))
	}
	store, err := s3.New(ctx, u.Host, opts...)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "load aws config", err)
	}
	return store, nil
}

func openMinio(u *url.URL) (blobstore.BlobStore, error) {
	bucket, prefix, _ := strings.Cut(prefixOf(u), "/")
	if u.Host == "" || bucket == "" {
		return nil, NewExitError(ExitCommandError, "minio store needs host and bucket")
	}

	secure := true
	if s := u.Query().Get("secure"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "parse secure", err)
		}
		secure = v
	}

	creds := credentials.NewEnvMinio()
	if u.User != nil {
		secret, _ := u.User.Password()
		creds = credentials.NewStaticV4(u.User.Username(), secret, "")
	}

	client, err := miniogo.New(u.Host, &miniogo.Options{Creds: creds, Secure: secure})
	if err != nil {
		return nil, WrapExitError(ExitFailure, "create minio client", err)
	}
	return minio.NewStore(client, bucket, prefix), nil
}
