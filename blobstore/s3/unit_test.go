package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/shmvec/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStore_Open(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "snapshots", "shmvec")

	t.Run("NotFound", func(t *testing.T) {
		client.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "snapshots" && *input.Key == "shmvec/ns/1.snap"
		})).Return(nil, &types.NotFound{}).Once()

		_, err := store.Open(context.Background(), "ns/1.snap")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		client.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "snapshots" && *input.Key == "shmvec/ns/2.snap"
		})).Return(&s3.HeadObjectOutput{
			ContentLength: aws.Int64(100),
		}, nil).Once()

		blob, err := store.Open(context.Background(), "ns/2.snap")
		require.NoError(t, err)
		assert.Equal(t, int64(100), blob.Size())
	})

	client.AssertExpectations(t)
}

func TestStore_Delete(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "snapshots", "shmvec")

	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(input *s3.DeleteObjectInput) bool {
		return *input.Key == "shmvec/ns/3.snap"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()
	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(input *s3.DeleteObjectInput) bool {
		return *input.Key == "shmvec/ns/4.snap"
	})).Return(nil, &types.NoSuchKey{}).Once()

	assert.NoError(t, store.Delete(context.Background(), "ns/3.snap"))
	assert.NoError(t, store.Delete(context.Background(), "ns/4.snap"))
	client.AssertExpectations(t)
}

func TestStore_List(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "snapshots", "shmvec/")

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return *input.Bucket == "snapshots" && *input.Prefix == "shmvec"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("shmvec/b.snap")},
			{Key: aws.String("shmvec/a/1.snap")},
		},
	}, nil).Once()

	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1.snap", "b.snap"}, keys)
}

func TestStore_List_Pagination(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "snapshots", "shmvec/")

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return input.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("token"),
		Contents:              []types.Object{{Key: aws.String("shmvec/1.snap")}},
	}, nil).Once()

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return input.ContinuationToken != nil && *input.ContinuationToken == "token"
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated: aws.Bool(false),
		Contents:    []types.Object{{Key: aws.String("shmvec/2.snap")}},
	}, nil).Once()

	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.snap", "2.snap"}, keys)
}

func TestBlob_ReadAt(t *testing.T) {
	client := new(MockS3Client)
	blob := &s3Blob{client: client, bucket: "snapshots", key: "ns/1.snap", size: 10}

	client.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Range == "bytes=0-4"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("hello")),
	}, nil).Once()

	buf := make([]byte, 5)
	n, err := blob.ReadAt(context.Background(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	t.Run("ShortTail", func(t *testing.T) {
		client.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Range == "bytes=8-9"
		})).Return(&s3.GetObjectOutput{
			Body: io.NopCloser(strings.NewReader("89")),
		}, nil).Once()

		buf := make([]byte, 4)
		n, err := blob.ReadAt(context.Background(), buf, 8)
		assert.Equal(t, 2, n)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("PastEnd", func(t *testing.T) {
		_, err := blob.ReadAt(context.Background(), buf, 10)
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestBlob_ReadRange(t *testing.T) {
	client := new(MockS3Client)
	blob := &s3Blob{client: client, bucket: "snapshots", key: "ns/1.snap", size: 10}

	client.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Bucket == "snapshots" && *input.Key == "ns/1.snap" && *input.Range == "bytes=2-6"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("llo W")),
	}, nil).Once()

	r, err := blob.ReadRange(context.Background(), 2, 5)
	require.NoError(t, err)
	defer r.Close()

	buf, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "llo W", string(buf))
}

func TestStore_Put(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "snapshots", "shmvec")
	data := []byte("snapshot bytes")

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Key == "shmvec/put" &&
			aws.ToInt64(input.ContentLength) == int64(len(data)) &&
			aws.ToString(input.ChecksumCRC32C) == computeCRC32C(data)
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(context.Background(), "put", data))
	client.AssertExpectations(t)
}

func TestComputeCRC32C(t *testing.T) {
	// RFC 3720 test vector: 32 bytes of zeros -> 0x8A9136AA.
	assert.Equal(t, "ipE2qg==", computeCRC32C(make([]byte, 32)))
}

func TestStore_Create(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "snapshots", "shmvec")

	var uploaded []byte
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Bucket == "snapshots" && *input.Key == "shmvec/new"
	})).Run(func(args mock.Arguments) {
		input := args.Get(1).(*s3.PutObjectInput)
		uploaded, _ = io.ReadAll(input.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	wb, err := store.Create(context.Background(), "new")
	require.NoError(t, err)

	_, err = wb.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())
	assert.Equal(t, "content", string(uploaded))
	client.AssertExpectations(t)
}

func TestStore_CreateAbort(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "snapshots", "shmvec")

	wb, err := store.Create(context.Background(), "aborted")
	require.NoError(t, err)
	_, err = wb.Write([]byte("partial"))
	require.NoError(t, err)

	require.NoError(t, blobstore.Abort(wb))
	_, err = wb.Write([]byte("more"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}
