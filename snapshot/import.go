package snapshot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/shmvec"
	"github.com/hupe1980/shmvec/blobstore"
	"github.com/hupe1980/shmvec/resource"
)

// Stat reads the header of the blob name.
func Stat(ctx context.Context, store blobstore.BlobStore, name string) (Header, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return Header{}, err
	}
	defer blob.Close()

	b := make([]byte, HeaderSize)
	if _, err := blob.ReadAt(ctx, b, 0); err != nil && !errors.Is(err, io.EOF) {
		return Header{}, err
	}
	return unmarshalHeader(b)
}

// Import allocates a vector in reg with the snapshot's geometry and fills it.
// On failure the new vector is freed again.
func Import(ctx context.Context, store blobstore.BlobStore, name string, reg *shmvec.Registry, opts Options) (shmvec.VectorID, Header, error) {
	opts = opts.withDefaults()

	var (
		id   shmvec.VectorID
		hdr  Header
		view *shmvec.RawView
	)
	read, err := readSnapshot(ctx, store, name, opts, func(h Header) (*shmvec.RawView, error) {
		hdr = h
		var err error
		id, err = reg.Alloc(shmvec.AllocRequest{
			ElementSize:     h.ElementSize,
			MaxElements:     h.MaxElements,
			WindowElements:  h.WindowElements,
			InitialCapacity: h.Count,
			TypeTag:         h.TypeTag,
		})
		if err != nil {
			return nil, err
		}
		view, err = reg.LookupRaw(id)
		if err != nil {
			_, _ = reg.Free(id)
			return nil, err
		}
		return view, nil
	}, func(dst *shmvec.RawView) {
		_ = dst.Close()
		_, _ = reg.Free(id)
	})
	if err == nil {
		err = view.Close()
	}
	opts.Logger.LogSnapshot("import", id, name, hdr.Count, read, err)
	if err != nil {
		return 0, Header{}, err
	}
	return id, hdr, nil
}

// ImportInto appends the snapshot's elements to dst inside a write session
// and completes it. The element size and, when both carry one, the type tag
// must match. On failure dst is truncated back to its length at entry.
func ImportInto(ctx context.Context, store blobstore.BlobStore, name string, dst *shmvec.RawView, opts Options) (Header, error) {
	opts = opts.withDefaults()

	var hdr Header
	start := dst.Len()
	read, err := readSnapshot(ctx, store, name, opts, func(h Header) (*shmvec.RawView, error) {
		hdr = h
		if int(h.ElementSize) != dst.ElementSize() {
			return nil, &shmvec.TypeMismatchError{ID: dst.ID(), StoredSize: uint32(dst.ElementSize()), RequestedSize: h.ElementSize}
		}
		if h.TypeTag != 0 && dst.TypeTag() != 0 && h.TypeTag != dst.TypeTag() {
			return nil, &shmvec.TypeMismatchError{ID: dst.ID(), StoredSize: uint32(dst.ElementSize()), RequestedSize: h.ElementSize, StoredTag: dst.TypeTag(), RequestedTag: h.TypeTag}
		}
		if uint64(dst.MaxLen()-dst.Len()) < h.Count {
			return nil, shmvec.ErrCapacityExceeded
		}
		return dst, nil
	}, func(dst *shmvec.RawView) {
		dst.Truncate(start)
	})
	opts.Logger.LogSnapshot("import", dst.ID(), name, hdr.Count, read, err)
	return hdr, err
}

// readSnapshot streams the blob, calls open with the header and appends every
// block to the view it returns. fail runs when the copy does not finish. It
// returns the number of blob bytes consumed.
func readSnapshot(
	ctx context.Context,
	store blobstore.BlobStore,
	name string,
	opts Options,
	open func(Header) (*shmvec.RawView, error),
	fail func(*shmvec.RawView),
) (int64, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	defer blob.Close()

	rc, err := blobstore.NewReader(ctx, blob)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	in := resource.NewRateLimitedReader(ctx, rc, opts.Resource)
	r := bufio.NewReader(in)
	// bufio reads ahead; the unread tail is not counted.
	consumed := func() int64 { return in.Bytes() - int64(r.Buffered()) }

	hdr, err := ReadHeader(r)
	if err != nil {
		return consumed(), err
	}

	dst, err := open(hdr)
	if err != nil {
		return consumed(), err
	}
	if err := copyBlocks(ctx, r, hdr, dst); err != nil {
		fail(dst)
		return consumed(), err
	}
	return consumed(), nil
}

func copyBlocks(ctx context.Context, r io.Reader, hdr Header, dst *shmvec.RawView) error {
	we := uint64(hdr.WindowElements)
	es := int(hdr.ElementSize)
	maxRaw := int(we) * es

	dst.StartWrite()
	for i := range hdr.Blocks() {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := readBlock(r, hdr.Codec, maxRaw)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if want := int(min(hdr.Count-i*we, we)) * es; len(raw) != want {
			return fmt.Errorf("%w: block %d holds %d bytes, want %d", ErrCorrupt, i, len(raw), want)
		}
		if err := dst.Append(raw); err != nil {
			return err
		}
		if err := dst.Update(); err != nil {
			return err
		}
	}
	return dst.Complete()
}
