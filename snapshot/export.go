package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/shmvec"
	"github.com/hupe1980/shmvec/blobstore"
	"github.com/hupe1980/shmvec/resource"
)

// Export writes the elements src has published to the blob name. The
// element count is fixed when Export starts; later pushes are not included.
// A failed export leaves no blob behind when the store supports Abort.
func Export(ctx context.Context, store blobstore.BlobStore, name string, src *shmvec.RawView, opts Options) (hdr Header, err error) {
	opts = opts.withDefaults()
	var written int64
	defer func() { opts.Logger.LogSnapshot("export", src.ID(), name, hdr.Count, written, err) }()

	if !opts.Codec.valid() {
		return Header{}, fmt.Errorf("snapshot: invalid codec %d", opts.Codec)
	}

	hdr = Header{
		Version:        version,
		Codec:          opts.Codec,
		ElementSize:    uint32(src.ElementSize()),
		WindowElements: uint32(src.WindowElements()),
		Count:          uint64(src.Len()),
		MaxElements:    uint64(src.MaxLen()),
		TypeTag:        src.TypeTag(),
	}

	w, err := store.Create(ctx, name)
	if err != nil {
		return Header{}, err
	}
	out := resource.NewRateLimitedWriter(ctx, w, opts.Resource)
	err = writeSnapshot(ctx, out, src, hdr, opts)
	written = out.Bytes()
	if err != nil {
		_ = blobstore.Abort(w)
		return Header{}, err
	}
	if err := w.Close(); err != nil {
		return Header{}, err
	}
	return hdr, nil
}

func writeSnapshot(ctx context.Context, out io.Writer, src *shmvec.RawView, hdr Header, opts Options) error {
	if _, err := out.Write(hdr.marshal()); err != nil {
		return err
	}

	total := hdr.Blocks()
	batch := make([]block, opts.Concurrency)
	raws := make([][]byte, opts.Concurrency)

	for first := uint64(0); first < total; first += uint64(len(batch)) {
		n := int(min(uint64(len(batch)), total-first))

		// The view is single-threaded; copy windows out before fanning out.
		for i := range n {
			raw, err := windowBytes(src, hdr, first+uint64(i))
			if err != nil {
				return err
			}
			raws[i] = raw
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := range n {
			g.Go(func() error {
				if err := opts.Resource.AcquireBackground(gctx); err != nil {
					return err
				}
				defer opts.Resource.ReleaseBackground()

				b, err := encodeBlock(hdr.Codec, raws[i])
				batch[i] = b
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i := range n {
			if err := batch[i].writeTo(out); err != nil {
				return err
			}
		}
	}
	return nil
}

// windowBytes copies the part of window w that falls below hdr.Count.
func windowBytes(src *shmvec.RawView, hdr Header, w uint64) ([]byte, error) {
	we := uint64(hdr.WindowElements)
	count := min(hdr.Count-w*we, we)
	b, err := src.Window(int(w))
	if err != nil {
		return nil, fmt.Errorf("snapshot: window %d: %w", w, err)
	}
	want := int(count) * int(hdr.ElementSize)
	if len(b) < want {
		return nil, fmt.Errorf("snapshot: window %d shrank to %d bytes during export", w, len(b))
	}
	return bytes.Clone(b[:want]), nil
}
