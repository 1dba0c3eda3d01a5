package resource

import (
	"context"
	"io"
)

// RateLimitedWriter charges every write against the controller's IO limit
// before passing it on, and counts the bytes written. A nil controller only
// counts.
type RateLimitedWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
	n   int64
}

// NewRateLimitedWriter wraps w.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *RateLimitedWriter {
	return &RateLimitedWriter{ctx: ctx, w: w, rc: rc}
}

func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	return n, err
}

// Bytes is the number of bytes written so far.
func (w *RateLimitedWriter) Bytes() int64 { return w.n }

// RateLimitedReader charges the bytes each read returns against the IO
// limit and counts them.
type RateLimitedReader struct {
	ctx context.Context
	r   io.Reader
	rc  *Controller
	n   int64
}

// NewRateLimitedReader wraps r.
func NewRateLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *RateLimitedReader {
	return &RateLimitedReader{ctx: ctx, r: r, rc: rc}
}

func (r *RateLimitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.n += int64(n)
	if n > 0 {
		if lerr := r.rc.AcquireIO(r.ctx, n); lerr != nil {
			return n, lerr
		}
	}
	return n, err
}

// Bytes is the number of bytes read so far.
func (r *RateLimitedReader) Bytes() int64 { return r.n }
