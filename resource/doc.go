// Package resource limits what a process may spend on shared vectors.
//
// A Controller governs three things:
//
//   - Commit: bytes of backing store made resident across all vectors of a
//     registry (fail-fast; a push that would exceed it returns an error).
//   - Background slots: concurrent snapshot workers.
//   - IO: a token bucket shared by snapshot readers and writers.
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    CommitLimitBytes:   1 << 30,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//
//	if err := rc.AcquireCommit(windowBytes); err != nil {
//	    // ErrCommitLimitExceeded
//	}
//	defer rc.ReleaseCommit(windowBytes)
//
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
//
// All methods are safe for concurrent use, and a nil *Controller imposes no
// limits.
package resource
