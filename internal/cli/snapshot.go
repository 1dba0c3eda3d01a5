package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/shmvec/resource"
	"github.com/hupe1980/shmvec/snapshot"
)

// snapshotFlags are shared by export and import.
type snapshotFlags struct {
	store   string
	name    string
	workers int64
	ioLimit int64
}

func (s *snapshotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.store, "store", "", "store url (path, file://, s3://, minio://)")
	cmd.Flags().StringVar(&s.name, "name", "", "snapshot name inside the store")
	cmd.Flags().Int64Var(&s.workers, "workers", 0, "parallel compression workers (default GOMAXPROCS)")
	cmd.Flags().Int64Var(&s.ioLimit, "io-limit", 0, "snapshot IO limit in bytes per second (0 = unlimited)")
}

func (s *snapshotFlags) options(rootOpts *RootOptions) snapshot.Options {
	opts := snapshot.Options{
		Concurrency: int(s.workers),
		Logger:      rootOpts.logger(),
	}
	if s.workers > 0 || s.ioLimit > 0 {
		opts.Resource = resource.NewController(resource.Config{
			MaxBackgroundWorkers: s.workers,
			IOLimitBytesPerSec:   s.ioLimit,
		})
	}
	return opts
}

func writeHeader(w io.Writer, verb, name string, id uint32, h snapshot.Header) error {
	_, err := fmt.Fprintf(w, "%s %s: vector %d, %d elements of %d bytes, %d per window, max %d, codec %s\n",
		verb, name, id, h.Count, h.ElementSize, h.WindowElements, h.MaxElements, h.Codec)
	return err
}

type snapshotResult struct {
	ID     uint32          `json:"id"`
	Name   string          `json:"name"`
	Header snapshot.Header `json:"header"`
}
