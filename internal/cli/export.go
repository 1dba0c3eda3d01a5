package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/shmvec"
	"github.com/hupe1980/shmvec/snapshot"
)

type exportOptions struct {
	snapshotFlags
	id    uint32
	codec string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a vector's published elements to a store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, opts, cmd)
		},
	}

	opts.register(cmd)
	cmd.Flags().Uint32Var(&opts.id, "id", 0, "vector id")
	cmd.Flags().StringVar(&opts.codec, "codec", "lz4", "block codec (none|lz4|zstd)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runExport(rootOpts *RootOptions, opts *exportOptions, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)
	ctx := cmd.Context()

	codec, err := snapshot.ParseCodec(opts.codec)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "parse codec", err))
	}
	store, err := OpenStore(ctx, opts.store)
	if err != nil {
		return f.Fail(err)
	}
	reg, err := rootOpts.attach()
	if err != nil {
		return f.Fail(err)
	}
	defer reg.Close()

	id := shmvec.VectorID(opts.id)
	name := opts.name
	if name == "" {
		name = fmt.Sprintf("%s/%d.snap", rootOpts.Namespace, id)
	}

	src, err := reg.LookupRaw(id)
	if err != nil {
		return f.Fail(WrapExitError(ExitFailure, "open vector", err))
	}
	defer src.Close()

	sopts := opts.options(rootOpts)
	sopts.Codec = codec
	f.VerboseLog("exporting vector %d to %s", id, name)
	hdr, err := snapshot.Export(ctx, store, name, src, sopts)
	if err != nil {
		return f.Fail(WrapExitError(ExitFailure, "export", err))
	}

	res := snapshotResult{ID: opts.id, Name: name, Header: hdr}
	return f.Success(res, func(w io.Writer) error {
		return writeHeader(w, "exported", name, opts.id, hdr)
	})
}
