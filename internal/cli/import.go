package cli

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/shmvec"
	"github.com/hupe1980/shmvec/blobstore"
	"github.com/hupe1980/shmvec/snapshot"
)

type importOptions struct {
	snapshotFlags
	into        uint32
	dialTimeout time.Duration
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a snapshot into a shared vector",
		Long: `Load a snapshot into a shared vector. With --into the elements are
appended to an existing vector. Otherwise the namespace's host (see
"shmvec host") allocates a vector with the snapshot's geometry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, opts, cmd)
		},
	}

	opts.register(cmd)
	cmd.Flags().Uint32Var(&opts.into, "into", 0, "append to this vector instead of allocating")
	cmd.Flags().DurationVar(&opts.dialTimeout, "dial-timeout", 5*time.Second, "time to wait for the host")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runImport(rootOpts *RootOptions, opts *importOptions, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)
	ctx := cmd.Context()

	store, err := OpenStore(ctx, opts.store)
	if err != nil {
		return f.Fail(err)
	}
	reg, err := rootOpts.attach()
	if err != nil {
		return f.Fail(err)
	}
	defer reg.Close()

	sopts := opts.options(rootOpts)

	id := shmvec.VectorID(opts.into)
	var hdr snapshot.Header
	if id != 0 {
		hdr, err = importInto(ctx, reg, id, store, opts.name, sopts)
	} else {
		id, hdr, err = importViaHost(ctx, rootOpts, opts, reg, store, sopts)
	}
	if err != nil {
		return f.Fail(WrapExitError(ExitFailure, "import", err))
	}

	res := snapshotResult{ID: uint32(id), Name: opts.name, Header: hdr}
	return f.Success(res, func(w io.Writer) error {
		return writeHeader(w, "imported", opts.name, uint32(id), hdr)
	})
}

func importInto(ctx context.Context, reg *shmvec.Registry, id shmvec.VectorID, store blobstore.BlobStore, name string, sopts snapshot.Options) (snapshot.Header, error) {
	dst, err := reg.LookupRaw(id)
	if err != nil {
		return snapshot.Header{}, err
	}
	hdr, err := snapshot.ImportInto(ctx, store, name, dst, sopts)
	return hdr, errors.Join(err, dst.Close())
}

func importViaHost(ctx context.Context, rootOpts *RootOptions, opts *importOptions, reg *shmvec.Registry, store blobstore.BlobStore, sopts snapshot.Options) (shmvec.VectorID, snapshot.Header, error) {
	hdr, err := snapshot.Stat(ctx, store, opts.name)
	if err != nil {
		return 0, snapshot.Header{}, err
	}

	client, err := rootOpts.dial(ctx, opts.dialTimeout)
	if err != nil {
		return 0, snapshot.Header{}, err
	}
	defer client.Close()

	id, err := client.AllocVec(ctx, shmvec.AllocRequest{
		ElementSize:     hdr.ElementSize,
		MaxElements:     hdr.MaxElements,
		WindowElements:  hdr.WindowElements,
		InitialCapacity: hdr.Count,
		TypeTag:         hdr.TypeTag,
	})
	if err != nil {
		return 0, snapshot.Header{}, err
	}

	hdr, err = importInto(ctx, reg, id, store, opts.name, sopts)
	if err != nil {
		if _, ferr := client.FreeVec(context.WithoutCancel(ctx), id); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return 0, snapshot.Header{}, err
	}
	return id, hdr, nil
}
