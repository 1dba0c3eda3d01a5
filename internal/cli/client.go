package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/shmvec"
	"github.com/hupe1980/shmvec/rpc"
)

func (o *RootOptions) dial(ctx context.Context, timeout time.Duration) (*rpc.Client, error) {
	if err := o.requireNamespace(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	c, err := rpc.Dial(ctx, o.dir(), o.Namespace, rpc.WithLogger(o.logger()))
	if err != nil {
		return nil, WrapExitError(ExitFailure, "dial host", err)
	}
	return c, nil
}

type allocOptions struct {
	req         shmvec.AllocRequest
	dialTimeout time.Duration
}

// NewAllocCommand creates the alloc command.
func NewAllocCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &allocOptions{}

	cmd := &cobra.Command{
		Use:   "alloc",
		Short: "Ask the namespace host to allocate a vector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			c, err := rootOpts.dial(cmd.Context(), opts.dialTimeout)
			if err != nil {
				return f.Fail(err)
			}
			defer c.Close()

			id, err := c.AllocVec(cmd.Context(), opts.req)
			if err != nil {
				return f.Fail(WrapExitError(ExitFailure, "alloc", err))
			}
			return f.Success(map[string]uint32{"id": uint32(id)}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, id)
				return err
			})
		},
	}

	cmd.Flags().Uint32Var(&opts.req.ElementSize, "element-size", 0, "bytes per element")
	cmd.Flags().Uint64Var(&opts.req.MaxElements, "max", 0, "maximum number of elements")
	cmd.Flags().Uint32Var(&opts.req.WindowElements, "window", 0, "elements per window")
	cmd.Flags().Uint64Var(&opts.req.InitialCapacity, "capacity", 0, "elements to commit up front")
	cmd.Flags().Uint64Var(&opts.req.TypeTag, "type-tag", 0, "element type tag (0 = untagged)")
	cmd.Flags().DurationVar(&opts.dialTimeout, "dial-timeout", 5*time.Second, "time to wait for the host")
	for _, name := range []string{"element-size", "max", "window"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

type freeOptions struct {
	id          uint32
	dialTimeout time.Duration
}

// NewFreeCommand creates the free command.
func NewFreeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &freeOptions{}

	cmd := &cobra.Command{
		Use:   "free",
		Short: "Ask the namespace host to free a vector",
		Long: `Ask the namespace host to free a vector. A vector that any process
still views is left alone and the command fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			c, err := rootOpts.dial(cmd.Context(), opts.dialTimeout)
			if err != nil {
				return f.Fail(err)
			}
			defer c.Close()

			freed, err := c.FreeVec(cmd.Context(), shmvec.VectorID(opts.id))
			if err != nil {
				return f.Fail(WrapExitError(ExitFailure, "free", err))
			}
			return f.Success(map[string]bool{"freed": freed}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "freed %d\n", opts.id)
				return err
			})
		},
	}

	cmd.Flags().Uint32Var(&opts.id, "id", 0, "vector id")
	cmd.Flags().DurationVar(&opts.dialTimeout, "dial-timeout", 5*time.Second, "time to wait for the host")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
