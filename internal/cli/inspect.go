package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/shmvec"
)

type inspectOptions struct {
	id   uint32
	path string
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print live control blocks",
		Long: `Print the control block of one vector (--id or --path) or of every
vector in the namespace. Inspecting does not open a view, so user counts
are reported as they are.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.id, "id", 0, "vector id (default all)")
	cmd.Flags().StringVar(&opts.path, "path", "", "backing file to inspect")

	return cmd
}

func runInspect(rootOpts *RootOptions, opts *inspectOptions, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	paths, err := inspectPaths(rootOpts, opts)
	if err != nil {
		return f.Fail(err)
	}
	stats := make([]shmvec.Stat, 0, len(paths))
	for _, p := range paths {
		f.VerboseLog("inspecting %s", p)
		st, err := shmvec.Inspect(p)
		if err != nil {
			return f.Fail(WrapExitError(ExitFailure, "inspect "+p, err))
		}
		stats = append(stats, st)
	}

	return f.Success(stats, func(w io.Writer) error {
		return writeStats(w, stats)
	})
}

func inspectPaths(rootOpts *RootOptions, opts *inspectOptions) ([]string, error) {
	if opts.path != "" {
		return []string{opts.path}, nil
	}
	if err := rootOpts.requireNamespace(); err != nil {
		return nil, err
	}
	if opts.id != 0 {
		return []string{shmvec.Path(rootOpts.dir(), rootOpts.Namespace, shmvec.VectorID(opts.id))}, nil
	}

	reg, err := rootOpts.attach()
	if err != nil {
		return nil, err
	}
	defer reg.Close()

	ids, err := reg.IDs()
	if err != nil {
		return nil, WrapExitError(ExitFailure, "list vectors", err)
	}
	paths := make([]string, len(ids))
	for i, id := range ids {
		paths[i] = shmvec.Path(rootOpts.dir(), rootOpts.Namespace, id)
	}
	return paths, nil
}

func writeStats(w io.Writer, stats []shmvec.Stat) error {
	if len(stats) == 0 {
		_, err := fmt.Fprintln(w, "no vectors")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tELEM\tSIZE\tMAX\tWINDOW\tCOMMITTED\tUSERS\tREADING\tOWNER\tTAG")
	for _, s := range stats {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%t\t%d\t%#x\n",
			s.ID, s.ElementSize, s.Size, s.MaxElements, s.WindowElements,
			s.CommittedBytes, s.UserCount, s.Reading, s.OwnerPID, s.TypeTag)
	}
	return tw.Flush()
}
