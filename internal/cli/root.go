package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hupe1980/shmvec"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Dir       string
	Namespace string
	Verbose   bool
	Format    string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the shmvec CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "shmvec",
		Short: "Inspect and operate shared vectors",
		Long: `shmvec works with growable vectors shared between processes through
memory-mapped backing files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", "", "backing directory (default /dev/shm or the temp dir)")
	cmd.PersistentFlags().StringVar(&opts.Namespace, "ns", "", "registry namespace")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewLayoutCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewHostCommand(opts))
	cmd.AddCommand(NewAllocCommand(opts))
	cmd.AddCommand(NewFreeCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) logger() *shmvec.Logger {
	if !o.Verbose {
		return shmvec.NoopLogger()
	}
	return shmvec.NewTextLogger(slog.LevelDebug)
}

func (o *RootOptions) registryOptions() []shmvec.Option {
	opts := []shmvec.Option{shmvec.WithLogger(o.logger())}
	if o.Dir != "" {
		opts = append(opts, shmvec.WithDir(o.Dir))
	}
	if o.Namespace != "" {
		opts = append(opts, shmvec.WithNamespace(o.Namespace))
	}
	return opts
}

// dir resolves the backing directory the way the registry does.
func (o *RootOptions) dir() string {
	if o.Dir != "" {
		return o.Dir
	}
	return shmvec.DefaultDir()
}

func (o *RootOptions) requireNamespace() error {
	if o.Namespace == "" {
		return NewExitError(ExitCommandError, "--ns is required")
	}
	return nil
}

// attach opens the namespace as a non-owning registry.
func (o *RootOptions) attach() (*shmvec.Registry, error) {
	if err := o.requireNamespace(); err != nil {
		return nil, err
	}
	reg, err := shmvec.Attach(o.Namespace, o.registryOptions()...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "attach namespace", err)
	}
	return reg, nil
}
