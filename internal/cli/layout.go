package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/shmvec/internal/layout"
)

type layoutField struct {
	Name   string `json:"name"`
	Offset uintptr `json:"offset"`
	Width  uintptr `json:"width"`
	Desc   string `json:"description"`
}

// NewLayoutCommand creates the layout command.
func NewLayoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Print the control block layout",
		Long: `Print the byte layout of the control block at the start of every
backing file. Other languages can map the same files using this table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := make([]layoutField, len(layout.Fields))
			for i, f := range layout.Fields {
				fields[i] = layoutField{Name: f.Name, Offset: f.Offset, Width: f.Width, Desc: f.Desc}
			}
			return rootOpts.formatter(cmd).Success(fields, func(w io.Writer) error {
				return layout.Describe(w)
			})
		},
	}
}
