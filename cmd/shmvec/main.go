// Command shmvec inspects shared vectors, moves them to and from snapshot
// stores, and hosts namespaces for other processes.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hupe1980/shmvec/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
