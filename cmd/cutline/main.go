// Command cutline validates node catalogs, runs edit scenarios and
// inspects edit journals.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cutline/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
