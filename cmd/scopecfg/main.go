// Command scopecfg reconfigures the nodes of a signal-processing graph
// described in CUE.
package main

import (
	"fmt"
	"os"

	"github.com/mldulaney/scopehal-apps/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
