// Command atemporal parses timestamps into canonical zoned date-times.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/atemporal/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
