// Command layout publishes canonical scene entities and propagates new
// versions to their instances.
package main

import (
	"fmt"
	"os"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "layout: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
