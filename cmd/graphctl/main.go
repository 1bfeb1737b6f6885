// Command graphctl issues ad-hoc calls through the batching client.
package main

import (
	"fmt"
	"os"

	"github.com/Sternrassler/graph-batch-client/internal/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
