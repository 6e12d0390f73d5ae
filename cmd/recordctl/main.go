// Command recordctl inspects recordstore connections and the statements
// generated for paged searches.
package main

import (
	"os"

	"github.com/syssam/recordstore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
