// Command housing-report prints or exports the housing analysis.
package main

import (
	"os"

	"github.com/stwalsh4118/housing/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
