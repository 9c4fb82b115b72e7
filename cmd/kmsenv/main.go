// Command kmsenv runs a media server outside of a test binary and inspects
// the configuration it would use.
package main

import (
	"os"

	"github.com/giantswarm/kmsenv/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
