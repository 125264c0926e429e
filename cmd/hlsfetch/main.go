// Command hlsfetch downloads HLS streams and plain HTTP files.
package main

import (
	"os"

	"github.com/streamvault/hlsfetch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
