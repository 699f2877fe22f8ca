// Command stackup launches compose manifests with build-time image, path,
// and port resolution.
package main

import (
	"os"

	"github.com/mgale/stackup/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
