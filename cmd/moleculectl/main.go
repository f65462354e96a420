// Command moleculectl validates seed files and checks addresses against them
// without a running server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
