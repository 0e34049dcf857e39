// Command sumfile provides a CLI tool for inspecting and maintaining
// checksum sidecars of append-only files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
