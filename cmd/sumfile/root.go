package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/sumfile/pkg/sumfile"
)

var rootCmd = &cobra.Command{
	Use:   "sumfile",
	Short: "Inspect and maintain checksum sidecars for append-only files",
	Long: `sumfile maintains a sidecar file of per-chunk checksums (<file>.sum)
for an append-only data file. Use it to verify byte ranges, extend
coverage after appends, and inspect sidecar state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sumfile version %s\n", sumfile.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
