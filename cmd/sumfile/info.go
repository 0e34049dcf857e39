package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/sumfile/pkg/sumfile"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show sidecar coverage for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		t, err := sumfile.Open(path, nil)
		if err != nil {
			return fmt.Errorf("opening table: %w", err)
		}
		defer t.Close()

		fileLen := t.FileLength()
		covered := t.CoveredLength()
		coveredPct := 100.0
		if fileLen > 0 {
			coveredPct = float64(covered) / float64(fileLen) * 100
		}

		if infoJSON {
			info := map[string]interface{}{
				"path":           t.Path(),
				"sidecar":        t.SumPath(),
				"chunk_size_log": t.ChunkSizeLog(),
				"chunk_size":     t.ChunkSize(),
				"covered_length": covered,
				"file_length":    fileLen,
				"checksums":      t.ChecksumCount(),
				"covered_pct":    fmt.Sprintf("%.1f%%", coveredPct),
				"timestamp":      time.Now().UTC().Format(time.RFC3339),
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(info)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Checksum Sidecar")
		fmt.Fprintln(w, "================")
		fmt.Fprintf(w, "Path:\t%s\n", t.Path())
		fmt.Fprintf(w, "Sidecar:\t%s\n", t.SumPath())
		fmt.Fprintf(w, "Chunk Size:\t%d bytes (2^%d)\n", t.ChunkSize(), t.ChunkSizeLog())
		fmt.Fprintf(w, "Covered Length:\t%d bytes\n", covered)
		fmt.Fprintf(w, "File Length:\t%d bytes\n", fileLen)
		fmt.Fprintf(w, "Checksums:\t%d\n", t.ChecksumCount())
		fmt.Fprintf(w, "Covered:\t%.1f%%\n", coveredPct)
		return w.Flush()
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(infoCmd)
}
