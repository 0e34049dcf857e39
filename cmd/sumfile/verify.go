package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/sumfile/pkg/sumfile"
)

var (
	verifyOffset uint64
	verifyLength uint64
	verifyStats  bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Verify a byte range against the sidecar",
	Long: `Verify checks a byte range of the file against its checksum sidecar.
Without --offset/--length the whole covered prefix is checked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		collector := sumfile.NewMetricsCollector(path)
		t, err := sumfile.Open(path, &sumfile.Options{MetricsCollector: collector})
		if err != nil {
			return fmt.Errorf("opening table: %w", err)
		}
		defer t.Close()

		offset := verifyOffset
		length := verifyLength
		if !cmd.Flags().Changed("length") {
			if offset > t.CoveredLength() {
				return fmt.Errorf("offset %d beyond covered length %d", offset, t.CoveredLength())
			}
			length = t.CoveredLength() - offset
		}

		checkErr := t.CheckRange(offset, length)
		if checkErr != nil {
			color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "FAIL\t%s\n", checkErr)
		} else {
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "OK\trange %d..%d verified\n", offset, offset+length)
		}

		if verifyStats {
			snap := sumfile.GetMetricsSnapshot(collector)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\nVerification Activity")
			fmt.Fprintln(w, "=====================")
			fmt.Fprintf(w, "Chunks Hashed:\t%d\n", snap.ChunksHashed)
			fmt.Fprintf(w, "Bytes Hashed:\t%d\n", snap.BytesHashed)
			fmt.Fprintf(w, "Cache Hits:\t%d\n", snap.CacheHits)
			if err := w.Flush(); err != nil {
				return err
			}
		}

		return checkErr
	},
}

func init() {
	verifyCmd.Flags().Uint64Var(&verifyOffset, "offset", 0, "start offset of the range to verify")
	verifyCmd.Flags().Uint64Var(&verifyLength, "length", 0, "length of the range to verify (default: covered prefix)")
	verifyCmd.Flags().BoolVar(&verifyStats, "stats", false, "print verification activity")
	rootCmd.AddCommand(verifyCmd)
}
