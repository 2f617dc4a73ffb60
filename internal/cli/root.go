package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pgload",
	Short: "Chunked bulk ingestion of CSV and Parquet into PostgreSQL",
	Long: `pgload streams a CSV (local, remote or compressed) or Parquet file into a
PostgreSQL table in fixed-size chunks.

The destination table is dropped and recreated from the first chunk's
columns, then every chunk is appended with COPY in its own transaction.
Memory use is bounded by the chunk size, not by the input size.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration (e.g. zero or both sources)
  11 - Database connection failed
  20 - Source could not be opened or decoded
  21 - Source is empty
  22 - Timestamp column could not be parsed
  23 - Destination table could not be created
  24 - Chunk could not be written`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
