package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/ohmyjons/simple-elt/internal/ui"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "elt",
	Short: "Postgres to warehouse batch ELT",
	Long: `elt moves one PostgreSQL table into an analytical warehouse in three stages:

  extract     stream the table as delimited text to object storage
  load        replace the warehouse table with the staged file
  transform   define a view deriving sales, cost and profit metrics

'elt seed' creates the source table from a CSV file.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Source or destination unreachable
  12 - Source query failed
  13 - Table or staged object write failed
  14 - Seed CSV could not be typed
  15 - Staged row did not match the warehouse schema
  16 - Warehouse load failed
  17 - View could not be created`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
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

// styledOutput reports whether w is a terminal that should get colored output.
func styledOutput(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && ui.Styled(f)
}
