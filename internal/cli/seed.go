package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ohmyjons/simple-elt/internal/logging"
	"github.com/ohmyjons/simple-elt/internal/seed"
	"github.com/ohmyjons/simple-elt/internal/ui"
	"github.com/ohmyjons/simple-elt/pkg/elt"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a PostgreSQL table from a CSV file",
	Long: `Seed reads a CSV file with a header row, infers a type for every column
and replaces the target table with its rows.

Column names are normalised to snake_case ("Discount Band" becomes
discount_band). Types are inferred narrowest first: BIGINT, DOUBLE PRECISION,
BOOLEAN, DATE, TEXT. Empty cells are stored as NULL.

The table is dropped, recreated and filled in one transaction, so running
seed twice yields the same table.

Examples:
  elt seed --user postgres --password secret --host localhost --port 5432 \
    --db sales --table_name financial_sample --csv_file ./financial_sample.csv`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

type seedFlagValues struct {
	user, password, host, port, database string
	tableName, csvFile                   string
}

var seedFlags seedFlagValues

func init() {
	rootCmd.AddCommand(seedCmd)

	f := seedCmd.Flags()
	f.StringVar(&seedFlags.user, "user", "", "PostgreSQL user")
	f.StringVar(&seedFlags.password, "password", "", "PostgreSQL password")
	f.StringVar(&seedFlags.host, "host", "", "PostgreSQL server host")
	f.StringVar(&seedFlags.port, "port", "", "PostgreSQL server port")
	f.StringVar(&seedFlags.database, "db", "", "Database to create the table in")
	f.StringVar(&seedFlags.tableName, "table_name", "", "Table to replace, optionally schema-qualified (schema.table)")
	f.StringVar(&seedFlags.csvFile, "csv_file", "", "CSV file with a header row")

	for _, name := range []string{"user", "password", "host", "port", "db", "table_name", "csv_file"} {
		_ = seedCmd.MarkFlagRequired(name)
	}
	_ = seedCmd.RegisterFlagCompletionFunc("csv_file", completeFiles("csv"))
}

// buildSeedConfig converts flag values into a validated SeedConfig.
func buildSeedConfig(flags seedFlagValues) (elt.SeedConfig, error) {
	port, err := strconv.Atoi(flags.port)
	if err != nil {
		return elt.SeedConfig{}, fmt.Errorf("invalid port %q: %w", flags.port, elt.ErrConfiguration)
	}

	cfg := elt.SeedConfig{
		Connection: elt.ConnectionConfig{
			Host:       flags.host,
			Port:       port,
			Database:   flags.database,
			Username:   flags.user,
			Password:   flags.password,
			SSLMode:    elt.DefaultSSLMode,
			AuthMethod: elt.AuthMethodStandard,
			AppName:    elt.DefaultAppName,
		},
		TableName: flags.tableName,
		CSVFile:   flags.csvFile,
	}
	if err := cfg.Validate(); err != nil {
		return elt.SeedConfig{}, err
	}
	return cfg, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	cfg, err := buildSeedConfig(seedFlags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := seed.NewSeeder(logging.NewConsoleLogger(verbose)).Seed(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, ui.SeedSummary(result, styledOutput(out)))
	return nil
}
