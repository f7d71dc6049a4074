package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ohmyjons/simple-elt/internal/config"
	"github.com/ohmyjons/simple-elt/internal/logging"
	"github.com/ohmyjons/simple-elt/internal/metrics"
	"github.com/ohmyjons/simple-elt/internal/pipeline"
	"github.com/ohmyjons/simple-elt/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the extract, load and transform stages",
	Long: `Run executes one pipeline run: extract the source table to object storage,
load it into the warehouse table (replacing its rows) and create the metrics view.

Configuration is read from, lowest precedence first:
  1. built-in defaults
  2. the YAML file (--config, default elt.yaml when present)
  3. .env files (--env-file, default .env when present)
  4. the process environment
  5. --storage, --warehouse and --timeout

Each stage is retried ELT_RETRIES times (default 1), waiting ELT_RETRY_DELAY
(default 1m) between attempts. The first stage that still fails ends the run.

Examples:
  # BigQuery and GCS, configured through the environment
  elt run

  # Local run against a directory and a DuckDB file
  elt run --storage file --warehouse duckdb

  # Show what would run
  elt run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

type runFlagValues struct {
	configFile string
	envFiles   []string
	storage    string
	warehouse  string
	timeout    time.Duration
	dryRun     bool
}

var runFlags runFlagValues

func init() {
	rootCmd.AddCommand(runCmd)
	addConfigFlags(runCmd, &runFlags)

	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "Resolve and validate the configuration, print the stages and exit")
}

// addConfigFlags registers the flags that feed config.Options.
func addConfigFlags(cmd *cobra.Command, flags *runFlagValues) {
	f := cmd.Flags()
	f.StringVar(&flags.configFile, "config", "", "YAML configuration file (default elt.yaml when present)")
	f.StringSliceVar(&flags.envFiles, "env-file", nil,
		"Load settings from .env files (can be specified multiple times)\n"+
			"Later files override earlier ones; the process environment overrides all")
	f.StringVar(&flags.storage, "storage", "", "Object storage backend: gcs|s3|file (overrides ELT_STORAGE_BACKEND)")
	f.StringVar(&flags.warehouse, "warehouse", "", "Warehouse backend: bigquery|duckdb (overrides ELT_WAREHOUSE_BACKEND)")
	f.DurationVar(&flags.timeout, "timeout", 0,
		"Catastrophic failure protection timeout for the whole run (overrides ELT_TIMEOUT)\n"+
			"Examples: 30m, 2h")

	_ = cmd.RegisterFlagCompletionFunc("storage", completeFrom(storageBackends))
	_ = cmd.RegisterFlagCompletionFunc("warehouse", completeFrom(warehouseBackends))
	_ = cmd.RegisterFlagCompletionFunc("config", completeFiles("yaml", "yml"))
	_ = cmd.RegisterFlagCompletionFunc("env-file", completeFiles("env"))
}

// configOptions turns flag values into config.Options. Only flags the user set
// become overrides.
func configOptions(cmd *cobra.Command, flags runFlagValues) config.Options {
	overrides := map[string]string{}
	if cmd.Flags().Changed("storage") {
		overrides[config.KeyStorageBackend] = flags.storage
	}
	if cmd.Flags().Changed("warehouse") {
		overrides[config.KeyWarehouseBackend] = flags.warehouse
	}
	if cmd.Flags().Changed("timeout") {
		overrides[config.KeyTimeout] = flags.timeout.String()
	}
	return config.Options{
		ConfigFile: flags.configFile,
		EnvFiles:   flags.envFiles,
		Overrides:  overrides,
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)
	logger := logging.NewConsoleLogger(verbose)
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configOptions(cmd, runFlags))
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		for _, line := range pipeline.Describe(cfg) {
			fmt.Fprintln(out, line)
		}
		return nil
	}

	// Handle interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	reg := prometheus.NewRegistry()
	runMetrics := metrics.NewRunMetrics(reg)

	p, cleanup, err := pipeline.Build(ctx, cfg, logger, pipeline.WithObservers(metrics.NewObserver(runMetrics)))
	if err != nil {
		return err
	}
	defer cleanup()

	report, runErr := p.Run(ctx)
	fmt.Fprint(out, ui.RunSummary(report, styledOutput(out)))

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pusher := metrics.NewPusher(cfg.PushgatewayURL, reg, cfg.BQDataset+"."+cfg.BQTable, logger)
		if err := pusher.Push(pushCtx); err != nil {
			logger.Error("run %s: %v", report.RunID, err)
		}
	}

	return runErr
}
