package cli

import (
	"github.com/ohmyjons/simple-elt/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved pipeline configuration",
	Long: `Config resolves the configuration exactly as 'elt run' does and prints it
as YAML, with the source password masked. It exits with a configuration error
after printing when the configuration is invalid.

Examples:
  elt config
  elt config --env-file prod.env --warehouse duckdb`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configFlags runFlagValues

func init() {
	rootCmd.AddCommand(configCmd)
	addConfigFlags(configCmd, &configFlags)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(configOptions(cmd, configFlags))
	if err != nil {
		return err
	}

	out, err := config.Render(cfg)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return err
	}
	return cfg.Validate()
}
