package cli

import (
	"rezscan/internal/common"
	"rezscan/internal/scoring"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the scoring service is reachable",
	RunE:  runHealth,
}

var healthConfig common.CommandConfig

func init() {
	healthCmd.Flags().StringVar(&healthConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	if healthConfig.OutputFormat == "" {
		healthConfig.OutputFormat = cfg.App.DefaultFormat
	}
	if err := common.ValidateOutputFormat(healthConfig.OutputFormat, cfg.App.SupportedFormats); err != nil {
		return err
	}

	status, err := scoring.NewClient(cfg.Scoring, logger).Health(cmd.Context())
	if err != nil {
		return userFacing(err)
	}
	return common.NewOutputHandlerTo(logger, cmd.OutOrStdout()).HandleOutput(status, healthConfig)
}
