package cli

import (
	"context"
	"fmt"
	"time"

	"rezscan/internal/config"
	"rezscan/internal/errors"
	"rezscan/internal/observability"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "rezscan",
	Short: "Rank resumes against a job description",
	Long: `rezscan uploads a job description and a set of resumes to a scoring
service, then presents the ranked matches, a skill comparison across
candidates and an exportable report of the full result list.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadContext,
}

// Execute runs the root command. Configuration is loaded after flags are parsed
// so that flag overrides bound to viper take effect.
func Execute(ctx context.Context) error {
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// loadContext attaches the config and logger to the command context
func loadContext(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Debug("Starting rezscan",
		"version", Version,
		"command", cmd.Name(),
		"log_level", cfg.App.LogLevel,
		"scoring_url", cfg.Scoring.BaseURL)

	ctx := context.WithValue(cmd.Context(), configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	cmd.SetContext(ctx)
	return nil
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg, nil
	}
	return nil, errors.NewInternalError(errors.ErrCodeInvalidConfig, "configuration not loaded", nil)
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger, nil
	}
	return nil, errors.NewInternalError(errors.ErrCodeInvalidConfig, "logger not initialized", nil)
}

// startObservability sets up telemetry for a command. The returned stop flushes it.
func startObservability(cfg *config.Config, logger *errors.Logger) (*observability.ObservabilityManager, func(), error) {
	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}
	return om, stop, nil
}

// bindFlag binds a flag of cmd to a viper config key
func bindFlag(cmd *cobra.Command, key, flagName string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	if err := viper.BindPFlag(key, flags.Lookup(flagName)); err != nil {
		panic(err)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().String("scoring-url", "", "Scoring service base URL (overrides config)")
	bindFlag(rootCmd, "app.logLevel", "log-level", true)
	bindFlag(rootCmd, "scoring.baseURL", "scoring-url", true)

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
