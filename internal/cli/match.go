package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rezscan/internal/common"
	"rezscan/internal/config"
	"rezscan/internal/errors"
	"rezscan/internal/formatters"
	"rezscan/internal/observability"
	"rezscan/internal/report"
	"rezscan/internal/scoring"
	"rezscan/internal/session"
	"rezscan/internal/types"

	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match --jd [job-description-file] [resume-file...]",
	Short: "Rank resumes against a job description",
	Long: `Upload a job description and one or more resumes (.pdf, .docx or .txt) to
the scoring service and print the ranked matches.

The output contains:
- The analysis summary (total resumes, average score, score distribution)
- The detailed match table, top 5 by default or every match with --all
- The skill match comparison across all candidates

Use --report to also save the full match table as pdf, csv or markdown.`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if matchOpts.output.OutputFormat == "" {
			matchOpts.output.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(matchOpts.output.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runMatch,
}

// matchOptions holds the flags shared by match and interactive
type matchOptions struct {
	output         common.CommandConfig
	jobDescription string
	showAll        bool
	reportPath     string
	reportFormat   string
	metric         string
	topK           int
	threshold      float64
}

var matchOpts matchOptions

func addSubmissionFlags(cmd *cobra.Command, opts *matchOptions) {
	cmd.Flags().StringVar(&opts.jobDescription, "jd", "", "Job description file (required)")
	cmd.Flags().StringVar(&opts.metric, "metric", "", "Similarity metric: cosine, euclidean or combined (default from config)")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "Number of matches the service returns (default from config)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Minimum similarity between 0 and 1 (default from config)")
	_ = cmd.MarkFlagRequired("jd")
	_ = cmd.RegisterFlagCompletionFunc("metric", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return config.SimilarityMetrics, cobra.ShellCompDirectiveNoFileComp
	})
}

func init() {
	addSubmissionFlags(matchCmd, &matchOpts)
	matchCmd.Flags().BoolVar(&matchOpts.showAll, "all", false, "Show every match instead of the top 5")
	matchCmd.Flags().StringVarP(&matchOpts.output.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	matchCmd.Flags().StringVar(&matchOpts.output.OutputFormat, "format", "", "Output format: json, text, or markdown")
	matchCmd.Flags().StringVar(&matchOpts.reportPath, "report", "", "Also export the full match table to this file or directory")
	matchCmd.Flags().StringVar(&matchOpts.reportFormat, "report-format", "", "Report format: pdf, csv, or markdown (default from config)")

	_ = matchCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatters.GlobalRegistry.GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = matchCmd.RegisterFlagCompletionFunc("report-format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(report.SupportedFormats))
		for i, f := range report.SupportedFormats {
			names[i] = string(f)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

// submission builds a Submission from the flags. Unset parameters fall back to config.
func (o *matchOptions) submission(cmd *cobra.Command, jd types.Attachment, resumes []types.Attachment) session.Submission {
	sub := session.Submission{
		JobDescription:   jd,
		Resumes:          resumes,
		SimilarityMetric: o.metric,
		TopK:             o.topK,
	}
	if cmd.Flags().Changed("threshold") {
		t := o.threshold
		sub.SimilarityThreshold = &t
	}
	return sub
}

// newSessionController builds a controller scoring through an instrumented client
func newSessionController(cfg *config.Config, logger *errors.Logger, om *observability.ObservabilityManager) (*session.Controller, *scoring.Client) {
	client := scoring.NewClient(cfg.Scoring, logger)
	ctrl := session.NewController(session.Options{
		Matcher:        scoring.Instrument(client, om),
		Progress:       cfg.Progress,
		WindowSize:     cfg.App.WindowSize,
		ReportBaseName: cfg.Report.BaseName,
		Logger:         logger,
	})
	return ctrl, client
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(ctx)
	if err != nil {
		return err
	}

	// Resolve the report format before spending a scoring call
	var reportFormat report.Format
	if matchOpts.reportPath != "" {
		if reportFormat, err = common.ValidateReportFormat(matchOpts.reportFormat, cfg.Report.DefaultFormat); err != nil {
			return err
		}
	}

	om, stopObservability, err := startObservability(cfg, logger)
	if err != nil {
		return err
	}
	defer stopObservability()

	ctrl, _ := newSessionController(cfg, logger, om)

	operation := func(ctx context.Context, jd types.Attachment, resumes []types.Attachment) (formatters.MatchOutput, error) {
		if err := ctrl.Submit(ctx, matchOpts.submission(cmd, jd, resumes)); err != nil {
			return formatters.MatchOutput{}, userFacing(err)
		}
		ctrl.SetShowAll(matchOpts.showAll)
		return currentOutput(ctrl)
	}

	_, err = common.RunUploadCommand(ctx, logger, common.UploadCommand{
		Output:             matchOpts.output,
		MaxFileSize:        cfg.App.MaxFileSize,
		JobDescriptionPath: matchOpts.jobDescription,
		ResumePaths:        args,
	}, operation)
	if err != nil {
		return err
	}

	if matchOpts.reportPath != "" {
		path, err := exportReport(ctx, ctrl, logger, om, matchOpts.reportPath, reportFormat)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Report saved to %s\n", path)
	}

	logger.Info("Match completed successfully")
	return nil
}

// currentOutput bundles the ranked view and heatmap of a Ready controller
func currentOutput(ctrl *session.Controller) (formatters.MatchOutput, error) {
	view, err := ctrl.RankedView()
	if err != nil {
		return formatters.MatchOutput{}, err
	}
	heatmap, err := ctrl.Heatmap()
	if err != nil {
		return formatters.MatchOutput{}, err
	}
	return formatters.MatchOutput{Results: view, Heatmap: heatmap}, nil
}

// exportReport writes the full report to path. A directory path gets the fixed file name.
func exportReport(ctx context.Context, ctrl *session.Controller, logger *errors.Logger, om *observability.ObservabilityManager, path string, f report.Format) (string, error) {
	var buf bytes.Buffer
	name, err := ctrl.Export(&buf, f)
	if err != nil {
		return "", err
	}

	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		path = filepath.Join(path, name)
	}

	if err := common.NewFileProcessor(logger, 0).WriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	om.RecordBusinessMetric(ctx, observability.MetricReportExported, 1)
	return path, nil
}

// userFacing prefixes err with the notice a user would see for it
func userFacing(err error) error {
	return fmt.Errorf("%s: %w", session.NoticeFor(err).Message, err)
}
