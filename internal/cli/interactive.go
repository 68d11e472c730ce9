package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"rezscan/internal/common"
	"rezscan/internal/config"
	"rezscan/internal/errors"
	"rezscan/internal/formatters"
	"rezscan/internal/observability"
	"rezscan/internal/report"
	"rezscan/internal/session"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

// Menu entries of the interactive session
const (
	actionShowAll   = "Show all matches"
	actionShowTop   = "Show top matches"
	actionHeatmap   = "Skill match comparison"
	actionExport    = "Export report"
	actionNew       = "New analysis"
	actionQuit      = "Quit"
	progressBarSize = 30
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive --jd [job-description-file] [resume-file...]",
	Short: "Explore match results from a menu",
	Long: `Score the given files, then explore the results from a menu: switch
between the top matches and the full list, view the skill comparison,
export the report, or start a new analysis with other files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInteractive,
}

var interactiveOpts matchOptions

func init() {
	addSubmissionFlags(interactiveCmd, &interactiveOpts)
}

// interactiveSession drives one controller from a terminal menu
type interactiveSession struct {
	cmd    *cobra.Command
	cfg    *config.Config
	logger *errors.Logger
	om     *observability.ObservabilityManager
	ctrl   *session.Controller
	files  *common.FileProcessor
	out    io.Writer
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	om, stopObservability, err := startObservability(cfg, logger)
	if err != nil {
		return err
	}
	defer stopObservability()

	ctrl, _ := newSessionController(cfg, logger, om)
	s := &interactiveSession{
		cmd:    cmd,
		cfg:    cfg,
		logger: logger,
		om:     om,
		ctrl:   ctrl,
		files:  common.NewFileProcessor(logger, cfg.App.MaxFileSize),
		out:    cmd.OutOrStdout(),
	}

	if err := s.analyze(interactiveOpts.jobDescription, args); err != nil {
		s.report(err, "Initial analysis failed")
	}
	return s.loop()
}

// analyze reads the files and submits them, drawing the progress bar while waiting
func (s *interactiveSession) analyze(jdPath string, resumePaths []string) error {
	jd, err := s.files.ReadAttachment(jdPath)
	if err != nil {
		return err
	}
	resumes, err := s.files.ReadAttachments(resumePaths...)
	if err != nil {
		return err
	}

	done, err := s.ctrl.SubmitAsync(s.cmd.Context(), interactiveOpts.submission(s.cmd, jd, resumes))
	if err != nil {
		return userFacing(err)
	}

	ticker := time.NewTicker(s.cfg.Progress.Interval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			s.drawProgress(s.ctrl.Snapshot().Progress)
			fmt.Fprintln(s.out)
			if err != nil {
				return userFacing(err)
			}
			current, err := currentOutput(s.ctrl)
			if err != nil {
				return err
			}
			return s.show(current)
		case <-ticker.C:
			s.drawProgress(s.ctrl.Snapshot().Progress)
		}
	}
}

func (s *interactiveSession) drawProgress(p int) {
	filled := p * progressBarSize / 100
	fmt.Fprintf(s.out, "\rAnalyzing... [%s%s] %3d%%",
		strings.Repeat("#", filled), strings.Repeat(" ", progressBarSize-filled), p)
}

// show prints data with the text formatter
func (s *interactiveSession) show(data any) error {
	text, err := formatters.GlobalRegistry.Format(data, "text")
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, text)
	return nil
}

// menu lists the actions valid for the current results. Without results,
// after a failed analysis, only a new analysis or quitting make sense.
func (s *interactiveSession) menu() []string {
	view, err := s.ctrl.RankedView()
	if err != nil {
		return []string{actionNew, actionQuit}
	}
	items := []string{}
	if view.Toggleable {
		if view.ShowingAll {
			items = append(items, actionShowTop)
		} else {
			items = append(items, actionShowAll)
		}
	}
	return append(items, actionHeatmap, actionExport, actionNew, actionQuit)
}

func (s *interactiveSession) loop() error {
	for {
		items := s.menu()
		sel := promptui.Select{Label: "What next", Items: items, Size: len(items)}
		_, choice, err := sel.Run()
		if stderrors.Is(err, promptui.ErrInterrupt) || stderrors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.handle(choice); err != nil {
			if stderrors.Is(err, errQuit) {
				return nil
			}
			// Menu actions never end the session on failure
			s.report(err, "Interactive action failed", "action", choice)
		}
	}
}

var errQuit = stderrors.New("quit")

// report prints the user-facing notice for err and logs the details
func (s *interactiveSession) report(err error, message string, args ...any) {
	fmt.Fprintf(s.out, "%s\n", session.NoticeFor(err).Message)
	s.logger.LogError(err, message, args...)
}

func (s *interactiveSession) handle(choice string) error {
	switch choice {
	case actionShowAll, actionShowTop:
		s.ctrl.ToggleShowAll()
		view, err := s.ctrl.RankedView()
		if err != nil {
			return err
		}
		return s.show(view)
	case actionHeatmap:
		heatmap, err := s.ctrl.Heatmap()
		if err != nil {
			return err
		}
		return s.show(heatmap)
	case actionExport:
		return s.export()
	case actionNew:
		return s.newAnalysis()
	default:
		return errQuit
	}
}

func (s *interactiveSession) export() error {
	formats := make([]string, len(report.SupportedFormats))
	for i, f := range report.SupportedFormats {
		formats[i] = string(f)
	}
	sel := promptui.Select{Label: "Report format", Items: formats}
	_, name, err := sel.Run()
	if err != nil {
		return err
	}
	format, err := common.ValidateReportFormat(name, s.cfg.Report.DefaultFormat)
	if err != nil {
		return err
	}

	prompt := promptui.Prompt{Label: "Save to (file or directory)", Default: "."}
	path, err := prompt.Run()
	if err != nil {
		return err
	}

	saved, err := exportReport(s.cmd.Context(), s.ctrl, s.logger, s.om, path, format)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Report saved to %s\n", saved)
	return nil
}

// newAnalysis resets the session and scores a new set of files
func (s *interactiveSession) newAnalysis() error {
	jdPrompt := promptui.Prompt{Label: "Job description file", Validate: fileExists}
	jdPath, err := jdPrompt.Run()
	if err != nil {
		return err
	}
	resumePrompt := promptui.Prompt{Label: "Resume files (comma separated)", Validate: filesExist}
	list, err := resumePrompt.Run()
	if err != nil {
		return err
	}

	return s.reanalyze(jdPath, list)
}

// reanalyze clears the current results and scores the files as typed at the prompts
func (s *interactiveSession) reanalyze(jdPath, resumeList string) error {
	if err := s.ctrl.Reset(); err != nil {
		return err
	}
	return s.analyze(strings.TrimSpace(jdPath), splitList(resumeList))
}

func fileExists(path string) error {
	if strings.TrimSpace(path) == "" {
		return stderrors.New("a file is required")
	}
	if _, err := os.Stat(strings.TrimSpace(path)); err != nil {
		return stderrors.New("file not found")
	}
	return nil
}

func filesExist(list string) error {
	paths := splitList(list)
	if len(paths) == 0 {
		return stderrors.New("at least one resume is required")
	}
	for _, p := range paths {
		if err := fileExists(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func splitList(list string) []string {
	var out []string
	for p := range strings.SplitSeq(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
