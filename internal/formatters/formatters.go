package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"rezscan/internal/report"
	"rezscan/internal/results"
	"rezscan/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// MatchOutput bundles everything the match command prints
type MatchOutput struct {
	Results results.RankedView `json:"results"`
	Heatmap results.Matrix     `json:"heatmap"`
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "MatchOutput", &MatchTextFormatter{})
	registry.RegisterFormatter("markdown", "MatchOutput", &MatchMarkdownFormatter{})
	registry.RegisterFormatter("text", "RankedView", &RankedViewTextFormatter{})
	registry.RegisterFormatter("markdown", "RankedView", &RankedViewMarkdownFormatter{})
	registry.RegisterFormatter("text", "Matrix", &HeatmapTextFormatter{})
	registry.RegisterFormatter("markdown", "Matrix", &HeatmapMarkdownFormatter{})
	registry.RegisterFormatter("text", "HealthStatus", &HealthTextFormatter{})
	registry.RegisterFormatter("markdown", "HealthStatus", &HealthTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case MatchOutput:
		return "MatchOutput"
	case results.RankedView:
		return "RankedView"
	case results.Matrix:
		return "Matrix"
	case types.HealthStatus, *types.HealthStatus:
		return "HealthStatus"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// Heatmap cell glyphs
const (
	Present = "✓"
	Absent  = "✗"
)

// MatchTextFormatter prints summary, ranked table and heatmap for a terminal
type MatchTextFormatter struct{}

func (mtf *MatchTextFormatter) Format(data any) (string, error) {
	out, ok := data.(MatchOutput)
	if !ok {
		return "", fmt.Errorf("expected MatchOutput, got %T", data)
	}

	var output strings.Builder
	writeSummaryText(&output, out.Results.Summary)
	output.WriteString("\n")
	writeRankedText(&output, out.Results)
	output.WriteString("\n")
	writeHeatmapText(&output, out.Heatmap)
	return output.String(), nil
}

func (mtf *MatchTextFormatter) SupportedType() string {
	return "MatchOutput"
}

// MatchMarkdownFormatter renders the match output as a markdown document
type MatchMarkdownFormatter struct{}

func (mmf *MatchMarkdownFormatter) Format(data any) (string, error) {
	out, ok := data.(MatchOutput)
	if !ok {
		return "", fmt.Errorf("expected MatchOutput, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Analysis Results\n\n")
	writeSummaryMarkdown(&output, out.Results.Summary)
	output.WriteString("\n")
	writeRankedMarkdown(&output, out.Results)
	output.WriteString("\n")
	writeHeatmapMarkdown(&output, out.Heatmap)
	return output.String(), nil
}

func (mmf *MatchMarkdownFormatter) SupportedType() string {
	return "MatchOutput"
}

// RankedViewTextFormatter prints just the ranked table
type RankedViewTextFormatter struct{}

func (rtf *RankedViewTextFormatter) Format(data any) (string, error) {
	view, ok := data.(results.RankedView)
	if !ok {
		return "", fmt.Errorf("expected RankedView, got %T", data)
	}
	var output strings.Builder
	writeRankedText(&output, view)
	return output.String(), nil
}

func (rtf *RankedViewTextFormatter) SupportedType() string {
	return "RankedView"
}

// RankedViewMarkdownFormatter renders the ranked table in markdown
type RankedViewMarkdownFormatter struct{}

func (rmf *RankedViewMarkdownFormatter) Format(data any) (string, error) {
	view, ok := data.(results.RankedView)
	if !ok {
		return "", fmt.Errorf("expected RankedView, got %T", data)
	}
	var output strings.Builder
	writeRankedMarkdown(&output, view)
	return output.String(), nil
}

func (rmf *RankedViewMarkdownFormatter) SupportedType() string {
	return "RankedView"
}

// HeatmapTextFormatter prints the skill matrix
type HeatmapTextFormatter struct{}

func (htf *HeatmapTextFormatter) Format(data any) (string, error) {
	m, ok := data.(results.Matrix)
	if !ok {
		return "", fmt.Errorf("expected Matrix, got %T", data)
	}
	var output strings.Builder
	writeHeatmapText(&output, m)
	return output.String(), nil
}

func (htf *HeatmapTextFormatter) SupportedType() string {
	return "Matrix"
}

// HeatmapMarkdownFormatter renders the skill matrix in markdown
type HeatmapMarkdownFormatter struct{}

func (hmf *HeatmapMarkdownFormatter) Format(data any) (string, error) {
	m, ok := data.(results.Matrix)
	if !ok {
		return "", fmt.Errorf("expected Matrix, got %T", data)
	}
	var output strings.Builder
	writeHeatmapMarkdown(&output, m)
	return output.String(), nil
}

func (hmf *HeatmapMarkdownFormatter) SupportedType() string {
	return "Matrix"
}

// HealthTextFormatter prints the scoring service health
type HealthTextFormatter struct{}

func (htf *HealthTextFormatter) Format(data any) (string, error) {
	var status types.HealthStatus
	switch v := data.(type) {
	case types.HealthStatus:
		status = v
	case *types.HealthStatus:
		if v == nil {
			return "", fmt.Errorf("expected HealthStatus, got nil")
		}
		status = *v
	default:
		return "", fmt.Errorf("expected HealthStatus, got %T", data)
	}

	if status.Message == "" {
		return fmt.Sprintf("Scoring service: %s\n", status.Status), nil
	}
	return fmt.Sprintf("Scoring service: %s (%s)\n", status.Status, status.Message), nil
}

func (htf *HealthTextFormatter) SupportedType() string {
	return "HealthStatus"
}

func writeSummaryText(output *strings.Builder, s results.Summary) {
	output.WriteString("=== ANALYSIS RESULTS ===\n")
	if s.Message != "" {
		output.WriteString(s.Message)
		output.WriteString("\n")
	}
	output.WriteString(fmt.Sprintf("Total Resumes: %d\n", s.TotalMatches))
	output.WriteString(fmt.Sprintf("Average Score: %s\n", results.FormatPercent(s.AverageScore)))
	output.WriteString(fmt.Sprintf("Score Distribution: High %d, Medium %d, Low %d\n",
		s.Distribution.High, s.Distribution.Medium, s.Distribution.Low))
}

func writeSummaryMarkdown(output *strings.Builder, s results.Summary) {
	if s.Message != "" {
		output.WriteString(fmt.Sprintf("_%s_\n\n", s.Message))
	}
	output.WriteString(fmt.Sprintf("- **Total Resumes:** %d\n", s.TotalMatches))
	output.WriteString(fmt.Sprintf("- **Average Score:** %s\n", results.FormatPercent(s.AverageScore)))
	output.WriteString(fmt.Sprintf("- **Score Distribution:** High %d, Medium %d, Low %d\n",
		s.Distribution.High, s.Distribution.Medium, s.Distribution.Low))
}

func writeRankedText(output *strings.Builder, view results.RankedView) {
	output.WriteString("=== " + strings.ToUpper(report.Title) + " ===\n")
	output.WriteString(view.Caption)
	output.WriteString("\n\n")

	tw := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(report.Columns, "\t"))
	for _, row := range view.Rows {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", row.Rank, row.Name, row.CosineText, row.EuclideanText, row.MatchText)
	}
	_ = tw.Flush()

	if view.HasMore {
		output.WriteString(fmt.Sprintf("\n%d of %d matches shown\n", len(view.Rows), view.Total))
	}
}

func writeRankedMarkdown(output *strings.Builder, view results.RankedView) {
	output.WriteString("## " + report.Title + "\n\n")
	output.WriteString(view.Caption)
	output.WriteString("\n\n")
	writeMarkdownRow(output, report.Columns)
	writeMarkdownRow(output, separators(len(report.Columns)))
	for _, row := range view.Rows {
		writeMarkdownRow(output, []string{fmt.Sprint(row.Rank), row.Name, row.CosineText, row.EuclideanText, row.MatchText})
	}
	if view.HasMore {
		output.WriteString(fmt.Sprintf("\n%d of %d matches shown\n", len(view.Rows), view.Total))
	}
}

func writeHeatmapText(output *strings.Builder, m results.Matrix) {
	output.WriteString("=== SKILL MATCH COMPARISON ===\n")
	if m.NoData() {
		output.WriteString("No skill data available for these matches\n")
		return
	}

	tw := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
	header := append([]string{"Resume"}, m.Columns()...)
	header = append(header, "Matched")
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, row := range m.Rows() {
		_, _ = fmt.Fprintln(tw, strings.Join(heatmapCells(m, i, row), "\t"))
	}
	_ = tw.Flush()
}

func writeHeatmapMarkdown(output *strings.Builder, m results.Matrix) {
	output.WriteString("## Skill Match Comparison\n\n")
	if m.NoData() {
		output.WriteString("No skill data available for these matches\n")
		return
	}

	header := append([]string{"Resume"}, m.Columns()...)
	header = append(header, "Matched")
	writeMarkdownRow(output, header)
	writeMarkdownRow(output, separators(len(header)))
	for i, row := range m.Rows() {
		writeMarkdownRow(output, heatmapCells(m, i, row))
	}
}

func heatmapCells(m results.Matrix, i int, row results.MatrixRow) []string {
	cells := make([]string, 0, len(row.Presence)+2)
	cells = append(cells, row.Label)
	for _, present := range row.Presence {
		if present {
			cells = append(cells, Present)
		} else {
			cells = append(cells, Absent)
		}
	}
	return append(cells, fmt.Sprintf("%d/%d", m.PresentCount(i), m.ColumnCount()))
}

func writeMarkdownRow(output *strings.Builder, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	output.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
}

func separators(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "---"
	}
	return out
}

// GlobalRegistry is the shared formatter registry
var GlobalRegistry = NewFormatterRegistry()
