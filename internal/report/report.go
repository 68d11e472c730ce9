package report

import (
	"fmt"
	"io"
	"strconv"

	"rezscan/internal/errors"
	"rezscan/internal/results"
	"rezscan/internal/types"
)

const (
	// Title heads every exported report
	Title = "Detailed Match Table"
	// DefaultBaseName is the report file name without extension
	DefaultBaseName = "detailed_match_table"
	// DefaultFileName is the name offered for the default PDF download
	DefaultFileName = DefaultBaseName + ".pdf"
)

// Columns is the fixed report column order
var Columns = []string{"Rank", "Resume Name", "Cosine Similarity", "Euclidean Score", "Match %"}

// Row is one flattened, string formatted match
type Row struct {
	Rank      string `json:"rank"`
	Name      string `json:"resume_name"`
	Cosine    string `json:"cosine_similarity"`
	Euclidean string `json:"euclidean_score"`
	Match     string `json:"match_percent"`
}

// Cells returns the row in column order
func (r Row) Cells() []string {
	return []string{r.Rank, r.Name, r.Cosine, r.Euclidean, r.Match}
}

// Document is a titled single table
type Document struct {
	Title   string   `json:"title"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Serialize flattens every match into report rows in service order. The report
// always covers the full list, whatever window the table is showing.
func Serialize(matches []types.MatchResult, resolve results.NameResolver) Document {
	rows := make([]Row, 0, len(matches))
	for _, row := range results.RankRows(matches, resolve, results.All()) {
		rows = append(rows, Row{
			Rank:      strconv.Itoa(row.Rank),
			Name:      row.Name,
			Cosine:    row.CosineText,
			Euclidean: row.EuclideanText,
			Match:     row.MatchText,
		})
	}

	columns := make([]string, len(Columns))
	copy(columns, Columns)

	return Document{
		Title:   Title,
		Columns: columns,
		Rows:    rows,
	}
}

// Format is a report output format
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// SupportedFormats lists every format Render accepts
var SupportedFormats = []Format{FormatPDF, FormatCSV, FormatMarkdown}

// ParseFormat validates a user supplied format name. Empty means PDF.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported report format '%s'. Supported formats: %v", name, SupportedFormats), nil)
	}
}

// Extension returns the file extension including the dot
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	default:
		return ".pdf"
	}
}

// ContentType returns the MIME type served for downloads
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "application/pdf"
	}
}

// FileName builds the deterministic download name for a format
func FileName(baseName string, f Format) string {
	if baseName == "" {
		baseName = DefaultBaseName
	}
	return baseName + f.Extension()
}

// Render writes doc to w in the given format
func Render(w io.Writer, doc Document, f Format) error {
	var err error
	switch f {
	case FormatPDF:
		err = WritePDF(w, doc)
	case FormatCSV:
		err = WriteCSV(w, doc)
	case FormatMarkdown:
		err = WriteMarkdown(w, doc)
	default:
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported report format '%s'", f), nil)
	}
	if err != nil {
		return errors.NewIOError(errors.ErrCodeReportRenderFailed,
			fmt.Sprintf("Failed to render %s report", f), err)
	}
	return nil
}
