package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// WriteCSV renders doc as a header row followed by one record per match
func WriteCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(doc.Columns); err != nil {
		return err
	}
	for _, row := range doc.Rows {
		if err := cw.Write(row.Cells()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMarkdown renders doc as a titled GitHub style table
func WriteMarkdown(w io.Writer, doc Document) error {
	var b strings.Builder

	b.WriteString("# " + doc.Title + "\n\n")
	b.WriteString("| " + strings.Join(escapeCells(doc.Columns), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(doc.Columns)) + "\n")
	for _, row := range doc.Rows {
		b.WriteString("| " + strings.Join(escapeCells(row.Cells()), " | ") + " |\n")
	}

	_, err := fmt.Fprint(w, b.String())
	return err
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}
