package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/oceanbench/runsummary/internal/history"
)

// DirInfo describes one summarized control directory for the preamble.
type DirInfo struct {
	Path     string
	Branch   string
	SyncPath string
}

// Preamble holds the report provenance rows written ahead of the header.
type Preamble struct {
	GeneratedAt time.Time
	Dirs        []DirInfo
}

// WriteCSV serializes the report: preamble rows, one header row of column
// names, then one row per run in sequence order. Runs from multiple control
// directories arrive pre-concatenated in command-line order.
func WriteCSV(w io.Writer, cols []Column, runs []*history.Run, pre *Preamble) error {
	cw := csv.NewWriter(w)

	if pre != nil {
		if err := writePreamble(cw, pre); err != nil {
			return err
		}
	}

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range runs {
		if err := cw.Write(Row(cols, r)); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func writePreamble(cw *csv.Writer, pre *Preamble) error {
	rows := [][]string{
		{"Summary report generated by runsummary"},
		{"report generated:", pre.GeneratedAt.Format(time.RFC3339)},
	}
	for _, d := range pre.Dirs {
		row := []string{"control directory:", d.Path, "git branch:", d.Branch}
		if d.SyncPath != "" {
			row = append(row, "sync path:", d.SyncPath)
		}
		rows = append(rows, row)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}
