// Package report assembles per-run output rows according to an ordered
// column specification and serializes them to CSV.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oceanbench/runsummary/internal/history"
	"github.com/oceanbench/runsummary/internal/namelist"
)

// Column is one output field: a header name and the rule that extracts its
// value from a run. Adding a column is adding an entry here, not editing
// control flow.
type Column struct {
	Name    string
	Extract func(*history.Run) string
}

// DefaultColumns returns the built-in column specification in report order.
func DefaultColumns() []Column {
	return []Column{
		{"Run number", func(r *history.Run) string { return intOrBlank(r.Number) }},
		{"Run start", func(r *history.Run) string { return r.ModelStart }},
		{"Run end", func(r *history.Run) string { return r.ModelEnd }},
		{"Run length (years, months, days)", runLength},
		{"Job Id", jobInt(func(r *history.Run) int { return r.Job.JobID })},
		{"Run completion date", jobField(func(r *history.Run) string { return r.Job.CompletionDate })},
		{"Exit status", jobInt(func(r *history.Run) int { return r.Job.ExitStatus })},
		{"Queue", configField(func(c *history.ExpConfig) string { return c.Queue })},
		{"Service Units", serviceUnits},
		{"Walltime Used (s)", jobInt64(func(r *history.Run) int64 { return r.Job.WalltimeUsedSeconds })},
		{"NCPUs Used", jobInt(func(r *history.Run) int { return r.Job.NCPUsUsed })},
		{"Memory Used (bytes)", jobInt64(func(r *history.Run) int64 { return r.Job.MemoryUsedBytes })},
		{"Timestep (s)", func(r *history.Run) string { return intOrBlank(r.Timestep()) }},
		{"Git hash", func(r *history.Run) string { return r.Commit.Hash }},
		{"Commit date", func(r *history.Run) string { return r.Commit.Date.Format("2006-01-02T15:04:05-07:00") }},
		{"Commit message", func(r *history.Run) string { return r.Commit.Message }},
		{"Changed files since previous run", func(r *history.Run) string { return strings.Join(r.ChangedFiles, ", ") }},
		{"Commit messages since previous run", func(r *history.Run) string { return strings.Join(r.Messages, "; ") }},
	}
}

// Select returns the columns named in names, in that order. Columns present
// in the data but not named are omitted; names matching no known column are
// an error.
func Select(all []Column, names []string) ([]Column, error) {
	byName := make(map[string]Column, len(all))
	for _, c := range all {
		byName[c.Name] = c
	}
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown column %q (see 'runsummary columns')", name)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// WithNamelistColumns appends one column per namelist variable that changed
// anywhere in the run sequence, alphabetized by file, group, and variable.
// Each cell holds the run's value for that variable, or blank when absent.
func WithNamelistColumns(cols []Column, runs []*history.Run) []Column {
	diffs := make([][]namelist.Change, 0, len(runs))
	for _, r := range runs {
		diffs = append(diffs, r.Diff)
	}
	for _, key := range namelist.Union(diffs...) {
		key := key
		cols = append(cols, Column{
			Name: key.File + " -> " + key.Group + " -> " + key.Var,
			Extract: func(r *history.Run) string {
				v, _ := r.Namelists.Lookup(key.File, key.Group, key.Var)
				return v
			},
		})
	}
	return cols
}

// Row evaluates the columns over one run. The serialized field order is
// exactly the column order, regardless of the underlying data's layout.
func Row(cols []Column, r *history.Run) []string {
	row := make([]string, len(cols))
	for i, c := range cols {
		row[i] = c.Extract(r)
	}
	return row
}

func runLength(r *history.Run) string {
	if r.Config == nil {
		return ""
	}
	rt := r.Config.Calendar.Runtime
	if rt.Years == 0 && rt.Months == 0 && rt.Days == 0 {
		return ""
	}
	return fmt.Sprintf("%d, %d, %d", rt.Years, rt.Months, rt.Days)
}

func serviceUnits(r *history.Run) string {
	if r.Job == nil || r.Job.ServiceUnits < 0 {
		return ""
	}
	return strconv.FormatFloat(r.Job.ServiceUnits, 'f', 2, 64)
}

func jobField(get func(*history.Run) string) func(*history.Run) string {
	return func(r *history.Run) string {
		if r.Job == nil {
			return ""
		}
		return get(r)
	}
}

func jobInt(get func(*history.Run) int) func(*history.Run) string {
	return func(r *history.Run) string {
		if r.Job == nil {
			return ""
		}
		return intOrBlank(get(r))
	}
}

func jobInt64(get func(*history.Run) int64) func(*history.Run) string {
	return func(r *history.Run) string {
		if r.Job == nil {
			return ""
		}
		return int64OrBlank(get(r))
	}
}

func configField(get func(*history.ExpConfig) string) func(*history.Run) string {
	return func(r *history.Run) string {
		if r.Config == nil {
			return ""
		}
		return get(r.Config)
	}
}

func intOrBlank(n int) string {
	if n < 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func int64OrBlank(n int64) string {
	if n < 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}
