package history

import (
	"context"
	"errors"
	"regexp"
	"strconv"

	"github.com/oceanbench/runsummary/internal/gitvc"
)

// ErrNoRuns indicates the history contains no run-boundary commits.
var ErrNoRuns = errors.New("no run-boundary commits found")

// DefaultPattern matches the payu convention of committing
// `<timestamp>: Run <n>` at the end of each run. The first capture group,
// when present, supplies the run number.
var DefaultPattern = regexp.MustCompile(`\bRun (\d+)$`)

// Scanner identifies run-boundary commits in a control directory.
// The boundary convention is a plain text heuristic, so Pattern is
// configurable rather than fixed.
type Scanner struct {
	Repo    *gitvc.Repo
	Pattern *regexp.Regexp
}

// NewScanner returns a Scanner using pattern, or DefaultPattern when nil.
func NewScanner(repo *gitvc.Repo, pattern *regexp.Regexp) *Scanner {
	if pattern == nil {
		pattern = DefaultPattern
	}
	return &Scanner{Repo: repo, Pattern: pattern}
}

// Scan walks the commit history oldest-first and returns one Run per
// boundary commit, with contiguous 1-based indices. Returns ErrNoRuns when
// no commit matches the pattern.
func (s *Scanner) Scan(ctx context.Context) ([]*Run, error) {
	commits, err := s.Repo.Log(ctx)
	if err != nil {
		return nil, err
	}

	var runs []*Run
	for _, c := range commits {
		m := s.Pattern.FindStringSubmatch(firstLine(c.Message))
		if m == nil {
			continue
		}
		number := -1
		if len(m) > 1 {
			if n, err := strconv.Atoi(m[1]); err == nil {
				number = n
			}
		}
		runs = append(runs, &Run{
			Index:  len(runs) + 1,
			Number: number,
			Commit: c,
		})
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return runs, nil
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}

// atoiLoose parses an integer that may be written in float form, as
// namelist timesteps often are (e.g. "5400.0").
func atoiLoose(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
