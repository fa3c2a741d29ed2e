// Package joblog parses PBS job epilogue logs and locates the log artifacts
// belonging to an experiment.
//
// A typical epilogue block looks like:
//
//	git commit -am "2018-10-08 22:32:26: Run 137"
//	======================================================================
//	                  Resource Usage on 2018-10-08 22:32:36:
//	   Job Id:             949753.r-man2
//	   Project:            x77
//	   Exit Status:        0
//	   Service Units:      20440.40
//	   NCPUs Requested:    5968                   NCPUs Used: 5968
//	                                           CPU Time Used: 20196:31:07
//	   Memory Requested:   11.66TB               Memory Used: 2.61TB
//	   Walltime requested: 05:00:00            Walltime Used: 03:25:30
//	   JobFS requested:    36.43GB                JobFS used: 1.0KB
//	======================================================================
package joblog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Record holds the fields parsed from one PBS log. Numeric fields are -1
// when the corresponding line was not found, so a partially written log
// still yields a usable record.
type Record struct {
	JobID                    int
	Project                  string
	ExitStatus               int
	ServiceUnits             float64
	NCPUsRequested           int
	NCPUsUsed                int
	CPUTimeSeconds           int64
	MemoryRequestedBytes     int64
	MemoryUsedBytes          int64
	WalltimeRequestedSeconds int64
	WalltimeUsedSeconds      int64
	JobFSRequestedBytes      int64
	JobFSUsedBytes           int64

	// RunNumber is parsed from the "git commit" echo line. A run with this
	// number may still have failed; callers must check ExitStatus.
	RunNumber int

	// CompletionDate is the "Resource Usage on" timestamp in ISO form,
	// without a time zone (the log does not record one).
	CompletionDate string

	// SourcePath is the log file the record was parsed from.
	SourcePath string
}

// search keys and the value parsers applied to the text after each key.
// Later matches in the file replace earlier ones.
var fieldSetters = []struct {
	key string
	set func(*Record, string) error
}{
	{"git commit", func(r *Record, s string) error { return setRunNumber(r, s) }},
	{"Resource Usage on", func(r *Record, s string) error { return setCompletion(r, s) }},
	{"Job Id", func(r *Record, s string) (err error) { r.JobID, err = parseJobID(s); return }},
	{"Project", func(r *Record, s string) error { r.Project = firstField(s); return nil }},
	{"Exit Status", func(r *Record, s string) (err error) { r.ExitStatus, err = strconv.Atoi(firstField(s)); return }},
	{"Service Units", func(r *Record, s string) (err error) { r.ServiceUnits, err = strconv.ParseFloat(firstField(s), 64); return }},
	{"NCPUs Requested", func(r *Record, s string) (err error) { r.NCPUsRequested, err = strconv.Atoi(firstField(s)); return }},
	{"NCPUs Used", func(r *Record, s string) (err error) { r.NCPUsUsed, err = strconv.Atoi(firstField(s)); return }},
	{"CPU Time Used", func(r *Record, s string) (err error) { r.CPUTimeSeconds, err = parseHMS(firstField(s)); return }},
	{"Memory Requested", func(r *Record, s string) (err error) { r.MemoryRequestedBytes, err = parseBytes(firstField(s)); return }},
	{"Memory Used", func(r *Record, s string) (err error) { r.MemoryUsedBytes, err = parseBytes(firstField(s)); return }},
	{"Walltime requested", func(r *Record, s string) (err error) { r.WalltimeRequestedSeconds, err = parseHMS(firstField(s)); return }},
	{"Walltime Used", func(r *Record, s string) (err error) { r.WalltimeUsedSeconds, err = parseHMS(firstField(s)); return }},
	{"JobFS requested", func(r *Record, s string) (err error) { r.JobFSRequestedBytes, err = parseBytes(firstField(s)); return }},
	{"JobFS used", func(r *Record, s string) (err error) { r.JobFSUsedBytes, err = parseBytes(firstField(s)); return }},
}

// NewRecord returns a Record with all numeric fields marked missing.
func NewRecord() *Record {
	return &Record{
		JobID:                    -1,
		ExitStatus:               -1,
		ServiceUnits:             -1,
		NCPUsRequested:           -1,
		NCPUsUsed:                -1,
		CPUTimeSeconds:           -1,
		MemoryRequestedBytes:     -1,
		MemoryUsedBytes:          -1,
		WalltimeRequestedSeconds: -1,
		WalltimeUsedSeconds:      -1,
		JobFSRequestedBytes:      -1,
		JobFSUsedBytes:           -1,
		RunNumber:                -1,
	}
}

// Parse scans a PBS log. Unparseable individual fields are skipped rather
// than failing the whole record; a log with no recognizable fields at all is
// an error.
func Parse(r io.Reader) (*Record, error) {
	rec := NewRecord()
	found := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		for _, f := range fieldSetters {
			_, rest, ok := strings.Cut(line, f.key)
			if !ok {
				continue
			}
			rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), ":"))
			if err := f.set(rec, rest); err == nil {
				found = true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no PBS resource-usage fields found")
	}
	return rec, nil
}

// ParseFile parses the log at path and records its origin.
func ParseFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rec.SourcePath = path
	return rec, nil
}

// runNumberPattern matches the run number in the payu commit echo line,
// e.g. `git commit -am "2018-10-08 22:32:26: Run 137"`.
var runNumberPattern = regexp.MustCompile(`Run (\d+)"?\s*$`)

func setRunNumber(r *Record, rest string) error {
	m := runNumberPattern.FindStringSubmatch(rest)
	if m == nil {
		return fmt.Errorf("no run number in %q", rest)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return err
	}
	r.RunNumber = n
	return nil
}

// completionPattern captures the "Resource Usage on YYYY-MM-DD HH:MM:SS:" date.
var completionPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2})`)

func setCompletion(r *Record, rest string) error {
	m := completionPattern.FindStringSubmatch(rest)
	if m == nil {
		return fmt.Errorf("no timestamp in %q", rest)
	}
	r.CompletionDate = m[1] + "T" + m[2]
	return nil
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// parseJobID extracts the numeric job id from "949753.r-man2".
func parseJobID(s string) (int, error) {
	id, _, _ := strings.Cut(firstField(s), ".")
	return strconv.Atoi(id)
}

// parseHMS converts hh:mm:ss (hours may exceed two digits) to seconds.
func parseHMS(s string) (int64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("not a hh:mm:ss duration: %q", s)
	}
	var total int64
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return 0, err
		}
		total = total*60 + n
	}
	return total, nil
}

var byteUnits = map[string]int64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
}

// parseBytes converts a PBS size such as "11.66TB" to bytes, assuming
// binary prefixes as the scheduler does.
func parseBytes(s string) (int64, error) {
	num := strings.TrimRight(s, "BKMGT")
	unit, ok := byteUnits[s[len(num):]]
	if !ok {
		return 0, fmt.Errorf("unknown size unit in %q", s)
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	return int64(f*float64(unit) + 0.5), nil
}

// Discover finds PBS log artifacts named <jobname>.o<jobid> under each of
// the given directories. Duplicate jobids keep the last directory's file, so
// synced copies supersede archived ones.
func Discover(jobname string, dirs ...string) []string {
	byJob := map[string]string{}
	var order []string
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, jobname+".o*"))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			base := filepath.Base(m)
			if _, seen := byJob[base]; !seen {
				order = append(order, base)
			}
			byJob[base] = m
		}
	}
	sort.Strings(order)
	paths := make([]string, 0, len(order))
	for _, base := range order {
		paths = append(paths, byJob[base])
	}
	return paths
}
