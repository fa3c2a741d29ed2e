// Package namelist parses Fortran namelist files into snapshots and computes
// variable-level diffs between snapshots of successive runs.
package namelist

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Snapshot is one parsed namelist file: group name -> variable -> value.
// Values keep their literal textual form; arrays are comma-joined.
// A Snapshot is never modified after parsing.
type Snapshot map[string]map[string]string

// Set maps a namelist file name (repo-relative path) to its Snapshot.
type Set map[string]Snapshot

var (
	groupStart = regexp.MustCompile(`^&(\w+)\s*$`)
	groupEnd   = regexp.MustCompile(`^/\s*$`)
	assignment = regexp.MustCompile(`^([\w%()]+)\s*=\s*(.*)$`)
)

// Parse reads a Fortran namelist. Group blocks are delimited by &name and /,
// assignments are key = value with optional trailing comma, and everything
// after an unquoted ! is a comment. Repeated groups are merged, later
// assignments replacing earlier ones.
func Parse(r io.Reader) (Snapshot, error) {
	snap := Snapshot{}
	var group string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}

		if m := groupStart.FindStringSubmatch(line); m != nil {
			group = strings.ToLower(m[1])
			if _, ok := snap[group]; !ok {
				snap[group] = map[string]string{}
			}
			continue
		}
		if groupEnd.MatchString(line) {
			group = ""
			continue
		}
		if group == "" {
			// Content outside any group block is tolerated and skipped.
			continue
		}
		if m := assignment.FindStringSubmatch(line); m != nil {
			key := strings.ToLower(m[1])
			snap[group][key] = normalizeValue(m[2])
			continue
		}
		return nil, fmt.Errorf("line %d: cannot parse %q", lineno, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// stripComment removes an unquoted ! comment from a line.
func stripComment(line string) string {
	inSingle, inDouble := false, false
	for i, c := range line {
		switch c {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '!':
			if !inSingle && !inDouble {
				return line[:i]
			}
		}
	}
	return line
}

// normalizeValue canonicalizes a namelist literal so that equal settings
// compare equal across runs: quotes stripped, logicals folded to T/F,
// array elements trimmed and comma-joined.
func normalizeValue(raw string) string {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ","))
	parts := splitArray(raw)
	for i, p := range parts {
		parts[i] = normalizeScalar(p)
	}
	return strings.Join(parts, ", ")
}

// splitArray splits a literal on commas outside quotes.
func splitArray(raw string) []string {
	var parts []string
	var cur strings.Builder
	inSingle, inDouble := false, false
	for _, c := range raw {
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case c == ',' && !inSingle && !inDouble:
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(c)
	}
	parts = append(parts, cur.String())
	return parts
}

func normalizeScalar(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	switch strings.ToLower(s) {
	case ".true.", "t", "true":
		return "T"
	case ".false.", "f", "false":
		return "F"
	}
	return s
}

// Lookup returns the value of a variable, if present.
func (s Snapshot) Lookup(group, name string) (string, bool) {
	g, ok := s[strings.ToLower(group)]
	if !ok {
		return "", false
	}
	v, ok := g[strings.ToLower(name)]
	return v, ok
}

// Lookup resolves a (file, group, var) key across the set.
func (set Set) Lookup(file, group, name string) (string, bool) {
	snap, ok := set[file]
	if !ok {
		return "", false
	}
	return snap.Lookup(group, name)
}
