// Package gitvc wraps the git binary for read-only access to a control
// directory's history. Every call shells out to git; no repository state is
// ever mutated.
package gitvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNotARepo indicates the directory is not inside a git work tree.
var ErrNotARepo = errors.New("not a git repository")

// Commit is one entry from the git log.
type Commit struct {
	Hash    string
	Author  string
	Date    time.Time
	Message string
}

// ShortHash returns the abbreviated commit hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 8 {
		return c.Hash[:8]
	}
	return c.Hash
}

// Repo provides read-only git operations rooted at Dir.
type Repo struct {
	Dir string
}

// Open validates that dir is a git work tree and returns a Repo for it.
func Open(ctx context.Context, dir string) (*Repo, error) {
	r := &Repo{Dir: dir}
	ok, err := r.IsRepo(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotARepo)
	}
	return r, nil
}

// run executes git with args in the repo directory and returns stdout.
func (r *Repo) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git %s: %s", args[0], msg)
	}
	return stdout.Bytes(), nil
}

// IsRepo reports whether Dir is inside a git work tree.
func (r *Repo) IsRepo(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = r.Dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(string(out)) == "true", nil
}

// Branch returns the current branch name.
func (r *Repo) Branch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// logRecordSep separates records in the log pretty format. The unit
// separator cannot appear in commit metadata, unlike tabs or newlines.
const (
	logFieldSep  = "\x1f"
	logRecordSep = "\x1e"
)

// Log returns the full commit history of the repository, oldest first.
// Multi-line commit messages are preserved.
func (r *Repo) Log(ctx context.Context) ([]Commit, error) {
	format := strings.Join([]string{"%H", "%an", "%aI", "%B"}, logFieldSep)
	out, err := r.run(ctx, "log", "--reverse", "--pretty=format:"+format+logRecordSep)
	if err != nil {
		return nil, err
	}

	var commits []Commit
	for _, rec := range strings.Split(string(out), logRecordSep) {
		rec = strings.TrimLeft(rec, "\n")
		if rec == "" {
			continue
		}
		fields := strings.SplitN(rec, logFieldSep, 4)
		if len(fields) != 4 {
			continue
		}
		date, err := time.Parse(time.RFC3339, fields[2])
		if err != nil {
			return nil, fmt.Errorf("parse commit date %q: %w", fields[2], err)
		}
		commits = append(commits, Commit{
			Hash:    fields[0],
			Author:  fields[1],
			Date:    date,
			Message: strings.TrimSpace(fields[3]),
		})
	}
	return commits, nil
}

// ShowFile returns the contents of path as of rev.
func (r *Repo) ShowFile(ctx context.Context, rev, path string) ([]byte, error) {
	return r.run(ctx, "show", rev+":"+path)
}

// ListFiles returns all paths tracked at rev whose name ends with suffix.
// An empty suffix lists every tracked path.
func (r *Repo) ListFiles(ctx context.Context, rev, suffix string) ([]string, error) {
	out, err := r.run(ctx, "ls-tree", "-r", "--name-only", rev)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if suffix == "" || strings.HasSuffix(line, suffix) {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// DiffNameOnly returns the paths that changed between two commits.
func (r *Repo) DiffNameOnly(ctx context.Context, old, new string) ([]string, error) {
	out, err := r.run(ctx, "diff", "--name-only", old, new)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// MessagesBetween returns the commit subjects on the ancestry path from old
// (exclusive) to new (inclusive), oldest first. Returns nil when there is no
// direct ancestry path.
func (r *Repo) MessagesBetween(ctx context.Context, old, new string) ([]string, error) {
	out, err := r.run(ctx, "log", "--reverse", "--ancestry-path",
		"--pretty=format:%s", old+".."+new)
	if err != nil {
		return nil, err
	}
	var msgs []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			msgs = append(msgs, line)
		}
	}
	return msgs, nil
}

// ResolveRev resolves a revision expression to a full commit hash.
func (r *Repo) ResolveRev(ctx context.Context, rev string) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--verify", rev+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("unknown revision %q: %w", rev, err)
	}
	return strings.TrimSpace(string(out)), nil
}
