package history

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/oceanbench/runsummary/internal/gitvc"
	"github.com/oceanbench/runsummary/internal/joblog"
	"github.com/oceanbench/runsummary/internal/namelist"
)

// Extractor joins job-log, namelist, and configuration metadata onto a run
// sequence. Any missing or malformed artifact degrades that run's fields to
// blanks; the scan itself never aborts on per-run errors.
type Extractor struct {
	Repo       *gitvc.Repo
	ControlDir string

	// Jobname overrides the job name used to locate PBS logs. When empty it
	// is taken from config.yaml at HEAD.
	Jobname string

	// SyncScript is the name of the sync script holding the GDATADIR output
	// path. The synced copy of a log supersedes the archived one.
	SyncScript string

	Logger *slog.Logger
}

// NewExtractor returns an Extractor with the conventional defaults.
func NewExtractor(repo *gitvc.Repo, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{
		Repo:       repo,
		ControlDir: repo.Dir,
		SyncScript: "sync_output_to_gdata.sh",
		Logger:     logger,
	}
}

// Enrich fills in the metadata for every run, oldest first. The previous
// run's namelist snapshot is threaded explicitly into each diff call; no
// state is shared across runs otherwise.
func (e *Extractor) Enrich(ctx context.Context, runs []*Run) error {
	jobname := e.Jobname
	if jobname == "" {
		jobname = e.headJobname(ctx)
	}
	syncPath := e.syncPath()

	records := e.collectJobRecords(jobname, syncPath)

	var prev namelist.Set
	var prevCommit string
	for _, run := range runs {
		if run.Number >= 0 {
			run.Job = records[run.Number]
		}

		run.Namelists = e.NamelistsAt(ctx, run.Commit.Hash)
		run.Config = e.configAt(ctx, run.Commit.Hash)
		e.modelTimes(run, syncPath)

		if prevCommit != "" {
			e.gitChanges(ctx, run, prevCommit)
			run.Diff = namelist.DiffSets(prev, run.Namelists)
		}

		prev = run.Namelists
		prevCommit = run.Commit.Hash
	}
	return nil
}

// collectJobRecords parses every discovered PBS log and indexes the records
// by run number. When a run number appears more than once the record with
// the latest completion date wins, on the assumption the run was re-done.
func (e *Extractor) collectJobRecords(jobname, syncPath string) map[int]*joblog.Record {
	records := map[int]*joblog.Record{}
	if jobname == "" {
		e.Logger.Warn("no jobname available, skipping PBS log discovery")
		return records
	}

	dirs := []string{
		filepath.Join(e.ControlDir, "archive", "pbs_logs"),
		e.ControlDir,
	}
	if syncPath != "" {
		dirs = append(dirs, filepath.Join(syncPath, "pbs_logs"))
	}

	for _, path := range joblog.Discover(jobname, dirs...) {
		rec, err := joblog.ParseFile(path)
		if err != nil {
			e.Logger.Warn("skipping unparseable PBS log", "path", path, "error", err)
			continue
		}
		if rec.RunNumber < 0 {
			e.Logger.Warn("PBS log has no run number", "path", path)
			continue
		}
		if cur, ok := records[rec.RunNumber]; ok && cur.CompletionDate >= rec.CompletionDate {
			continue
		}
		records[rec.RunNumber] = rec
	}
	return records
}

// NamelistsAt reads every .nml file tracked at rev. Malformed files are
// treated as empty snapshots so their variables surface as removed in the
// next diff rather than silently vanishing.
func (e *Extractor) NamelistsAt(ctx context.Context, rev string) namelist.Set {
	set := namelist.Set{}
	paths, err := e.Repo.ListFiles(ctx, rev, ".nml")
	if err != nil {
		e.Logger.Warn("cannot list namelists", "rev", rev, "error", err)
		return set
	}
	for _, path := range paths {
		data, err := e.Repo.ShowFile(ctx, rev, path)
		if err != nil {
			e.Logger.Warn("cannot read namelist", "rev", rev, "path", path, "error", err)
			set[path] = namelist.Snapshot{}
			continue
		}
		snap, err := namelist.Parse(bytes.NewReader(data))
		if err != nil {
			e.Logger.Warn("malformed namelist", "rev", rev, "path", path, "error", err)
			snap = namelist.Snapshot{}
		}
		set[path] = snap
	}
	return set
}

func (e *Extractor) configAt(ctx context.Context, rev string) *ExpConfig {
	data, err := e.Repo.ShowFile(ctx, rev, "config.yaml")
	if err != nil {
		e.Logger.Warn("no config.yaml at commit", "rev", rev, "error", err)
		return nil
	}
	cfg, err := ParseExpConfig(data)
	if err != nil {
		e.Logger.Warn("malformed config.yaml", "rev", rev, "error", err)
		return nil
	}
	return cfg
}

// modelTimes reads the run's time_stamp.out from the first output directory
// that has one. Output directories belong to a run only when its job
// succeeded, matching the scheduler's semantics.
func (e *Extractor) modelTimes(run *Run, syncPath string) {
	if run.Job == nil || run.Job.ExitStatus != 0 || run.Number < 0 {
		return
	}
	outdir := fmt.Sprintf("output%03d", run.Number)
	candidates := []string{
		filepath.Join(e.ControlDir, "archive", outdir, "ocean", "time_stamp.out"),
	}
	if syncPath != "" {
		candidates = append([]string{
			filepath.Join(syncPath, outdir, "ocean", "time_stamp.out"),
		}, candidates...)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		start, end, err := ParseTimeStamp(path)
		if err != nil {
			e.Logger.Warn("malformed time stamp file", "path", path, "error", err)
			return
		}
		run.ModelStart, run.ModelEnd = start, end
		return
	}
}

func (e *Extractor) gitChanges(ctx context.Context, run *Run, prevCommit string) {
	files, err := e.Repo.DiffNameOnly(ctx, prevCommit, run.Commit.Hash)
	if err != nil {
		e.Logger.Warn("git diff failed", "run", run.Index, "error", err)
	} else {
		run.ChangedFiles = files
	}
	msgs, err := e.Repo.MessagesBetween(ctx, prevCommit, run.Commit.Hash)
	if err != nil {
		e.Logger.Warn("git log failed", "run", run.Index, "error", err)
	} else {
		run.Messages = msgs
	}
}

// syncPath resolves the GDATADIR output path, if the control directory has a
// sync script. Absence is normal for experiments that never sync.
func (e *Extractor) syncPath() string {
	if e.SyncScript == "" {
		return ""
	}
	dir, err := SyncPath(filepath.Join(e.ControlDir, e.SyncScript))
	if err != nil {
		e.Logger.Debug("no sync script", "error", err)
		return ""
	}
	return dir
}

func (e *Extractor) headJobname(ctx context.Context) string {
	cfg := e.configAt(ctx, "HEAD")
	if cfg == nil {
		return ""
	}
	return cfg.Jobname
}
