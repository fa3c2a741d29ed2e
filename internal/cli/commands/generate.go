package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oceanbench/runsummary/internal/history"
	"github.com/oceanbench/runsummary/internal/report"
	"github.com/spf13/cobra"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	Outfile string
	Watch   bool
}

// NewGenerateCommand creates the generate command, the main summary
// pipeline: scan each control directory's history, extract per-run
// metadata, and write one combined CSV.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}
	cmd := &cobra.Command{
		Use:     "generate [path...]",
		Aliases: []string{"summary"},
		Short:   "Generate a CSV summary of all runs",
		Long: `Scan one or more control directories and write a CSV report with one
row per historical run.

Runs are discovered from run-boundary commits in git history. Each row
carries the job metadata parsed from the PBS log, the model start/end
times, and the namelist variables that changed since the previous run.
Missing or unparseable artifacts leave their fields blank; the scan
continues.

Multiple directories contribute contiguous row blocks in the order given.
The output file is overwritten.`,
		Example: `  # Summarize the current directory
  runsummary generate

  # Summarize two experiments into one report
  runsummary generate 1deg_jra55_ryf 025deg_jra55_ryf -o summary.csv

  # Keep the report up to date as new job logs arrive
  runsummary generate --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Outfile, "outfile", "o", "", "output CSV path (default run_summary_<dir>.csv, overwritten)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "regenerate when new job logs appear")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *GenerateOptions, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	if opts.Outfile != "" {
		cmdCtx.Cfg.Outfile = opts.Outfile
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	if opts.Watch {
		return watchAndGenerate(cmd.Context(), cmdCtx, paths)
	}
	return generateOnce(cmd.Context(), cmdCtx, paths)
}

// generateOnce runs the pipeline over every path. A path that is not a repo
// or has no boundary commits is reported and skipped; the command fails
// only when no path produced rows or the output cannot be written.
func generateOnce(ctx context.Context, cmdCtx *CommandContext, paths []string) error {
	r := cmdCtx.Renderer

	var allRuns []*history.Run
	var dirs []report.DirInfo
	for _, path := range paths {
		runs, info, err := collectDir(ctx, path, cmdCtx.Cfg, cmdCtx.Logger)
		if err != nil {
			r.Warning(fmt.Sprintf("skipping %s: %v", path, err))
			continue
		}
		r.Printf("%s: %d runs\n", path, len(runs))
		allRuns = append(allRuns, runs...)
		dirs = append(dirs, info)
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no usable control directories among %v", paths)
	}

	cols, err := buildColumns(cmdCtx.Cfg, allRuns)
	if err != nil {
		return err
	}

	outfile := cmdCtx.Cfg.Outfile
	if outfile == "" {
		outfile = deriveOutfile(dirs[0])
	}

	f, err := os.Create(outfile)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", outfile, err)
	}
	defer f.Close()

	pre := &report.Preamble{GeneratedAt: time.Now(), Dirs: dirs}
	if err := report.WriteCSV(f, cols, allRuns, pre); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot write %s: %w", outfile, err)
	}

	r.Success(fmt.Sprintf("Wrote %d rows to %s", len(allRuns), outfile))
	return nil
}

// deriveOutfile names the report after the experiment's sync destination
// when it has one, else after the control directory itself.
func deriveOutfile(d report.DirInfo) string {
	base := filepath.Base(d.Path)
	if d.SyncPath != "" {
		base = filepath.Base(d.SyncPath)
	}
	return "run_summary_" + base + ".csv"
}

// watchDebounce batches bursts of filesystem events into one regeneration.
const watchDebounce = 2 * time.Second

// watchAndGenerate regenerates the report whenever job logs or the control
// directory change. Regenerations are serialized; there is no concurrent
// pipeline execution.
func watchAndGenerate(ctx context.Context, cmdCtx *CommandContext, paths []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := generateOnce(ctx, cmdCtx, paths); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot start watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range paths {
		for _, dir := range []string{path, filepath.Join(path, "archive", "pbs_logs")} {
			if _, err := os.Stat(dir); err != nil {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				cmdCtx.Logger.Warn("cannot watch directory", "dir", dir, "error", err)
			}
		}
	}

	cmdCtx.Renderer.Println("Watching for new job logs (Ctrl-C to stop)...")

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watch error", "error", err)
		case <-pending:
			if err := generateOnce(ctx, cmdCtx, paths); err != nil {
				cmdCtx.Renderer.Warning(err.Error())
			}
		}
	}
}
