package commands

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/oceanbench/runsummary/internal/cli/config"
	"github.com/oceanbench/runsummary/internal/cli/output"
	"github.com/oceanbench/runsummary/internal/gitvc"
	"github.com/oceanbench/runsummary/internal/history"
	"github.com/oceanbench/runsummary/internal/report"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext assembles the config, logger, and renderer for a command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetCurrentConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// collectDir runs the full extraction pipeline for one control directory:
// open the repo, scan the boundary commits, and enrich each run with job,
// namelist, and configuration metadata.
func collectDir(ctx context.Context, dir string, cfg *config.Config, logger *slog.Logger) ([]*history.Run, report.DirInfo, error) {
	info := report.DirInfo{Path: dir}
	if abs, err := filepath.Abs(dir); err == nil {
		info.Path = abs
	}

	repo, err := gitvc.Open(ctx, dir)
	if err != nil {
		return nil, info, err
	}

	scanner := history.NewScanner(repo, cfg.CompilePattern())
	runs, err := scanner.Scan(ctx)
	if err != nil {
		return nil, info, err
	}

	ex := history.NewExtractor(repo, logger)
	ex.Jobname = cfg.Jobname
	ex.SyncScript = cfg.SyncScript
	if err := ex.Enrich(ctx, runs); err != nil {
		return nil, info, err
	}

	if branch, err := repo.Branch(ctx); err == nil {
		info.Branch = branch
	}
	if sp, err := history.SyncPath(filepath.Join(dir, cfg.SyncScript)); err == nil {
		info.SyncPath = sp
	}
	return runs, info, nil
}

// buildColumns resolves the configured column selection and optionally
// appends the dynamic namelist-variable columns derived from runs.
func buildColumns(cfg *config.Config, runs []*history.Run) ([]report.Column, error) {
	cols := report.DefaultColumns()
	if len(cfg.Columns) > 0 {
		selected, err := report.Select(cols, cfg.Columns)
		if err != nil {
			return nil, err
		}
		cols = selected
	}
	if cfg.NamelistColumns {
		cols = report.WithNamelistColumns(cols, runs)
	}
	return cols, nil
}
