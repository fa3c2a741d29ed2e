package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/oceanbench/runsummary/internal/cli/output"
	"github.com/oceanbench/runsummary/internal/gitvc"
	"github.com/oceanbench/runsummary/internal/history"
	"github.com/oceanbench/runsummary/internal/namelist"
	"github.com/spf13/cobra"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	Dir string
}

// NewDiffCommand creates the diff command.
func NewDiffCommand() *cobra.Command {
	opts := &DiffOptions{}
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Show namelist changes between two runs",
		Long: `Compare the namelist snapshots of two runs and list every variable
whose value differs.

Runs may be given as run numbers (resolved against the boundary commits)
or as git revisions. Variables present on only one side are marked
` + namelist.Absent + `.`,
		Example: `  # Diff run 136 against run 137
  runsummary diff 136 137

  # Diff two commits directly
  runsummary diff a1b2c3d HEAD --dir ~/experiments/1deg_jra55_ryf`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&opts.Dir, "dir", "d", ".", "control directory")

	return cmd
}

func runDiff(cmd *cobra.Command, opts *DiffOptions, oldArg, newArg string) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()

	repo, err := gitvc.Open(ctx, opts.Dir)
	if err != nil {
		return err
	}

	oldRev, err := resolveRunRev(ctx, repo, cmdCtx, oldArg)
	if err != nil {
		return err
	}
	newRev, err := resolveRunRev(ctx, repo, cmdCtx, newArg)
	if err != nil {
		return err
	}

	ex := history.NewExtractor(repo, cmdCtx.Logger)
	oldSet := ex.NamelistsAt(ctx, oldRev)
	newSet := ex.NamelistsAt(ctx, newRev)
	changes := namelist.DiffSets(oldSet, newSet)

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(changes)
	}

	if len(changes) == 0 {
		r.Println("No namelist changes.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Group", "Variable", "Old", "New"})
	for _, c := range changes {
		t.AppendRow(table.Row{c.File, c.Group, c.Var, c.Old, c.New})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	r.Printf("(%d changed variables)\n", len(changes))
	return nil
}

// resolveRunRev interprets arg as a run number when it is a bare integer,
// falling back to a git revision expression.
func resolveRunRev(ctx context.Context, repo *gitvc.Repo, cmdCtx *CommandContext, arg string) (string, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		scanner := history.NewScanner(repo, cmdCtx.Cfg.CompilePattern())
		runs, err := scanner.Scan(ctx)
		if err != nil {
			return "", err
		}
		for _, run := range runs {
			if run.Number == n {
				return run.Commit.Hash, nil
			}
		}
		return "", fmt.Errorf("no run numbered %d in %s", n, repo.Dir)
	}
	return repo.ResolveRev(ctx, arg)
}
