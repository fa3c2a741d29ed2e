package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/oceanbench/runsummary/internal/cli/output"
	"github.com/oceanbench/runsummary/internal/history"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [path]",
		Short: "List the discovered runs of a control directory",
		Long: `List every run found in the control directory's git history, with the
job metadata joined from the PBS logs.

Output adapts to environment:
  - Terminal: table
  - Piped/Scripted: markdown table
  - JSON: machine-readable via --output json`,
		Example: `  # List runs of the current directory
  runsummary runs

  # List runs as JSON
  runsummary runs --output json ~/experiments/1deg_jra55_ryf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, args)
		},
	}
	return cmd
}

// runInfo is the JSON projection of one run.
type runInfo struct {
	Index          int     `json:"index"`
	Number         int     `json:"number"`
	Commit         string  `json:"commit"`
	CommitDate     string  `json:"commit_date"`
	JobID          int     `json:"job_id,omitempty"`
	ExitStatus     int     `json:"exit_status,omitempty"`
	CompletionDate string  `json:"completion_date,omitempty"`
	WalltimeSecs   int64   `json:"walltime_used_seconds,omitempty"`
	ServiceUnits   float64 `json:"service_units,omitempty"`
	ChangedVars    int     `json:"changed_namelist_vars"`
}

func runRuns(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	runs, _, err := collectDir(cmd.Context(), dir, cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]runInfo, 0, len(runs))
		for _, run := range runs {
			infos = append(infos, newRunInfo(run))
		}
		return r.JSON(infos)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Run", "Commit", "Commit date", "Job Id", "Exit", "Walltime (s)", "SU", "Changed vars"})
	for _, run := range runs {
		t.AppendRow(runRow(run))
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	r.Printf("(%d runs)\n", len(runs))
	return nil
}

func newRunInfo(run *history.Run) runInfo {
	info := runInfo{
		Index:       run.Index,
		Number:      run.Number,
		Commit:      run.Commit.Hash,
		CommitDate:  run.Commit.Date.Format("2006-01-02T15:04:05-07:00"),
		ChangedVars: len(run.Diff),
	}
	if run.Job != nil {
		info.JobID = run.Job.JobID
		info.ExitStatus = run.Job.ExitStatus
		info.CompletionDate = run.Job.CompletionDate
		info.WalltimeSecs = run.Job.WalltimeUsedSeconds
		info.ServiceUnits = run.Job.ServiceUnits
	}
	return info
}

func runRow(run *history.Run) table.Row {
	jobID, exit, wall, su := "", "", "", ""
	if run.Job != nil {
		jobID = fmt.Sprintf("%d", run.Job.JobID)
		exit = fmt.Sprintf("%d", run.Job.ExitStatus)
		wall = fmt.Sprintf("%d", run.Job.WalltimeUsedSeconds)
		su = fmt.Sprintf("%.2f", run.Job.ServiceUnits)
	}
	number := ""
	if run.Number >= 0 {
		number = fmt.Sprintf("%d", run.Number)
	}
	return table.Row{
		run.Index,
		number,
		run.Commit.ShortHash(),
		run.Commit.Date.Format("2006-01-02 15:04"),
		jobID,
		exit,
		wall,
		su,
		len(run.Diff),
	}
}
