package commands

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/oceanbench/runsummary/internal/cli/config"
	"github.com/oceanbench/runsummary/internal/cli/output"
	"github.com/oceanbench/runsummary/internal/gitvc"
	"github.com/oceanbench/runsummary/internal/history"
	"github.com/oceanbench/runsummary/internal/report"
	"github.com/spf13/cobra"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor [path]",
		Short: "Check that a control directory can be summarized",
		Long: `Run health checks against a control directory and report anything that
would leave the summary empty or degraded: a missing git binary, an
untracked directory, a boundary pattern that matches no commits, absent
job logs, or unparseable namelists.`,
		Example: `  # Check the current directory
  runsummary doctor

  # Check a specific experiment
  runsummary doctor ~/experiments/1deg_jra55_ryf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runDoctor(cmd, dir)
		},
	}
	return cmd
}

// HealthCheck is one doctor finding.
type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "pass", "warn", "fail"
	Detail string `json:"detail,omitempty"`
}

// DoctorOutput is the JSON shape of the doctor report.
type DoctorOutput struct {
	Directory string        `json:"directory"`
	Checks    []HealthCheck `json:"checks"`
	Healthy   bool          `json:"healthy"`
}

func runDoctor(cmd *cobra.Command, dir string) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()
	cfg := cmdCtx.Cfg

	out := &DoctorOutput{Directory: dir, Healthy: true}
	add := func(name, status, detail string) {
		out.Checks = append(out.Checks, HealthCheck{name, status, detail})
		if status == "fail" {
			out.Healthy = false
		}
	}

	if path, err := exec.LookPath("git"); err != nil {
		add("git binary", "fail", "git not found in PATH")
	} else {
		add("git binary", "pass", path)
	}

	if used := config.GetConfigFileUsed(); used != "" {
		add("config file", "pass", used)
	} else {
		add("config file", "warn", "no runsummary.yaml found, using defaults")
	}

	repo, err := gitvc.Open(ctx, dir)
	if err != nil {
		add("git repository", "fail", err.Error())
		return renderDoctor(cmdCtx.Renderer, out)
	}
	add("git repository", "pass", "")

	scanner := history.NewScanner(repo, cfg.CompilePattern())
	runs, err := scanner.Scan(ctx)
	if err != nil {
		add("run-boundary commits", "fail",
			fmt.Sprintf("pattern %q matches no commits", cfg.Pattern))
		return renderDoctor(cmdCtx.Renderer, out)
	}
	add("run-boundary commits", "pass", fmt.Sprintf("%d runs found", len(runs)))

	ex := history.NewExtractor(repo, cmdCtx.Logger)
	ex.Jobname = cfg.Jobname
	ex.SyncScript = cfg.SyncScript
	if err := ex.Enrich(ctx, runs); err != nil {
		add("metadata extraction", "fail", err.Error())
		return renderDoctor(cmdCtx.Renderer, out)
	}

	withJob, withNml := 0, 0
	for _, run := range runs {
		if run.Job != nil {
			withJob++
		}
		if len(run.Namelists) > 0 {
			withNml++
		}
	}
	jobStatus := "pass"
	if withJob == 0 {
		jobStatus = "warn"
	}
	add("job logs", jobStatus, fmt.Sprintf("%d of %d runs have a PBS log", withJob, len(runs)))
	nmlStatus := "pass"
	if withNml == 0 {
		nmlStatus = "warn"
	}
	add("namelists", nmlStatus, fmt.Sprintf("%d of %d runs have namelists", withNml, len(runs)))

	if len(cfg.Columns) > 0 {
		if _, err := report.Select(report.DefaultColumns(), cfg.Columns); err != nil {
			add("column selection", "fail", err.Error())
		} else {
			add("column selection", "pass", fmt.Sprintf("%d columns", len(cfg.Columns)))
		}
	}

	if sp, err := history.SyncPath(filepath.Join(dir, cfg.SyncScript)); err == nil && sp != "" {
		add("sync path", "pass", sp)
	} else {
		add("sync path", "warn", "no sync script, archived logs only")
	}

	return renderDoctor(cmdCtx.Renderer, out)
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Control directory health: "+out.Directory)
	styles := r.Styles()
	for _, c := range out.Checks {
		icon := styles.Success.Render("ok  ")
		switch c.Status {
		case "warn":
			icon = styles.Warning.Render("warn")
		case "fail":
			icon = styles.Error.Render("FAIL")
		}
		line := fmt.Sprintf("  %s  %s", icon, c.Name)
		if c.Detail != "" {
			line += ": " + c.Detail
		}
		r.Println(line)
	}
	if !out.Healthy {
		return fmt.Errorf("health check failed for %s", out.Directory)
	}
	return nil
}
