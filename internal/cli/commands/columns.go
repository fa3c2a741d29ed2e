package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/oceanbench/runsummary/internal/cli/output"
	"github.com/oceanbench/runsummary/internal/report"
	"github.com/spf13/cobra"
)

// NewColumnsCommand creates the columns command.
func NewColumnsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "List the available report columns",
		Long: `List every column the report can emit, in default order, and whether
the current configuration enables it.

Changed namelist variables additionally get one dynamic column each; those
depend on the run history and are not listed here.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runColumns(cmd)
		},
	}
	return cmd
}

type columnInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

func runColumns(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)

	enabled := map[string]bool{}
	for _, name := range cmdCtx.Cfg.Columns {
		enabled[name] = true
	}
	all := len(cmdCtx.Cfg.Columns) == 0

	infos := make([]columnInfo, 0, len(report.DefaultColumns()))
	for _, c := range report.DefaultColumns() {
		infos = append(infos, columnInfo{Name: c.Name, Enabled: all || enabled[c.Name]})
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Enabled"})
	for _, info := range infos {
		mark := ""
		if info.Enabled {
			mark = "x"
		}
		t.AppendRow(table.Row{info.Name, mark})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}
