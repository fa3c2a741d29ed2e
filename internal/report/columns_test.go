package report

import (
	"testing"
	"time"

	"github.com/oceanbench/runsummary/internal/gitvc"
	"github.com/oceanbench/runsummary/internal/history"
	"github.com/oceanbench/runsummary/internal/joblog"
	"github.com/oceanbench/runsummary/internal/namelist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullRun() *history.Run {
	job := joblog.NewRecord()
	job.JobID = 949753
	job.ExitStatus = 0
	job.ServiceUnits = 20440.4
	job.WalltimeUsedSeconds = 12330
	job.NCPUsUsed = 5968
	job.MemoryUsedBytes = 2 << 40
	job.CompletionDate = "2018-10-08T22:32:36"

	return &history.Run{
		Index:  1,
		Number: 137,
		Commit: gitvc.Commit{
			Hash:    "a1b2c3d4e5f6",
			Author:  "Model Runner",
			Date:    time.Date(2018, 10, 8, 22, 32, 26, 0, time.FixedZone("AEDT", 11*3600)),
			Message: "2018-10-08 22:32:26: Run 137",
		},
		Job: job,
		Namelists: namelist.Set{
			"accessom2.nml": namelist.Snapshot{
				"accessom2_nml": {"ice_ocean_timestep": "5400"},
			},
		},
		Config: &history.ExpConfig{
			Queue:    "normal",
			Calendar: history.Calendar{Runtime: history.Runtime{Years: 5}},
		},
		ModelStart:   "2001-09-01T00:00:00",
		ModelEnd:     "2001-11-01T00:00:00",
		ChangedFiles: []string{"accessom2.nml", "config.yaml"},
		Messages:     []string{"tweak timestep", "2018-10-08 22:32:26: Run 137"},
	}
}

func extractByName(t *testing.T, cols []Column, name string, r *history.Run) string {
	t.Helper()
	for _, c := range cols {
		if c.Name == name {
			return c.Extract(r)
		}
	}
	t.Fatalf("no column named %q", name)
	return ""
}

func TestDefaultColumnValues(t *testing.T) {
	cols := DefaultColumns()
	r := fullRun()

	want := map[string]string{
		"Run number":                         "137",
		"Run start":                          "2001-09-01T00:00:00",
		"Run end":                            "2001-11-01T00:00:00",
		"Run length (years, months, days)":   "5, 0, 0",
		"Job Id":                             "949753",
		"Run completion date":                "2018-10-08T22:32:36",
		"Exit status":                        "0",
		"Queue":                              "normal",
		"Service Units":                      "20440.40",
		"Walltime Used (s)":                  "12330",
		"NCPUs Used":                         "5968",
		"Timestep (s)":                       "5400",
		"Git hash":                           "a1b2c3d4e5f6",
		"Commit date":                        "2018-10-08T22:32:26+11:00",
		"Commit message":                     "2018-10-08 22:32:26: Run 137",
		"Changed files since previous run":   "accessom2.nml, config.yaml",
		"Commit messages since previous run": "tweak timestep; 2018-10-08 22:32:26: Run 137",
	}
	for name, val := range want {
		assert.Equal(t, val, extractByName(t, cols, name, r), name)
	}
}

func TestColumnsBlankWhenMetadataMissing(t *testing.T) {
	cols := DefaultColumns()
	r := &history.Run{Index: 1, Number: 5}

	for _, name := range []string{
		"Job Id", "Run completion date", "Exit status", "Queue",
		"Service Units", "Walltime Used (s)", "NCPUs Used",
		"Memory Used (bytes)", "Timestep (s)", "Run start",
		"Run length (years, months, days)",
	} {
		assert.Empty(t, extractByName(t, cols, name, r), name)
	}
	assert.Equal(t, "5", extractByName(t, cols, "Run number", r))
}

func TestSelectPreservesRequestedOrder(t *testing.T) {
	cols, err := Select(DefaultColumns(), []string{"Exit status", "Run number", "Queue"})
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "Exit status", cols[0].Name)
	assert.Equal(t, "Run number", cols[1].Name)
	assert.Equal(t, "Queue", cols[2].Name)
}

func TestSelectUnknownColumn(t *testing.T) {
	_, err := Select(DefaultColumns(), []string{"Run number", "Bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown column "Bogus"`)
}

func TestWithNamelistColumns(t *testing.T) {
	r1 := fullRun()
	r2 := fullRun()
	r2.Namelists = namelist.Set{
		"accessom2.nml": namelist.Snapshot{
			"accessom2_nml": {"ice_ocean_timestep": "2700"},
		},
	}
	r2.Diff = []namelist.Change{
		{File: "accessom2.nml", Group: "accessom2_nml", Var: "ice_ocean_timestep", Old: "5400", New: "2700"},
	}

	base := len(DefaultColumns())
	cols := WithNamelistColumns(DefaultColumns(), []*history.Run{r1, r2})
	require.Len(t, cols, base+1)

	dyn := cols[base]
	assert.Equal(t, "accessom2.nml -> accessom2_nml -> ice_ocean_timestep", dyn.Name)
	assert.Equal(t, "5400", dyn.Extract(r1))
	assert.Equal(t, "2700", dyn.Extract(r2))
	assert.Empty(t, dyn.Extract(&history.Run{}))
}

func TestRowMatchesColumnOrder(t *testing.T) {
	cols := []Column{
		{"c1", func(*history.Run) string { return "a" }},
		{"c2", func(*history.Run) string { return "b" }},
		{"c3", func(*history.Run) string { return "c" }},
	}
	assert.Equal(t, []string{"a", "b", "c"}, Row(cols, &history.Run{}))
}
