package commands

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oceanbench/runsummary/internal/cli/config"
	"github.com/oceanbench/runsummary/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nmlA = `&accessom2_nml
    ice_ocean_timestep = 5400
/
`

const nmlB = `&accessom2_nml
    ice_ocean_timestep = 2700
/
`

func TestGenerateWritesReport(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	// Three runs; the middle run's log artifact is missing.
	dir := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 1, Namelist: nmlA},
		{Number: 2, Namelist: nmlA},
		{Number: 3, Namelist: nmlB},
	})
	testutil.WriteFile(t, filepath.Join(dir, "archive", "pbs_logs", "1deg_jra55_ryf.o100"),
		testutil.PBSLog(1, 100, 0))
	testutil.WriteFile(t, filepath.Join(dir, "archive", "pbs_logs", "1deg_jra55_ryf.o102"),
		testutil.PBSLog(3, 102, 0))

	outfile := filepath.Join(t.TempDir(), "summary.csv")
	cmd := NewGenerateCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{dir, "-o", outfile})

	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outfile)
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	// Preamble (report banner, timestamp, one directory row), header, three runs.
	require.Len(t, records, 7)
	assert.Equal(t, "Summary report generated by runsummary", records[0][0])
	header := records[3]
	assert.Equal(t, "Run number", header[0])
	assert.Contains(t, header, "accessom2.nml -> accessom2_nml -> ice_ocean_timestep")

	row1, row2, row3 := records[4], records[5], records[6]
	assert.Equal(t, "1", row1[0])
	assert.Equal(t, "2", row2[0])
	assert.Equal(t, "3", row3[0])

	// Runs 1 and 3 have job metadata; run 2's job fields are blank but its
	// commit hash is still recorded.
	idx := indexOf(header, "Job Id")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "100", row1[idx])
	assert.Empty(t, row2[idx])
	assert.Equal(t, "102", row3[idx])
	assert.NotEmpty(t, row2[indexOf(header, "Git hash")])

	// Dynamic namelist column carries each run's value.
	idx = indexOf(header, "accessom2.nml -> accessom2_nml -> ice_ocean_timestep")
	assert.Equal(t, "5400", row1[idx])
	assert.Equal(t, "5400", row2[idx])
	assert.Equal(t, "2700", row3[idx])

	assert.Contains(t, out.String(), "Wrote 3 rows")
}

func TestGenerateTwoDirectoriesContiguousBlocks(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	dirA := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 1, Namelist: nmlA},
		{Number: 2, Namelist: nmlA},
	})
	dirB := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 5, Namelist: nmlB},
		{Number: 6, Namelist: nmlB},
	})

	outfile := filepath.Join(t.TempDir(), "summary.csv")
	cmd := NewGenerateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dirA, dirB, "-o", outfile})

	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outfile)
	require.NoError(t, err)
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	// Banner, timestamp, two directory rows, header, four data rows.
	require.Len(t, records, 9)
	assert.Equal(t, "1", records[5][0])
	assert.Equal(t, "2", records[6][0])
	assert.Equal(t, "5", records[7][0])
	assert.Equal(t, "6", records[8][0])
}

func TestGenerateSkipsUnusableDirs(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	good := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 1, Namelist: nmlA},
	})
	bad := t.TempDir()

	outfile := filepath.Join(t.TempDir(), "summary.csv")
	cmd := NewGenerateCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{bad, good, "-o", outfile})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "skipping "+bad)
	assert.FileExists(t, outfile)
}

func TestGenerateAllDirsUnusableFails(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	testutil.RequireGit(t)

	cmd := NewGenerateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable control directories")
}

func TestDiffCommandBetweenRuns(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	dir := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 1, Namelist: nmlA},
		{Number: 2, Namelist: nmlB},
	})

	cmd := NewDiffCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"1", "2", "--dir", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "ice_ocean_timestep")
	assert.Contains(t, out.String(), "5400")
	assert.Contains(t, out.String(), "2700")
	assert.Contains(t, out.String(), "1 changed variables")
}

func TestDiffCommandUnknownRunNumber(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	dir := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 1, Namelist: nmlA},
	})

	cmd := NewDiffCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"1", "99", "--dir", dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run numbered 99")
}

func TestDoctorHealthyDirectory(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	dir := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 1, Namelist: nmlA},
	})

	cmd := NewDoctorCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "git repository")
	assert.Contains(t, out.String(), "1 runs found")
}

func TestDoctorFailsOutsideRepo(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	testutil.RequireGit(t)

	cmd := NewDoctorCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{t.TempDir()})

	require.Error(t, cmd.Execute())
}

func indexOf(row []string, name string) int {
	for i, v := range row {
		if strings.Contains(v, name) {
			return i
		}
	}
	return -1
}
