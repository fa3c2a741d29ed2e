// Package testutil builds filesystem and git fixtures shared by tests.
package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// ControlDirRun describes one boundary commit in a fixture control
// directory: the run number committed and the accessom2.nml content at
// that boundary.
type ControlDirRun struct {
	Number   int
	Namelist string
}

// SetupControlDir creates a git repository shaped like a payu control
// directory: an initial commit with config.yaml, then one boundary commit
// per run in the payu message convention. Skips the test when git is not
// installed.
func SetupControlDir(t *testing.T, runs []ControlDirRun) string {
	t.Helper()
	RequireGit(t)

	dir := t.TempDir()
	Git(t, dir, "init", "-q")
	Git(t, dir, "config", "user.email", "tester@example.com")
	Git(t, dir, "config", "user.name", "Tester")

	configYAML := `jobname: 1deg_jra55_ryf
queue: normal
project: x77
ncpus: 216
submodels:
  - name: ocean
    model: mom
    ncpus: 216
    timestep: 5400
`
	WriteFile(t, filepath.Join(dir, "config.yaml"), configYAML)
	Git(t, dir, "add", "config.yaml")
	Git(t, dir, "commit", "-q", "-m", "initial setup")

	for _, run := range runs {
		WriteFile(t, filepath.Join(dir, "accessom2.nml"), run.Namelist)
		Git(t, dir, "add", "accessom2.nml")
		Git(t, dir, "commit", "-q", "--allow-empty", "-m",
			fmt.Sprintf("2018-10-08 22:32:26: Run %d", run.Number))
	}

	return dir
}

// RequireGit skips the test when no git binary is available.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// Git runs a git command in dir, failing the test on error.
func Git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

// WriteFile writes content to path, creating parent directories as needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// PBSLog renders a minimal but realistic PBS epilogue log for a run. The
// completion timestamp varies with the job id so re-done runs have
// distinguishable dates.
func PBSLog(runNumber, jobID, exitStatus int) string {
	return fmt.Sprintf(`git commit -am "2018-10-08 22:32:26: Run %d"
======================================================================
                  Resource Usage on 2018-10-08 22:32:3%d:
   Job Id:             %d.r-man2
   Project:            x77
   Exit Status:        %d
   Service Units:      128.50
   NCPUs Requested:    216                    NCPUs Used: 216
                                           CPU Time Used: 120:00:00
   Memory Requested:   1.00TB                Memory Used: 512.0GB
   Walltime requested: 05:00:00            Walltime Used: 03:25:30
   JobFS requested:    1.0GB                  JobFS used: 1.0KB
======================================================================
`, runNumber, jobID%10, jobID, exitStatus)
}
