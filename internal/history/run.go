// Package history discovers the ordered sequence of simulation runs from a
// control directory's git history and joins each run with its job metadata,
// namelist snapshot, and configuration.
package history

import (
	"github.com/oceanbench/runsummary/internal/gitvc"
	"github.com/oceanbench/runsummary/internal/joblog"
	"github.com/oceanbench/runsummary/internal/namelist"
)

// Run is one simulation execution, anchored to its boundary commit.
// Metadata fields are filled in by the Extractor; any of them may be missing
// when the corresponding artifact is absent or unreadable.
type Run struct {
	// Index is the 1-based position in the discovered sequence. Indices are
	// contiguous and strictly increasing in commit order.
	Index int

	// Number is the run number parsed from the boundary commit message,
	// or -1 when the pattern has no capture group.
	Number int

	Commit gitvc.Commit

	// Job is the parsed PBS log record, nil when no log artifact matched.
	Job *joblog.Record

	// Namelists is the namelist snapshot at the run's commit.
	Namelists namelist.Set

	// Config is the experiment configuration at the run's commit, nil when
	// config.yaml is absent or malformed.
	Config *ExpConfig

	// ModelStart and ModelEnd are the model times bracketing the run, read
	// from the output directory's time_stamp.out. Empty when unavailable.
	ModelStart string
	ModelEnd   string

	// ChangedFiles and Messages cover the commits since the previous run.
	ChangedFiles []string
	Messages     []string

	// Diff holds the namelist variables that changed relative to the
	// previous run. Empty for the first run in a sequence.
	Diff []namelist.Change
}

// Timestep returns the model timestep in seconds, preferring the coupled
// timestep from accessom2.nml and falling back to the configured submodels.
// Returns -1 when no timestep is recorded.
func (r *Run) Timestep() int {
	if v, ok := r.Namelists.Lookup("accessom2.nml", "accessom2_nml", "ice_ocean_timestep"); ok {
		if n, err := atoiLoose(v); err == nil {
			return n
		}
	}
	if r.Config != nil {
		for _, sm := range r.Config.Submodels {
			if sm.Timestep > 0 {
				return sm.Timestep
			}
		}
	}
	return -1
}
