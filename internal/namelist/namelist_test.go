package namelist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasicGroups(t *testing.T) {
	input := `&accessom2_nml
    log_level = 'info'
    ice_ocean_timestep = 5400
/

&date_manager_nml
    forcing_start_date = '1958-01-01T00:00:00'
    restart_period = 5, 0, 0
/
`
	snap, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	v, ok := snap.Lookup("accessom2_nml", "ice_ocean_timestep")
	require.True(t, ok)
	assert.Equal(t, "5400", v)

	v, ok = snap.Lookup("date_manager_nml", "forcing_start_date")
	require.True(t, ok)
	assert.Equal(t, "1958-01-01T00:00:00", v)

	v, ok = snap.Lookup("date_manager_nml", "restart_period")
	require.True(t, ok)
	assert.Equal(t, "5, 0, 0", v)
}

func TestParseCaseInsensitive(t *testing.T) {
	input := `&Ocean_Model_NML
    DT_Ocean = 1800
/
`
	snap, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	v, ok := snap.Lookup("OCEAN_MODEL_NML", "dt_ocean")
	require.True(t, ok)
	assert.Equal(t, "1800", v)
}

func TestParseComments(t *testing.T) {
	input := `! leading comment
&grid_nml
    nx = 360        ! zonal points
    label = 'run!5' ! quoted bang is not a comment
/
`
	snap, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	v, _ := snap.Lookup("grid_nml", "nx")
	assert.Equal(t, "360", v)
	v, _ = snap.Lookup("grid_nml", "label")
	assert.Equal(t, "run!5", v)
}

func TestParseLogicalNormalization(t *testing.T) {
	input := `&flags_nml
    a = .true.
    b = .FALSE.
    c = T
    d = f
/
`
	snap, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	for key, want := range map[string]string{"a": "T", "b": "F", "c": "T", "d": "F"} {
		v, ok := snap.Lookup("flags_nml", key)
		require.True(t, ok, key)
		assert.Equal(t, want, v, key)
	}
}

func TestParseTrailingCommaAndQuotes(t *testing.T) {
	input := `&io_nml
    restart_file = "restart.nc",
    layers = 1, 2, 3,
/
`
	snap, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	v, _ := snap.Lookup("io_nml", "restart_file")
	assert.Equal(t, "restart.nc", v)
	v, _ = snap.Lookup("io_nml", "layers")
	assert.Equal(t, "1, 2, 3", v)
}

func TestParseDerivedTypeNames(t *testing.T) {
	input := `&tracer_nml
    tracer%name = 'salt'
    diag(2) = 1.5
/
`
	snap, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	v, ok := snap.Lookup("tracer_nml", "tracer%name")
	require.True(t, ok)
	assert.Equal(t, "salt", v)
	v, ok = snap.Lookup("tracer_nml", "diag(2)")
	require.True(t, ok)
	assert.Equal(t, "1.5", v)
}

func TestParseMalformedLine(t *testing.T) {
	input := `&ocean_nml
    this is not an assignment
/
`
	_, err := Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseRepeatedGroupMerges(t *testing.T) {
	input := `&a_nml
    x = 1
/
&a_nml
    x = 2
    y = 3
/
`
	snap, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	v, _ := snap.Lookup("a_nml", "x")
	assert.Equal(t, "2", v)
	v, _ = snap.Lookup("a_nml", "y")
	assert.Equal(t, "3", v)
}
