package gitvc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/oceanbench/runsummary/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsNonRepo(t *testing.T) {
	testutil.RequireGit(t)
	_, err := Open(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotARepo))
}

func TestLogOldestFirst(t *testing.T) {
	dir := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 1, Namelist: "&a_nml\nx = 1\n/\n"},
		{Number: 2, Namelist: "&a_nml\nx = 2\n/\n"},
	})
	ctx := context.Background()

	repo, err := Open(ctx, dir)
	require.NoError(t, err)

	commits, err := repo.Log(ctx)
	require.NoError(t, err)
	require.Len(t, commits, 3)

	assert.Contains(t, commits[0].Message, "initial setup")
	assert.Contains(t, commits[1].Message, "Run 1")
	assert.Contains(t, commits[2].Message, "Run 2")
	for _, c := range commits {
		assert.Len(t, c.Hash, 40)
		assert.Equal(t, "Tester", c.Author)
		assert.False(t, c.Date.IsZero())
	}
}

func TestShowFileAtRevision(t *testing.T) {
	dir := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 1, Namelist: "&a_nml\nx = 1\n/\n"},
		{Number: 2, Namelist: "&a_nml\nx = 2\n/\n"},
	})
	ctx := context.Background()

	repo, err := Open(ctx, dir)
	require.NoError(t, err)
	commits, err := repo.Log(ctx)
	require.NoError(t, err)

	data, err := repo.ShowFile(ctx, commits[1].Hash, "accessom2.nml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "x = 1")

	data, err = repo.ShowFile(ctx, "HEAD", "accessom2.nml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "x = 2")

	_, err = repo.ShowFile(ctx, "HEAD", "missing.nml")
	require.Error(t, err)
}

func TestListFilesBySuffix(t *testing.T) {
	dir := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 1, Namelist: "&a_nml\nx = 1\n/\n"},
	})
	ctx := context.Background()

	repo, err := Open(ctx, dir)
	require.NoError(t, err)

	files, err := repo.ListFiles(ctx, "HEAD", ".nml")
	require.NoError(t, err)
	assert.Equal(t, []string{"accessom2.nml"}, files)

	files, err = repo.ListFiles(ctx, "HEAD", ".yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"config.yaml"}, files)
}

func TestDiffAndMessagesBetween(t *testing.T) {
	dir := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 1, Namelist: "&a_nml\nx = 1\n/\n"},
		{Number: 2, Namelist: "&a_nml\nx = 2\n/\n"},
	})
	ctx := context.Background()

	repo, err := Open(ctx, dir)
	require.NoError(t, err)
	commits, err := repo.Log(ctx)
	require.NoError(t, err)
	old, new := commits[1].Hash, commits[2].Hash

	files, err := repo.DiffNameOnly(ctx, old, new)
	require.NoError(t, err)
	assert.Equal(t, []string{"accessom2.nml"}, files)

	msgs, err := repo.MessagesBetween(ctx, old, new)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasSuffix(msgs[0], "Run 2"))
}

func TestResolveRev(t *testing.T) {
	dir := testutil.SetupControlDir(t, []testutil.ControlDirRun{
		{Number: 1, Namelist: "&a_nml\nx = 1\n/\n"},
	})
	ctx := context.Background()

	repo, err := Open(ctx, dir)
	require.NoError(t, err)

	hash, err := repo.ResolveRev(ctx, "HEAD")
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	_, err = repo.ResolveRev(ctx, "no-such-branch")
	require.Error(t, err)
}

func TestShortHash(t *testing.T) {
	c := Commit{Hash: "0123456789abcdef0123456789abcdef01234567"}
	assert.Equal(t, "01234567", c.ShortHash())
	assert.Equal(t, "abc", Commit{Hash: "abc"}.ShortHash())
}
