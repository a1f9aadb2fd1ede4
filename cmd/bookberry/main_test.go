package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookberryapp/bookberry-server/internal/auth"
	"github.com/bookberryapp/bookberry-server/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func runLocal(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	out, err := run(t, append([]string{"--local", "--data-dir", dataDir}, args...)...)
	require.NoError(t, err, out)
	return out
}

func TestLocal_AddListProgressRate(t *testing.T) {
	dir := t.TempDir()

	out := runLocal(t, dir, "add", "b1", "--title", "The Left Hand of Darkness", "--author", "Ursula K. Le Guin", "--pages", "300")
	assert.Contains(t, out, `Added "The Left Hand of Darkness" to want-to-read`)

	runLocal(t, dir, "add", "b2", "--title", "Piranesi", "--status", "reading")

	out = runLocal(t, dir, "list")
	assert.Contains(t, out, "The Left Hand of Darkness")
	assert.Contains(t, out, "Ursula K. Le Guin")
	assert.Contains(t, out, "Piranesi")
	assert.Contains(t, out, "Unknown Author")

	out = runLocal(t, dir, "list", "--status", "reading")
	assert.Contains(t, out, "Piranesi")
	assert.NotContains(t, out, "Darkness")

	out = runLocal(t, dir, "progress", "b1", "500")
	assert.Contains(t, out, "300/300")
	assert.Contains(t, out, "[completed]")

	out = runLocal(t, dir, "rate", "b1", "4.5", "--review", "Stunning")
	assert.Contains(t, out, "4.5")

	out = runLocal(t, dir, "stats")
	assert.Contains(t, out, "Reading:      1")
	assert.Contains(t, out, "Completed:    1")
	assert.Contains(t, out, "1/10 (10%)")
}

func TestLocal_StatusRemoveClear(t *testing.T) {
	dir := t.TempDir()

	runLocal(t, dir, "add", "b1", "--title", "Dune")
	runLocal(t, dir, "add", "b2", "--title", "Emma")

	out := runLocal(t, dir, "status", "b1", "completed")
	assert.Contains(t, out, "Moved b1 to completed")

	out = runLocal(t, dir, "rm", "b2")
	assert.Contains(t, out, "Removed b2")

	out = runLocal(t, dir, "list")
	assert.Contains(t, out, "Dune")
	assert.NotContains(t, out, "Emma")

	_, err := run(t, "--local", "--data-dir", dir, "clear")
	require.Error(t, err)

	runLocal(t, dir, "clear", "--yes")
	out = runLocal(t, dir, "list")
	assert.Contains(t, out, "The shelf is empty")
}

func TestLocal_Validation(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "--local", "--data-dir", dir, "add", "b1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--title is required")

	_, err = run(t, "--local", "--data-dir", dir, "add", "b1", "--title", "Dune", "--status", "finished")
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	runLocal(t, dir, "add", "b1", "--title", "Dune")

	_, err = run(t, "--local", "--data-dir", dir, "rate", "b1", "4.3")
	require.ErrorIs(t, err, domain.ErrInvalidRating)

	_, err = run(t, "--local", "--data-dir", dir, "progress", "b1", "ten")
	require.Error(t, err)

	_, err = run(t, "--local", "--data-dir", dir, "list", "--sort", "pages")
	require.Error(t, err)
}

func TestLocal_RemoteOnlyCommands(t *testing.T) {
	dir := t.TempDir()

	for _, args := range [][]string{
		{"search", "dune"},
		{"catalog", "dune"},
		{"watch"},
	} {
		_, err := run(t, append([]string{"--local", "--data-dir", dir}, args...)...)
		require.ErrorIs(t, err, errRemoteOnly, strings.Join(args, " "))
	}
}

func TestToken_MintsVerifiableToken(t *testing.T) {
	dir := t.TempDir()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"token", "reader-1", "--key-dir", dir})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, errOut.String(), "expires")

	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 0)
	require.NoError(t, err)

	claims, err := tokens.VerifyAccessToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "reader-1", claims.UserID)
}

func TestParseListQuery(t *testing.T) {
	q, err := parseListQuery("want-to-read", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWantToRead, q.Status)
	assert.Equal(t, domain.SortByDate, q.Sort)

	_, err = parseListQuery("", "pages")
	assert.Error(t, err)
}
