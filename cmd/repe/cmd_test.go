package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"repe/internal/config"
	"repe/internal/server/service"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REPE_DATABASE_URL", "")
	t.Setenv("REPE_JWT_SECRET", "")
	color.NoColor = true
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestMissingDatabaseURL(t *testing.T) {
	isolate(t)
	_, err := run(t, "db", "init")
	assert.ErrorIs(t, err, config.ErrMissingDatabaseURL)
}

func TestSeedAndQuery(t *testing.T) {
	dir := isolate(t)
	db := "sqlite://" + filepath.Join(dir, "repe.db")

	out, err := run(t, "--database-url", db, "db", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema ready (sqlite)")

	out, err = run(t, "--database-url", db, "db", "seed")
	require.NoError(t, err)
	assert.Regexp(t, `✓ \d+ of \d+ exercises inserted`, out)

	out, err = run(t, "--database-url", db, "db", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 0 of ")

	out, err = run(t, "--database-url", db, "db", "query", "exercises", "-n", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "CATEGORY")
	assert.Contains(t, lines[4], "(3 of ")

	_, err = run(t, "--database-url", db, "db", "query", "sets")
	assert.Error(t, err)
}

func TestSeedFromFile(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "repe.db")
	file := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(file, []byte("exercises:\n  - name: Turkish Get-Up\n    category: full body\n"), 0644))

	out, err := run(t, "--database-url", db, "db", "seed", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 exercises inserted")
}

func TestResetNeedsConfirmation(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "repe.db")

	_, err := run(t, "--database-url", db, "db", "seed")
	require.NoError(t, err)

	_, err = run(t, "--database-url", db, "db", "reset")
	assert.ErrorContains(t, err, "--yes")

	_, err = run(t, "--database-url", db, "db", "reset", "--yes")
	require.NoError(t, err)

	out, err := run(t, "--database-url", db, "db", "query", "exercises")
	require.NoError(t, err)
	assert.Contains(t, out, "(0 of 0)")
}

func TestExportImport(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	file := filepath.Join(dir, "export.json")

	_, err := run(t, "--database-url", src, "db", "seed")
	require.NoError(t, err)

	out, err := run(t, "--database-url", src, "export", file)
	require.NoError(t, err)
	assert.Contains(t, out, "0 workouts, 0 history entries")

	out, err = run(t, "--database-url", dst, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "0 workouts (0 sets)")

	before, err := run(t, "--database-url", src, "db", "query", "exercises")
	require.NoError(t, err)
	after, err := run(t, "--database-url", dst, "db", "query", "exercises")
	require.NoError(t, err)
	assert.Equal(t, lastLine(before), lastLine(after))

	_, err = run(t, "--database-url", dst, "import", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	isolate(t)

	_, err := run(t, "token", "--user", "athlete-1")
	assert.ErrorIs(t, err, config.ErrMissingJWTSecret)

	_, err = run(t, "--dev", "token")
	assert.ErrorContains(t, err, "--user")

	out, err := run(t, "--dev", "token", "--user", "athlete-1")
	require.NoError(t, err)

	secret, err := (&config.Config{Dev: true}).SharedSecret()
	require.NoError(t, err)
	subject, _, err := service.New(nil, secret).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "athlete-1", subject)
}

func TestServeValidatesConfig(t *testing.T) {
	dir := isolate(t)

	_, err := run(t, "serve")
	assert.ErrorIs(t, err, config.ErrMissingDatabaseURL)

	_, err = run(t, "--database-url", filepath.Join(dir, "repe.db"), "serve", "--api-port", "70000")
	assert.ErrorIs(t, err, config.ErrInvalidPort)

	_, err = run(t, "--database-url", filepath.Join(dir, "repe.db"), "serve", "--pid-lock")
	assert.ErrorIs(t, err, config.ErrPIDLockWithoutPath)
}

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repe.pid")

	cleanup, err := managePIDFile(path, true)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	_, err = managePIDFile(path, true)
	assert.Error(t, err)

	cleanup()
	assert.NoFileExists(t, path)

	// A file left by a dead process is taken over
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0644))
	cleanup, err = managePIDFile(path, true)
	require.NoError(t, err)
	cleanup()

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	_, err = managePIDFile(path, true)
	assert.ErrorContains(t, err, "corrupted")
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
