package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("MIGRATIONS_PATH", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestSeedExportImport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	backup := filepath.Join(dir, "out", "backup.json")

	out := runCLI(t, "--db-type", "sqlite", "--db", src, "seed", filepath.Join("..", "..", "data", "catalog.yaml"))
	assert.Contains(t, out, "Seeded")

	out = runCLI(t, "--db-type", "sqlite", "--db", src, "export", "--output", backup)
	assert.Contains(t, out, backup)

	out = runCLI(t, "--db-type", "sqlite", "--db", dst, "import", backup)
	assert.Contains(t, out, "0 users (0 skipped)")
}

func TestMaintenanceCommandsOnEmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")

	assert.Contains(t, runCLI(t, "--db-type", "sqlite", "--db", db, "migrate"), "up to date")
	assert.Contains(t, runCLI(t, "--db-type", "sqlite", "--db", db, "recompute"), "Recomputed 0 users")
	assert.Contains(t, runCLI(t, "--db-type", "sqlite", "--db", db, "leaderboard", "regenerate"), "regenerated")
}

func TestSeedRejectsUnknownExtension(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"seed", filepath.Join(t.TempDir(), "catalog.csv")})
	assert.Error(t, rootCmd.Execute())
}
