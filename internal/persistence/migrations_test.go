package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesSortedSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_add_index.sql", "001_init.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o700))

	got, err := migrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_add_index.sql"}, got)
}

func TestMigrationFilesMissingDir(t *testing.T) {
	_, err := migrationFiles(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestDisabledBackends(t *testing.T) {
	var pg *Postgres
	assert.False(t, pg.Enabled())
	assert.ErrorIs(t, pg.Ping(t.Context()), ErrNotConfigured)

	r := &Redis{}
	assert.False(t, r.Enabled())
	assert.ErrorIs(t, r.Ping(t.Context()), ErrNotConfigured)
	r.Close()
}
