package database

import (
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db"), MaxOpenConns: 4}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDSN(t *testing.T) {
	dsn := DSN(Config{Path: "data/app.db", BusyTimeout: 2 * time.Second})

	assert.True(t, strings.HasPrefix(dsn, "file:data/app.db?"))
	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_busy_timeout=2000")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_txlock=immediate")

	assert.Contains(t, DSN(Config{Path: "x.db"}), "_busy_timeout=5000")
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/002_members.sql":        {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"sql/001_initial_schema.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"sql/README.md":              {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys, "sql")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "initial_schema", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
}

func TestLoadMigrations_RejectsBadNames(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{"sql/init.sql": {Data: []byte("")}}, "sql")
	assert.Error(t, err)

	_, err = LoadMigrations(fstest.MapFS{
		"sql/001_a.sql": {Data: []byte("")},
		"sql/1_b.sql":   {Data: []byte("")},
	}, "sql")
	assert.ErrorContains(t, err, "duplicate migration version 1")
}

func TestMigrator_RunMigrationsIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"sql/001_initial_schema.sql": {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT);")},
	}

	migrator := NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations(fsys, "sql"))
	require.NoError(t, migrator.RunMigrations(fsys, "sql"))

	applied, err := migrator.AppliedVersions()
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true}, applied)

	_, err = db.Exec("INSERT INTO notes (body) VALUES ('ok')")
	assert.NoError(t, err)
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"sql/001_broken.sql": {Data: []byte("CREATE TABLE broken (;")},
	}

	err := NewMigrator(db, nil).RunMigrations(fsys, "sql")
	require.Error(t, err)

	applied, err := NewMigrator(db, nil).AppliedVersions()
	require.NoError(t, err)
	assert.Empty(t, applied)
}
