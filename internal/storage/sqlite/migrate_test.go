package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newMigratedStore(t *testing.T) *Store {
	t.Helper()
	store := newTestStore(t)
	_, err := store.Migrate()
	require.NoError(t, err)
	return store
}

func ledgerDescriptions(t *testing.T, s *Store) []string {
	t.Helper()
	rows, err := s.db.Query("SELECT description FROM SchemaVersion ORDER BY version")
	require.NoError(t, err)
	defer rows.Close()

	var descriptions []string
	for rows.Next() {
		var d string
		require.NoError(t, rows.Scan(&d))
		descriptions = append(descriptions, d)
	}
	require.NoError(t, rows.Err())
	return descriptions
}

func TestMigrateFreshDatabase(t *testing.T) {
	store := newTestStore(t)

	applied, err := store.Migrate()
	require.NoError(t, err)

	units, err := LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, units)

	expected := make([]int, len(units))
	for i := range units {
		expected[i] = i + 1
	}
	assert.Equal(t, expected, applied)

	versions, err := store.SchemaVersions()
	require.NoError(t, err)
	assert.Equal(t, expected, versions)
}

func TestMigrateIdempotent(t *testing.T) {
	store := newMigratedStore(t)

	before, err := store.SchemaVersions()
	require.NoError(t, err)

	applied, err := store.Migrate()
	require.NoError(t, err)
	assert.Empty(t, applied)

	after, err := store.SchemaVersions()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMigrateDeterministic(t *testing.T) {
	first := newMigratedStore(t)
	second := newMigratedStore(t)

	firstVersions, err := first.SchemaVersions()
	require.NoError(t, err)
	secondVersions, err := second.SchemaVersions()
	require.NoError(t, err)

	assert.Equal(t, firstVersions, secondVersions)
	assert.Equal(t, ledgerDescriptions(t, first), ledgerDescriptions(t, second))
}

const testUnitOne = `
CREATE TABLE IF NOT EXISTS SchemaVersion (
    version INTEGER PRIMARY KEY,
    applied_date TEXT NOT NULL,
    description TEXT NOT NULL
);
CREATE TABLE alpha (id INTEGER PRIMARY KEY);
INSERT INTO SchemaVersion (version, applied_date, description)
VALUES (1, strftime('%Y-%m-%dT%H:%M:%S', 'now'), 'alpha');
`

const testUnitTwo = `
CREATE TABLE beta (id INTEGER PRIMARY KEY);
INSERT INTO SchemaVersion (version, applied_date, description)
VALUES (2, strftime('%Y-%m-%dT%H:%M:%S', 'now'), 'beta');
`

const testUnitThree = `
CREATE TABLE gamma (id INTEGER PRIMARY KEY);
INSERT INTO SchemaVersion (version, applied_date, description)
VALUES (3, strftime('%Y-%m-%dT%H:%M:%S', 'now'), 'gamma');
`

func TestApplyMigrationsGapFails(t *testing.T) {
	store := newTestStore(t)

	applied, err := store.ApplyMigrations([]Migration{
		{Version: 1, Name: "001_alpha.sql", SQL: testUnitOne},
	})
	require.NoError(t, err)
	require.Equal(t, []int{1}, applied)

	// Unit 3 with unit 2 missing must fail and leave the database unchanged.
	applied, err = store.ApplyMigrations([]Migration{
		{Version: 1, Name: "001_alpha.sql", SQL: testUnitOne},
		{Version: 3, Name: "003_gamma.sql", SQL: testUnitThree},
	})
	require.Error(t, err)
	var orderErr *MigrationOrderError
	require.ErrorAs(t, err, &orderErr)
	assert.Equal(t, 3, orderErr.Version)
	assert.Empty(t, applied)

	versions, err := store.SchemaVersions()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)

	names, err := store.objectNames("table")
	require.NoError(t, err)
	assert.False(t, names["gamma"])
}

func TestApplyMigrationsDuplicateFails(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ApplyMigrations([]Migration{
		{Version: 1, Name: "001_alpha.sql", SQL: testUnitOne},
		{Version: 1, Name: "001_alpha_copy.sql", SQL: testUnitOne},
	})
	var orderErr *MigrationOrderError
	require.ErrorAs(t, err, &orderErr)
	assert.Equal(t, 1, orderErr.Version)
}

func TestApplyMigrationsFailedUnitRollsBack(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ApplyMigrations([]Migration{
		{Version: 1, Name: "001_alpha.sql", SQL: testUnitOne},
	})
	require.NoError(t, err)

	broken := `
CREATE TABLE beta (id INTEGER PRIMARY KEY);
INSERT INTO missing_table (id) VALUES (1);
INSERT INTO SchemaVersion (version, applied_date, description)
VALUES (2, strftime('%Y-%m-%dT%H:%M:%S', 'now'), 'beta');
`
	applied, err := store.ApplyMigrations([]Migration{
		{Version: 1, Name: "001_alpha.sql", SQL: testUnitOne},
		{Version: 2, Name: "002_broken.sql", SQL: broken},
		{Version: 3, Name: "003_gamma.sql", SQL: testUnitThree},
	})
	require.Error(t, err)
	var execErr *SQLExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 2, execErr.Version)
	assert.Contains(t, execErr.Statement, "missing_table")
	assert.Empty(t, applied)

	// The failed unit rolled back in full and unit 3 was never attempted.
	versions, err := store.SchemaVersions()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)

	names, err := store.objectNames("table")
	require.NoError(t, err)
	assert.False(t, names["beta"])
	assert.False(t, names["gamma"])
}

func TestApplyMigrationsResume(t *testing.T) {
	store := newTestStore(t)

	units := []Migration{
		{Version: 1, Name: "001_alpha.sql", SQL: testUnitOne},
		{Version: 2, Name: "002_beta.sql", SQL: testUnitTwo},
		{Version: 3, Name: "003_gamma.sql", SQL: testUnitThree},
	}

	applied, err := store.ApplyMigrations(units[:1])
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)

	applied, err = store.ApplyMigrations(units)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, applied)

	versions, err := store.SchemaVersions()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, versions)
}

func TestLoadMigrationsContiguous(t *testing.T) {
	units, err := LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, units)
	for i, unit := range units {
		assert.Equal(t, i+1, unit.Version, "unit %s out of sequence", unit.Name)
	}
}

func TestSplitStatements(t *testing.T) {
	script := `
-- leading comment
CREATE TABLE t (name TEXT DEFAULT 'a;b');
INSERT INTO t (name) VALUES ('x'); -- trailing comment
INSERT INTO t (name) VALUES ('y')
`
	statements := splitStatements(script)
	require.Len(t, statements, 3)
	assert.Contains(t, statements[0], "'a;b'")
	assert.Contains(t, statements[1], "('x')")
	assert.Contains(t, statements[2], "('y')")
}
