package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prometheusai/promptstore/internal/metrics"
	"github.com/prometheusai/promptstore/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is one versioned batch of schema-changing statements. Each unit
// concludes by inserting its own row into the SchemaVersion ledger.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// LoadMigrations discovers the embedded migration units by their numeric
// filename prefix (001_..., 002_..., ...). The prefix order is authoritative.
func LoadMigrations() ([]Migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	var units []Migration
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration file %s has no version prefix", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration file %s has an invalid version prefix: %w", name, err)
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		units = append(units, Migration{Version: version, Name: name, SQL: string(data)})
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Version < units[j].Version })
	return units, nil
}

// Migrate applies every pending embedded migration unit in ascending version
// order and returns the versions applied by this run. Re-running against an
// up-to-date database is a no-op.
func (s *Store) Migrate() ([]int, error) {
	units, err := LoadMigrations()
	if err != nil {
		return nil, err
	}
	return s.ApplyMigrations(units)
}

// ApplyMigrations applies the given units against the store. Each unit runs
// in its own transaction; on failure the unit rolls back in full, earlier
// units stay committed, and no later unit is attempted.
func (s *Store) ApplyMigrations(units []Migration) ([]int, error) {
	runID := uuid.NewString()

	sorted := make([]Migration, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Version == sorted[i-1].Version {
			return nil, &MigrationOrderError{
				Version: sorted[i].Version,
				Reason:  fmt.Sprintf("duplicate migration version (%s, %s)", sorted[i-1].Name, sorted[i].Name),
			}
		}
	}

	current, err := s.currentVersion()
	if err != nil {
		return nil, err
	}

	logger.Info("migration run started",
		zap.String("run_id", runID),
		zap.Int("current_version", current),
		zap.Int("available_units", len(sorted)),
	)

	var applied []int
	for _, m := range sorted {
		if m.Version <= current {
			continue
		}
		if m.Version != current+1 {
			return applied, &MigrationOrderError{
				Version: m.Version,
				Reason:  fmt.Sprintf("version %d has not been applied", current+1),
			}
		}
		if err := s.applyUnit(m); err != nil {
			metrics.MigrationFailures.WithLabelValues(strconv.Itoa(m.Version)).Inc()
			logger.Error("migration unit failed",
				zap.String("run_id", runID),
				zap.Int("version", m.Version),
				zap.String("name", m.Name),
				zap.Error(err),
			)
			return applied, err
		}
		metrics.MigrationsApplied.Inc()
		logger.Info("migration unit applied",
			zap.String("run_id", runID),
			zap.Int("version", m.Version),
			zap.String("name", m.Name),
		)
		applied = append(applied, m.Version)
		current = m.Version
	}

	logger.Info("migration run finished",
		zap.String("run_id", runID),
		zap.Int("applied", len(applied)),
		zap.Int("current_version", current),
	)
	return applied, nil
}

// SchemaVersions returns the ledger in ascending version order.
func (s *Store) SchemaVersions() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM SchemaVersion ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema version ledger: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan schema version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *Store) currentVersion() (int, error) {
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'SchemaVersion'",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to inspect schema: %w", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(version) FROM SchemaVersion").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read current schema version: %w", err)
	}
	return int(version.Int64), nil
}

func (s *Store) applyUnit(m Migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return &SQLExecutionError{Version: m.Version, Statement: stmt, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}

// splitStatements breaks a migration script into executable statements,
// honoring single-quoted literals and -- line comments.
func splitStatements(script string) []string {
	var statements []string
	var b strings.Builder
	inQuote := false

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if !inQuote && c == '-' && i+1 < len(runes) && runes[i+1] == '-' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			b.WriteRune('\n')
			continue
		}
		if c == '\'' {
			inQuote = !inQuote
		}
		if c == ';' && !inQuote {
			if stmt := strings.TrimSpace(b.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			b.Reset()
			continue
		}
		b.WriteRune(c)
	}
	if stmt := strings.TrimSpace(b.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}
