package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheusai/promptstore/internal/storage/models"
)

func TestValidateMigratedDatabase(t *testing.T) {
	store := newMigratedStore(t)

	// A little representative data so the battery exercises the joins.
	p := createTestPrompt(t, store, "code_review", nil)
	tag, err := store.GetTagByName("ai")
	require.NoError(t, err)
	require.NoError(t, store.TagPrompt(p.ID, tag.ID))
	_, err = store.RecordUsage(&models.PromptUsage{PromptID: p.ID, UserID: "tester"})
	require.NoError(t, err)

	report, err := store.Validate(ValidateOptions{})
	require.NoError(t, err)

	for _, check := range report.Checks {
		assert.True(t, check.Passed, "check %q failed: %s", check.Name, check.Detail)
	}
	assert.True(t, report.SchemaOK)
	assert.True(t, report.PerformanceOK)
	assert.True(t, report.OK())
}

func TestValidateReportsMissingTables(t *testing.T) {
	store := newTestStore(t)

	report, err := store.Validate(ValidateOptions{})
	require.NoError(t, err)

	assert.False(t, report.SchemaOK)
	assert.False(t, report.OK())

	failed := 0
	for _, check := range report.Checks {
		if !check.Passed {
			failed++
		}
	}
	assert.Greater(t, failed, 0)

	// The battery is skipped against a broken schema; every entry present
	// is a structural check, collected rather than thrown.
	for _, check := range report.Checks {
		assert.Zero(t, check.AvgMillis)
	}
}

func TestValidateIsReadOnly(t *testing.T) {
	store := newMigratedStore(t)
	createTestPrompt(t, store, "demo", nil)

	before, err := store.ListPrompts()
	require.NoError(t, err)

	_, err = store.Validate(ValidateOptions{Iterations: 2})
	require.NoError(t, err)

	after, err := store.ListPrompts()
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))

	versions, err := store.SchemaVersions()
	require.NoError(t, err)
	units, err := LoadMigrations()
	require.NoError(t, err)
	assert.Len(t, versions, len(units))
}
