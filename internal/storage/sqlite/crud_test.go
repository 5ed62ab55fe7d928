package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheusai/promptstore/internal/storage/models"
)

func TestPromptRoundTrip(t *testing.T) {
	store := newMigratedStore(t)

	p := &models.Prompt{
		Type:        "code_review",
		Title:       "Code Review",
		Template:    "Review the following code: {{code}}",
		Description: "Structured code review prompt",
		Author:      "tester",
		IsCustom:    true,
	}
	id, err := store.CreatePrompt(p)
	require.NoError(t, err)

	got, err := store.GetPromptByType("code_review")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.Template, got.Template)
	assert.True(t, got.IsCustom)
	assert.Equal(t, "1.0.0", got.Version)
	assert.Zero(t, got.UsageCount)
	assert.Nil(t, got.AvgScore)
	assert.Nil(t, got.LastUsed)
}

func TestPromptTypeUnique(t *testing.T) {
	store := newMigratedStore(t)
	createTestPrompt(t, store, "demo", nil)

	_, err := store.CreatePrompt(&models.Prompt{Type: "demo", Title: "again", Template: "t"})
	var constraintErr *ConstraintViolationError
	require.ErrorAs(t, err, &constraintErr)
}

func TestPromptCategoryMoveUpdatesCounts(t *testing.T) {
	store := newMigratedStore(t)

	catA := &models.Category{Name: "A"}
	catB := &models.Category{Name: "B"}
	_, err := store.CreateCategory(catA)
	require.NoError(t, err)
	_, err = store.CreateCategory(catB)
	require.NoError(t, err)

	p := createTestPrompt(t, store, "demo", &catA.ID)

	gotA, err := store.GetCategory(catA.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotA.PromptCount)

	p.CategoryID = &catB.ID
	require.NoError(t, store.UpdatePrompt(p))

	gotA, err = store.GetCategory(catA.ID)
	require.NoError(t, err)
	assert.Zero(t, gotA.PromptCount)

	gotB, err := store.GetCategory(catB.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotB.PromptCount)
}

func TestSearchPrompts(t *testing.T) {
	store := newMigratedStore(t)

	_, err := store.CreatePrompt(&models.Prompt{
		Type: "summarize", Title: "AI Summarizer", Template: "t",
	})
	require.NoError(t, err)
	_, err = store.CreatePrompt(&models.Prompt{
		Type: "translate", Title: "Translator", Template: "t",
		Description: "Translate with AI assistance",
	})
	require.NoError(t, err)
	_, err = store.CreatePrompt(&models.Prompt{
		Type: "other", Title: "Unrelated", Template: "t",
	})
	require.NoError(t, err)

	found, err := store.SearchPrompts("AI")
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func TestUrgencyLevels(t *testing.T) {
	store := newMigratedStore(t)
	p := createTestPrompt(t, store, "alert", nil)
	p.UsesUrgencyLevels = true
	require.NoError(t, store.UpdatePrompt(p))

	require.NoError(t, store.SetUrgencyLevel(p.ID, 1, "calm wording"))
	require.NoError(t, store.SetUrgencyLevel(p.ID, 10, "maximum urgency wording"))

	// Re-setting a level replaces its content.
	require.NoError(t, store.SetUrgencyLevel(p.ID, 1, "calmer wording"))

	level, err := store.GetUrgencyLevel(p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "calmer wording", level.Content)

	levels, err := store.ListUrgencyLevels(p.ID)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, 1, levels[0].UrgencyLevel)
	assert.Equal(t, 10, levels[1].UrgencyLevel)
}

func TestUrgencyLevelRange(t *testing.T) {
	store := newMigratedStore(t)
	p := createTestPrompt(t, store, "alert", nil)

	err := store.SetUrgencyLevel(p.ID, 11, "out of range")
	var constraintErr *ConstraintViolationError
	require.ErrorAs(t, err, &constraintErr)
}

func TestPromptVersionNumbering(t *testing.T) {
	store := newMigratedStore(t)
	p := createTestPrompt(t, store, "demo", nil)

	v1 := &models.PromptVersion{PromptID: p.ID, Template: "first"}
	_, err := store.AddPromptVersion(v1)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNum)

	v2 := &models.PromptVersion{PromptID: p.ID, Template: "second"}
	_, err = store.AddPromptVersion(v2)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNum)

	// Snapshots are unique per (prompt, version_num).
	_, err = store.AddPromptVersion(&models.PromptVersion{
		PromptID: p.ID, VersionNum: 2, Template: "clash",
	})
	var constraintErr *ConstraintViolationError
	require.ErrorAs(t, err, &constraintErr)

	got, err := store.GetPromptVersion(p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Template)
}

func TestTagAssociations(t *testing.T) {
	store := newMigratedStore(t)
	p := createTestPrompt(t, store, "demo", nil)

	tag, err := store.GetTagByName("programming")
	require.NoError(t, err)

	require.NoError(t, store.TagPrompt(p.ID, tag.ID))

	tags, err := store.GetPromptTags(p.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "programming", tags[0].Name)

	// The junction is unique per (prompt, tag).
	err = store.TagPrompt(p.ID, tag.ID)
	var constraintErr *ConstraintViolationError
	require.ErrorAs(t, err, &constraintErr)

	require.NoError(t, store.UntagPrompt(p.ID, tag.ID))
	tags, err = store.GetPromptTags(p.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestCategoryHierarchy(t *testing.T) {
	store := newMigratedStore(t)

	parent := &models.Category{Name: "Parent", DisplayOrder: 10}
	child := &models.Category{Name: "Child", DisplayOrder: 20}
	_, err := store.CreateCategory(parent)
	require.NoError(t, err)
	_, err = store.CreateCategory(child)
	require.NoError(t, err)

	require.NoError(t, store.AddCategoryChild(parent.ID, child.ID))

	children, err := store.GetCategoryChildren(parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Child", children[0].Name)

	// Edges are unique per (parent, child).
	err = store.AddCategoryChild(parent.ID, child.ID)
	var constraintErr *ConstraintViolationError
	require.ErrorAs(t, err, &constraintErr)

	// Deleting an endpoint removes the edge.
	require.NoError(t, store.DeleteCategory(child.ID))
	children, err = store.GetCategoryChildren(parent.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestSeededReferenceData(t *testing.T) {
	store := newMigratedStore(t)

	categories, err := store.ListCategories()
	require.NoError(t, err)
	assert.NotEmpty(t, categories)
	assert.Equal(t, "General", categories[0].Name)

	tags, err := store.ListTags()
	require.NoError(t, err)
	assert.NotEmpty(t, tags)

	modelsList, err := store.ListModels()
	require.NoError(t, err)
	assert.NotEmpty(t, modelsList)
}

func TestApiKeysByProvider(t *testing.T) {
	store := newMigratedStore(t)

	for _, k := range []models.ApiKey{
		{Provider: "openai", KeyName: "primary", KeyValue: "enc:1"},
		{Provider: "openai", KeyName: "backup", KeyValue: "enc:2"},
		{Provider: "anthropic", KeyName: "primary", KeyValue: "enc:3"},
	} {
		key := k
		_, err := store.CreateApiKey(&key)
		require.NoError(t, err)
	}

	keys, err := store.GetApiKeysByProvider("openai")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "backup", keys[0].KeyName)
	assert.Equal(t, "primary", keys[1].KeyName)

	// (provider, key_name) is unique; the same name under another provider is fine.
	_, err = store.CreateApiKey(&models.ApiKey{Provider: "openai", KeyName: "primary", KeyValue: "enc:4"})
	var constraintErr *ConstraintViolationError
	require.ErrorAs(t, err, &constraintErr)
}

func TestBenchmarkMetricsRoundTrip(t *testing.T) {
	store := newMigratedStore(t)

	bench := &models.Benchmark{
		Name:       "reasoning",
		PromptText: "Solve the puzzle",
		Metrics:    []string{"accuracy", "coherence"},
	}
	_, err := store.CreateBenchmark(bench)
	require.NoError(t, err)

	got, err := store.GetBenchmark(bench.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"accuracy", "coherence"}, got.Metrics)
}

func TestDocContextActivation(t *testing.T) {
	store := newMigratedStore(t)
	p := createTestPrompt(t, store, "demo", nil)

	doc := &models.Documentation{Title: "style guide", Content: "rules"}
	_, err := store.CreateDocumentation(doc)
	require.NoError(t, err)

	linkID, err := store.LinkDocToPrompt(doc.ID, p.ID, 0.8)
	require.NoError(t, err)

	active, err := store.ActiveDocsForPrompt(p.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, store.SetDocContextActive(linkID, false))

	active, err = store.ActiveDocsForPrompt(p.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := store.DocContextsForPrompt(p.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)
}
