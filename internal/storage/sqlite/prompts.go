package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prometheusai/promptstore/internal/storage/models"
)

const promptColumns = `id, type, title, template, description, author, version,
	created_date, updated_date, category_id, is_custom, avg_score, usage_count,
	last_used, uses_urgency_levels`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrompt(row rowScanner) (*models.Prompt, error) {
	var p models.Prompt
	var created, updated string
	var categoryID sql.NullInt64
	var avgScore sql.NullFloat64
	var lastUsed sql.NullString
	var isCustom, usesUrgency int

	err := row.Scan(
		&p.ID, &p.Type, &p.Title, &p.Template, &p.Description, &p.Author,
		&p.Version, &created, &updated, &categoryID, &isCustom, &avgScore,
		&p.UsageCount, &lastUsed, &usesUrgency,
	)
	if err != nil {
		return nil, err
	}

	if p.CreatedDate, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse prompt created_date: %w", err)
	}
	if p.UpdatedDate, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parse prompt updated_date: %w", err)
	}
	if categoryID.Valid {
		v := categoryID.Int64
		p.CategoryID = &v
	}
	if avgScore.Valid {
		v := avgScore.Float64
		p.AvgScore = &v
	}
	if lastUsed.Valid && lastUsed.String != "" {
		t, err := parseTime(lastUsed.String)
		if err != nil {
			return nil, fmt.Errorf("parse prompt last_used: %w", err)
		}
		p.LastUsed = &t
	}
	p.IsCustom = isCustom == 1
	p.UsesUrgencyLevels = usesUrgency == 1
	return &p, nil
}

// CreatePrompt inserts a prompt and refreshes its category's counters.
// Derived columns (avg_score, usage_count, last_used) start at their
// defaults; only the aggregation engine writes them.
func (s *Store) CreatePrompt(p *models.Prompt) (int64, error) {
	now := time.Now()
	if p.CreatedDate.IsZero() {
		p.CreatedDate = now
	}
	if p.UpdatedDate.IsZero() {
		p.UpdatedDate = now
	}
	if p.Version == "" {
		p.Version = "1.0.0"
	}

	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO Prompts (
				type, title, template, description, author, version,
				created_date, updated_date, category_id, is_custom, uses_urgency_levels
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Type, p.Title, p.Template, p.Description, p.Author, p.Version,
			formatTime(p.CreatedDate), formatTime(p.UpdatedDate),
			nullableID(p.CategoryID), boolToInt(p.IsCustom), boolToInt(p.UsesUrgencyLevels),
		)
		if err != nil {
			return wrapWriteErr("insert prompt", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert prompt: %w", err)
		}
		if p.CategoryID != nil {
			return s.recomputeCategoryStats(tx, *p.CategoryID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

func (s *Store) GetPrompt(id int64) (*models.Prompt, error) {
	row := s.db.QueryRow("SELECT "+promptColumns+" FROM Prompts WHERE id = ?", id)
	p, err := scanPrompt(row)
	if err != nil {
		return nil, fmt.Errorf("get prompt %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) GetPromptByType(promptType string) (*models.Prompt, error) {
	row := s.db.QueryRow("SELECT "+promptColumns+" FROM Prompts WHERE type = ?", promptType)
	p, err := scanPrompt(row)
	if err != nil {
		return nil, fmt.Errorf("get prompt by type %q: %w", promptType, err)
	}
	return p, nil
}

func (s *Store) ListPrompts() ([]*models.Prompt, error) {
	rows, err := s.db.Query("SELECT " + promptColumns + " FROM Prompts ORDER BY type")
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()
	return collectPrompts(rows)
}

// SearchPrompts matches the term against title and description.
func (s *Store) SearchPrompts(term string) ([]*models.Prompt, error) {
	pattern := "%" + term + "%"
	rows, err := s.db.Query(
		"SELECT "+promptColumns+" FROM Prompts WHERE title LIKE ? OR description LIKE ? ORDER BY type",
		pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search prompts: %w", err)
	}
	defer rows.Close()
	return collectPrompts(rows)
}

func collectPrompts(rows *sql.Rows) ([]*models.Prompt, error) {
	var prompts []*models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// UpdatePrompt rewrites the caller-owned columns and refreshes category
// counters on both sides of a category move. Derived columns are untouched.
func (s *Store) UpdatePrompt(p *models.Prompt) error {
	p.UpdatedDate = time.Now()
	return s.withTx(func(tx *sql.Tx) error {
		var oldCategory sql.NullInt64
		err := tx.QueryRow("SELECT category_id FROM Prompts WHERE id = ?", p.ID).Scan(&oldCategory)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update prompt: no row with id %d", p.ID)
		}
		if err != nil {
			return fmt.Errorf("update prompt: %w", err)
		}

		_, err = tx.Exec(`
			UPDATE Prompts
			SET type = ?, title = ?, template = ?, description = ?, author = ?,
				version = ?, updated_date = ?, category_id = ?, is_custom = ?,
				uses_urgency_levels = ?
			WHERE id = ?`,
			p.Type, p.Title, p.Template, p.Description, p.Author, p.Version,
			formatTime(p.UpdatedDate), nullableID(p.CategoryID),
			boolToInt(p.IsCustom), boolToInt(p.UsesUrgencyLevels), p.ID,
		)
		if err != nil {
			return wrapWriteErr("update prompt", err)
		}

		if oldCategory.Valid {
			if err := s.recomputeCategoryStats(tx, oldCategory.Int64); err != nil {
				return err
			}
		}
		if p.CategoryID != nil && (!oldCategory.Valid || oldCategory.Int64 != *p.CategoryID) {
			return s.recomputeCategoryStats(tx, *p.CategoryID)
		}
		return nil
	})
}

// DeletePrompt removes the prompt. Tag associations, versions, scores, usage
// events, and urgency variants cascade away; benchmark results and doc links
// keep their rows with a nulled prompt reference.
func (s *Store) DeletePrompt(id int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		var categoryID sql.NullInt64
		err := tx.QueryRow("SELECT category_id FROM Prompts WHERE id = ?", id).Scan(&categoryID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("delete prompt: no row with id %d", id)
		}
		if err != nil {
			return fmt.Errorf("delete prompt: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM Prompts WHERE id = ?", id); err != nil {
			return wrapWriteErr("delete prompt", err)
		}
		if categoryID.Valid {
			return s.recomputeCategoryStats(tx, categoryID.Int64)
		}
		return nil
	})
}

// SetUrgencyLevel writes one of the prompt's 1..10 graded text variants,
// replacing the content if the level already exists.
func (s *Store) SetUrgencyLevel(promptID int64, level int, content string) error {
	_, err := s.db.Exec(`
		INSERT INTO PromptUrgencyLevels (prompt_id, urgency_level, content)
		VALUES (?, ?, ?)
		ON CONFLICT(prompt_id, urgency_level) DO UPDATE SET content = excluded.content`,
		promptID, level, content,
	)
	return wrapWriteErr("set urgency level", err)
}

func (s *Store) GetUrgencyLevel(promptID int64, level int) (*models.PromptUrgencyLevel, error) {
	var ul models.PromptUrgencyLevel
	err := s.db.QueryRow(`
		SELECT id, prompt_id, urgency_level, content
		FROM PromptUrgencyLevels WHERE prompt_id = ? AND urgency_level = ?`,
		promptID, level,
	).Scan(&ul.ID, &ul.PromptID, &ul.UrgencyLevel, &ul.Content)
	if err != nil {
		return nil, fmt.Errorf("get urgency level %d for prompt %d: %w", level, promptID, err)
	}
	return &ul, nil
}

func (s *Store) ListUrgencyLevels(promptID int64) ([]*models.PromptUrgencyLevel, error) {
	rows, err := s.db.Query(`
		SELECT id, prompt_id, urgency_level, content
		FROM PromptUrgencyLevels WHERE prompt_id = ? ORDER BY urgency_level`,
		promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("list urgency levels: %w", err)
	}
	defer rows.Close()

	var levels []*models.PromptUrgencyLevel
	for rows.Next() {
		var ul models.PromptUrgencyLevel
		if err := rows.Scan(&ul.ID, &ul.PromptID, &ul.UrgencyLevel, &ul.Content); err != nil {
			return nil, fmt.Errorf("scan urgency level: %w", err)
		}
		levels = append(levels, &ul)
	}
	return levels, rows.Err()
}

// CountPromptUsage is used by tests and dashboards; usage_count on the
// prompt row is the derived fast path.
func (s *Store) CountPromptUsage(promptID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM PromptUsage WHERE prompt_id = ?", promptID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count prompt usage: %w", err)
	}
	return n, nil
}
