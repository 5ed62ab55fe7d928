package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheusai/promptstore/internal/storage/models"
)

func (s *Store) CreateDocumentation(d *models.Documentation) (int64, error) {
	if d.CreatedDate.IsZero() {
		d.CreatedDate = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO Documentation (title, content, source, created_date, updated_date)
		VALUES (?, ?, ?, ?, ?)`,
		d.Title, d.Content, d.Source, formatTime(d.CreatedDate), nullableTime(d.UpdatedDate),
	)
	if err != nil {
		return 0, wrapWriteErr("insert documentation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert documentation: %w", err)
	}
	d.ID = id
	return id, nil
}

func (s *Store) GetDocumentation(id int64) (*models.Documentation, error) {
	var d models.Documentation
	var created string
	var updated sql.NullString
	err := s.db.QueryRow(`
		SELECT id, title, content, source, created_date, updated_date
		FROM Documentation WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.Content, &d.Source, &created, &updated)
	if err != nil {
		return nil, fmt.Errorf("get documentation %d: %w", id, err)
	}
	if d.CreatedDate, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse documentation created_date: %w", err)
	}
	if updated.Valid && updated.String != "" {
		t, err := parseTime(updated.String)
		if err != nil {
			return nil, fmt.Errorf("parse documentation updated_date: %w", err)
		}
		d.UpdatedDate = &t
	}
	return &d, nil
}

// LinkDocToPrompt records a scored relevance mapping; the link starts active.
func (s *Store) LinkDocToPrompt(docID, promptID int64, relevanceScore float64) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO PromptDocContext (doc_id, prompt_id, relevance_score, is_active)
		VALUES (?, ?, ?, 1)`,
		docID, promptID, relevanceScore,
	)
	if err != nil {
		return 0, wrapWriteErr("link documentation to prompt", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("link documentation to prompt: %w", err)
	}
	return id, nil
}

// SetDocContextActive gates whether the document is injected as context.
func (s *Store) SetDocContextActive(contextID int64, active bool) error {
	_, err := s.db.Exec(
		"UPDATE PromptDocContext SET is_active = ? WHERE id = ?",
		boolToInt(active), contextID,
	)
	return wrapWriteErr("set doc context active", err)
}

func (s *Store) ActiveDocsForPrompt(promptID int64) ([]*models.PromptDocContext, error) {
	rows, err := s.db.Query(`
		SELECT id, doc_id, prompt_id, relevance_score, is_active
		FROM PromptDocContext
		WHERE prompt_id = ? AND is_active = 1
		ORDER BY relevance_score DESC`,
		promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("active docs for prompt: %w", err)
	}
	defer rows.Close()
	return collectDocContexts(rows)
}

// DocContextsForPrompt returns every link row regardless of is_active.
func (s *Store) DocContextsForPrompt(promptID int64) ([]*models.PromptDocContext, error) {
	rows, err := s.db.Query(`
		SELECT id, doc_id, prompt_id, relevance_score, is_active
		FROM PromptDocContext
		WHERE prompt_id = ?
		ORDER BY relevance_score DESC`,
		promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("doc contexts for prompt: %w", err)
	}
	defer rows.Close()
	return collectDocContexts(rows)
}

func collectDocContexts(rows *sql.Rows) ([]*models.PromptDocContext, error) {
	var contexts []*models.PromptDocContext
	for rows.Next() {
		var c models.PromptDocContext
		var promptID sql.NullInt64
		var isActive int
		if err := rows.Scan(&c.ID, &c.DocID, &promptID, &c.RelevanceScore, &isActive); err != nil {
			return nil, fmt.Errorf("scan doc context: %w", err)
		}
		if promptID.Valid {
			v := promptID.Int64
			c.PromptID = &v
		}
		c.IsActive = isActive == 1
		contexts = append(contexts, &c)
	}
	return contexts, rows.Err()
}
