package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/prometheusai/promptstore/internal/storage/models"
)

func (s *Store) CreateUsageContext(c *models.UsageContext) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO UsageContext (context_type, context_name, description) VALUES (?, ?, ?)",
		c.ContextType, c.ContextName, c.Description,
	)
	if err != nil {
		return 0, wrapWriteErr("insert usage context", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert usage context: %w", err)
	}
	c.ID = id
	return id, nil
}

func (s *Store) ListUsageByPrompt(promptID int64) ([]*models.PromptUsage, error) {
	rows, err := s.db.Query(`
		SELECT id, prompt_id, timestamp, context_id, user_id, successful,
			response_time_ms, result_summary
		FROM PromptUsage WHERE prompt_id = ? ORDER BY id`,
		promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("list usage by prompt: %w", err)
	}
	defer rows.Close()

	var events []*models.PromptUsage
	for rows.Next() {
		var u models.PromptUsage
		var ts string
		var contextID sql.NullInt64
		var successful int
		err := rows.Scan(
			&u.ID, &u.PromptID, &ts, &contextID, &u.UserID, &successful,
			&u.ResponseTimeMs, &u.ResultSummary,
		)
		if err != nil {
			return nil, fmt.Errorf("scan prompt usage: %w", err)
		}
		if u.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("parse usage timestamp: %w", err)
		}
		if contextID.Valid {
			v := contextID.Int64
			u.ContextID = &v
		}
		u.Successful = successful == 1
		events = append(events, &u)
	}
	return events, rows.Err()
}
