package sqlite

import (
	"fmt"

	"github.com/prometheusai/promptstore/internal/storage/models"
)

func (s *Store) CreateTag(t *models.Tag) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO Tags (name, description, color) VALUES (?, ?, ?)",
		t.Name, t.Description, t.Color,
	)
	if err != nil {
		return 0, wrapWriteErr("insert tag", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert tag: %w", err)
	}
	t.ID = id
	return id, nil
}

func (s *Store) GetTagByName(name string) (*models.Tag, error) {
	var t models.Tag
	err := s.db.QueryRow(
		"SELECT id, name, description, color FROM Tags WHERE name = ?", name,
	).Scan(&t.ID, &t.Name, &t.Description, &t.Color)
	if err != nil {
		return nil, fmt.Errorf("get tag %q: %w", name, err)
	}
	return &t, nil
}

func (s *Store) ListTags() ([]*models.Tag, error) {
	rows, err := s.db.Query("SELECT id, name, description, color FROM Tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Color); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

func (s *Store) UpdateTag(t *models.Tag) error {
	_, err := s.db.Exec(
		"UPDATE Tags SET name = ?, description = ?, color = ? WHERE id = ?",
		t.Name, t.Description, t.Color, t.ID,
	)
	return wrapWriteErr("update tag", err)
}

// DeleteTag removes the tag; its prompt associations cascade away.
func (s *Store) DeleteTag(id int64) error {
	_, err := s.db.Exec("DELETE FROM Tags WHERE id = ?", id)
	return wrapWriteErr("delete tag", err)
}

func (s *Store) TagPrompt(promptID, tagID int64) error {
	_, err := s.db.Exec(
		"INSERT INTO PromptTagAssociation (prompt_id, tag_id) VALUES (?, ?)",
		promptID, tagID,
	)
	return wrapWriteErr("tag prompt", err)
}

func (s *Store) UntagPrompt(promptID, tagID int64) error {
	_, err := s.db.Exec(
		"DELETE FROM PromptTagAssociation WHERE prompt_id = ? AND tag_id = ?",
		promptID, tagID,
	)
	return wrapWriteErr("untag prompt", err)
}

func (s *Store) GetPromptTags(promptID int64) ([]*models.Tag, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.description, t.color
		FROM Tags t
		JOIN PromptTagAssociation pta ON pta.tag_id = t.id
		WHERE pta.prompt_id = ?
		ORDER BY t.name`,
		promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("get prompt tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Color); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}
