package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/prometheusai/promptstore/internal/storage/models"
)

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	var avgScore sql.NullFloat64
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.DisplayOrder, &c.PromptCount, &avgScore)
	if err != nil {
		return nil, err
	}
	if avgScore.Valid {
		v := avgScore.Float64
		c.AvgCategoryScore = &v
	}
	return &c, nil
}

const categoryColumns = "id, name, description, display_order, prompt_count, avg_category_score"

func (s *Store) CreateCategory(c *models.Category) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO Categories (name, description, display_order) VALUES (?, ?, ?)",
		c.Name, c.Description, c.DisplayOrder,
	)
	if err != nil {
		return 0, wrapWriteErr("insert category", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	c.ID = id
	return id, nil
}

func (s *Store) GetCategory(id int64) (*models.Category, error) {
	row := s.db.QueryRow("SELECT "+categoryColumns+" FROM Categories WHERE id = ?", id)
	c, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) ListCategories() ([]*models.Category, error) {
	rows, err := s.db.Query("SELECT " + categoryColumns + " FROM Categories ORDER BY display_order, name")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) UpdateCategory(c *models.Category) error {
	_, err := s.db.Exec(
		"UPDATE Categories SET name = ?, description = ?, display_order = ? WHERE id = ?",
		c.Name, c.Description, c.DisplayOrder, c.ID,
	)
	return wrapWriteErr("update category", err)
}

// DeleteCategory removes the category. Hierarchy edges cascade; prompts in
// the category keep their rows with category_id set to NULL.
func (s *Store) DeleteCategory(id int64) error {
	_, err := s.db.Exec("DELETE FROM Categories WHERE id = ?", id)
	return wrapWriteErr("delete category", err)
}

// AddCategoryChild inserts a parent/child edge. Cycle prevention is the
// calling service's responsibility; the schema does not enforce it.
func (s *Store) AddCategoryChild(parentID, childID int64) error {
	_, err := s.db.Exec(
		"INSERT INTO CategoryHierarchy (parent_id, child_id) VALUES (?, ?)",
		parentID, childID,
	)
	return wrapWriteErr("add category child", err)
}

func (s *Store) RemoveCategoryChild(parentID, childID int64) error {
	_, err := s.db.Exec(
		"DELETE FROM CategoryHierarchy WHERE parent_id = ? AND child_id = ?",
		parentID, childID,
	)
	return wrapWriteErr("remove category child", err)
}

func (s *Store) GetCategoryChildren(parentID int64) ([]*models.Category, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.name, c.description, c.display_order, c.prompt_count, c.avg_category_score
		FROM Categories c
		JOIN CategoryHierarchy ch ON ch.child_id = c.id
		WHERE ch.parent_id = ?
		ORDER BY c.display_order, c.name`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("get category children: %w", err)
	}
	defer rows.Close()

	var children []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		children = append(children, c)
	}
	return children, rows.Err()
}
