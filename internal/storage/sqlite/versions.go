package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheusai/promptstore/internal/storage/models"
)

// AddPromptVersion appends an immutable template snapshot. With VersionNum
// zero the next number in sequence is assigned.
func (s *Store) AddPromptVersion(v *models.PromptVersion) (int64, error) {
	if v.CreatedDate.IsZero() {
		v.CreatedDate = time.Now()
	}

	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		if v.VersionNum == 0 {
			var maxNum sql.NullInt64
			err := tx.QueryRow(
				"SELECT MAX(version_num) FROM PromptVersions WHERE prompt_id = ?", v.PromptID,
			).Scan(&maxNum)
			if err != nil {
				return fmt.Errorf("next version number: %w", err)
			}
			v.VersionNum = int(maxNum.Int64) + 1
		}

		res, err := tx.Exec(`
			INSERT INTO PromptVersions (prompt_id, version_num, template, created_date, author, version_score)
			VALUES (?, ?, ?, ?, ?, ?)`,
			v.PromptID, v.VersionNum, v.Template, formatTime(v.CreatedDate), v.Author, v.VersionScore,
		)
		if err != nil {
			return wrapWriteErr("insert prompt version", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert prompt version: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	v.ID = id
	return id, nil
}

func (s *Store) GetPromptVersion(promptID int64, versionNum int) (*models.PromptVersion, error) {
	row := s.db.QueryRow(`
		SELECT id, prompt_id, version_num, template, created_date, author, version_score
		FROM PromptVersions WHERE prompt_id = ? AND version_num = ?`,
		promptID, versionNum,
	)
	v, err := scanPromptVersion(row)
	if err != nil {
		return nil, fmt.Errorf("get prompt version %d/%d: %w", promptID, versionNum, err)
	}
	return v, nil
}

func (s *Store) ListPromptVersions(promptID int64) ([]*models.PromptVersion, error) {
	rows, err := s.db.Query(`
		SELECT id, prompt_id, version_num, template, created_date, author, version_score
		FROM PromptVersions WHERE prompt_id = ? ORDER BY version_num`,
		promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("list prompt versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.PromptVersion
	for rows.Next() {
		v, err := scanPromptVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func scanPromptVersion(row rowScanner) (*models.PromptVersion, error) {
	var v models.PromptVersion
	var created string
	var score sql.NullFloat64
	err := row.Scan(&v.ID, &v.PromptID, &v.VersionNum, &v.Template, &created, &v.Author, &score)
	if err != nil {
		return nil, err
	}
	if v.CreatedDate, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse version created_date: %w", err)
	}
	if score.Valid {
		f := score.Float64
		v.VersionScore = &f
	}
	return &v, nil
}
