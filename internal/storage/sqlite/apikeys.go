package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheusai/promptstore/internal/storage/models"
)

// CreateApiKey stores a provider credential. key_value arrives already
// encrypted; the store treats it as an opaque string.
func (s *Store) CreateApiKey(k *models.ApiKey) (int64, error) {
	if k.CreatedDate.IsZero() {
		k.CreatedDate = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO ApiKeys (provider, key_name, key_value, usage_limit, created_date)
		VALUES (?, ?, ?, ?, ?)`,
		k.Provider, k.KeyName, k.KeyValue, k.UsageLimit, formatTime(k.CreatedDate),
	)
	if err != nil {
		return 0, wrapWriteErr("insert api key", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert api key: %w", err)
	}
	k.ID = id
	return id, nil
}

func (s *Store) GetApiKey(id int64) (*models.ApiKey, error) {
	row := s.db.QueryRow(`
		SELECT id, provider, key_name, key_value, usage_limit, usage_current,
			created_date, last_used_date
		FROM ApiKeys WHERE id = ?`, id,
	)
	k, err := scanApiKey(row)
	if err != nil {
		return nil, fmt.Errorf("get api key %d: %w", id, err)
	}
	return k, nil
}

func (s *Store) GetApiKeysByProvider(provider string) ([]*models.ApiKey, error) {
	rows, err := s.db.Query(`
		SELECT id, provider, key_name, key_value, usage_limit, usage_current,
			created_date, last_used_date
		FROM ApiKeys WHERE provider = ? ORDER BY key_name`,
		provider,
	)
	if err != nil {
		return nil, fmt.Errorf("get api keys by provider: %w", err)
	}
	defer rows.Close()

	var keys []*models.ApiKey
	for rows.Next() {
		k, err := scanApiKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) DeleteApiKey(id int64) error {
	_, err := s.db.Exec("DELETE FROM ApiKeys WHERE id = ?", id)
	return wrapWriteErr("delete api key", err)
}

func scanApiKey(row rowScanner) (*models.ApiKey, error) {
	var k models.ApiKey
	var usageLimit sql.NullFloat64
	var created string
	var lastUsed sql.NullString
	err := row.Scan(
		&k.ID, &k.Provider, &k.KeyName, &k.KeyValue, &usageLimit,
		&k.UsageCurrent, &created, &lastUsed,
	)
	if err != nil {
		return nil, err
	}
	if usageLimit.Valid {
		v := usageLimit.Float64
		k.UsageLimit = &v
	}
	if k.CreatedDate, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse api key created_date: %w", err)
	}
	if lastUsed.Valid && lastUsed.String != "" {
		t, err := parseTime(lastUsed.String)
		if err != nil {
			return nil, fmt.Errorf("parse api key last_used_date: %w", err)
		}
		k.LastUsedDate = &t
	}
	return &k, nil
}
