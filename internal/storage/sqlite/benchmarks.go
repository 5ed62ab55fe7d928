package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheusai/promptstore/internal/storage/models"
)

func (s *Store) CreateModel(m *models.Model) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO Models (name, provider, description, version, context_window, is_local)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.Name, m.Provider, m.Description, m.Version, m.ContextWindow, boolToInt(m.IsLocal),
	)
	if err != nil {
		return 0, wrapWriteErr("insert model", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert model: %w", err)
	}
	m.ID = id
	return id, nil
}

func (s *Store) ListModels() ([]*models.Model, error) {
	rows, err := s.db.Query(`
		SELECT id, name, provider, description, version, context_window, is_local
		FROM Models ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var result []*models.Model
	for rows.Next() {
		var m models.Model
		var isLocal int
		err := rows.Scan(&m.ID, &m.Name, &m.Provider, &m.Description, &m.Version, &m.ContextWindow, &isLocal)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		m.IsLocal = isLocal == 1
		result = append(result, &m)
	}
	return result, rows.Err()
}

// CreateBenchmark stores the definition with its metric list JSON-encoded.
func (s *Store) CreateBenchmark(b *models.Benchmark) (int64, error) {
	if b.CreatedDate.IsZero() {
		b.CreatedDate = time.Now()
	}
	metricsJSON, err := json.Marshal(b.Metrics)
	if err != nil {
		return 0, fmt.Errorf("encode benchmark metrics: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO Benchmarks (name, description, prompt_text, metrics, created_date)
		VALUES (?, ?, ?, ?, ?)`,
		b.Name, b.Description, b.PromptText, string(metricsJSON), formatTime(b.CreatedDate),
	)
	if err != nil {
		return 0, wrapWriteErr("insert benchmark", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert benchmark: %w", err)
	}
	b.ID = id
	return id, nil
}

func (s *Store) GetBenchmark(id int64) (*models.Benchmark, error) {
	var b models.Benchmark
	var created, metricsJSON string
	err := s.db.QueryRow(`
		SELECT id, name, description, prompt_text, metrics, created_date
		FROM Benchmarks WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Description, &b.PromptText, &metricsJSON, &created)
	if err != nil {
		return nil, fmt.Errorf("get benchmark %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &b.Metrics); err != nil {
		return nil, fmt.Errorf("decode benchmark metrics: %w", err)
	}
	if b.CreatedDate, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse benchmark created_date: %w", err)
	}
	return &b, nil
}

func (s *Store) RecordBenchmarkResult(r *models.BenchmarkResult) (int64, error) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO BenchmarkResults (
			benchmark_id, model_id, prompt_id, accuracy_score, coherence_score,
			creativity_score, instruction_score, response_text, response_time_ms, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.BenchmarkID, r.ModelID, nullableID(r.PromptID), r.AccuracyScore,
		r.CoherenceScore, r.CreativityScore, r.InstructionScore,
		r.ResponseText, r.ResponseTimeMs, formatTime(r.Timestamp),
	)
	if err != nil {
		return 0, wrapWriteErr("insert benchmark result", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert benchmark result: %w", err)
	}
	r.ID = id
	return id, nil
}

func (s *Store) GetBenchmarkResultsByModel(modelID int64) ([]*models.BenchmarkResult, error) {
	rows, err := s.db.Query(`
		SELECT id, benchmark_id, model_id, prompt_id, accuracy_score, coherence_score,
			creativity_score, instruction_score, response_text, response_time_ms, timestamp
		FROM BenchmarkResults WHERE model_id = ? ORDER BY timestamp`,
		modelID,
	)
	if err != nil {
		return nil, fmt.Errorf("get benchmark results: %w", err)
	}
	defer rows.Close()

	var results []*models.BenchmarkResult
	for rows.Next() {
		var r models.BenchmarkResult
		var promptID sql.NullInt64
		var ts string
		err := rows.Scan(
			&r.ID, &r.BenchmarkID, &r.ModelID, &promptID, &r.AccuracyScore,
			&r.CoherenceScore, &r.CreativityScore, &r.InstructionScore,
			&r.ResponseText, &r.ResponseTimeMs, &ts,
		)
		if err != nil {
			return nil, fmt.Errorf("scan benchmark result: %w", err)
		}
		if promptID.Valid {
			v := promptID.Int64
			r.PromptID = &v
		}
		if r.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("parse benchmark result timestamp: %w", err)
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}
