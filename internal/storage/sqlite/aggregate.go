package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheusai/promptstore/internal/metrics"
	"github.com/prometheusai/promptstore/internal/storage/models"
)

// Derived fields (avg_score, usage_count, last_used, avg_category_score,
// ReportingMetrics values) are maintained exclusively by the functions in
// this file, inside the same transaction as the write that triggers them.
// Application code must never set them directly.

const dayLayout = "2006-01-02"

// RecordScore inserts a scoring event and recomputes the owning prompt's
// avg_score (and its category's rollup) before committing.
func (s *Store) RecordScore(score *models.PromptScore) (int64, error) {
	if score.Timestamp.IsZero() {
		score.Timestamp = time.Now()
	}
	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO PromptScores (
				prompt_id, clarity_score, specificity_score, effectiveness_score,
				overall_score, scorer, timestamp, feedback
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			score.PromptID, score.ClarityScore, score.SpecificityScore,
			score.EffectivenessScore, score.OverallScore, score.Scorer,
			formatTime(score.Timestamp), score.Feedback,
		)
		if err != nil {
			return wrapWriteErr("insert prompt score", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert prompt score: %w", err)
		}
		return s.recomputePromptScore(tx, score.PromptID)
	})
	if err != nil {
		return 0, err
	}
	score.ID = id
	return id, nil
}

// UpdateScore rewrites an existing scoring event and recomputes the parent
// rollup. Sibling score rows are never touched.
func (s *Store) UpdateScore(score *models.PromptScore) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE PromptScores
			SET clarity_score = ?, specificity_score = ?, effectiveness_score = ?,
				overall_score = ?, scorer = ?, feedback = ?
			WHERE id = ?`,
			score.ClarityScore, score.SpecificityScore, score.EffectivenessScore,
			score.OverallScore, score.Scorer, score.Feedback, score.ID,
		)
		if err != nil {
			return wrapWriteErr("update prompt score", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update prompt score: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("update prompt score: no row with id %d", score.ID)
		}
		return s.recomputePromptScore(tx, score.PromptID)
	})
}

// RecordUsage inserts a usage event, bumps the prompt's usage counter, and
// accumulates the daily reporting metric. last_used is last-insert-wins, not
// max-of-timestamps.
func (s *Store) RecordUsage(usage *models.PromptUsage) (int64, error) {
	if usage.Timestamp.IsZero() {
		usage.Timestamp = time.Now()
	}
	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO PromptUsage (
				prompt_id, timestamp, context_id, user_id, successful,
				response_time_ms, result_summary
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			usage.PromptID, formatTime(usage.Timestamp), nullableID(usage.ContextID),
			usage.UserID, boolToInt(usage.Successful), usage.ResponseTimeMs,
			usage.ResultSummary,
		)
		if err != nil {
			return wrapWriteErr("insert prompt usage", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert prompt usage: %w", err)
		}

		_, err = tx.Exec(
			"UPDATE Prompts SET usage_count = usage_count + 1, last_used = ? WHERE id = ?",
			formatTime(usage.Timestamp), usage.PromptID,
		)
		if err != nil {
			return fmt.Errorf("bump prompt usage counter: %w", err)
		}

		day := usage.Timestamp.UTC().Format(dayLayout)
		if err := accumulateMetric(tx, "usage", "daily_count", day,
			"prompt", strconv.FormatInt(usage.PromptID, 10), 1); err != nil {
			return err
		}
		metrics.AggregateRecomputes.WithLabelValues("prompt_usage").Inc()
		return nil
	})
	if err != nil {
		return 0, err
	}
	usage.ID = id
	return id, nil
}

// RecordLlmUsage inserts a billing event, accumulates the daily token and
// cost metrics, and charges the referenced API key.
func (s *Store) RecordLlmUsage(usage *models.LlmUsage) (int64, error) {
	if usage.Timestamp.IsZero() {
		usage.Timestamp = time.Now()
	}
	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO LlmUsage (
				api_key_id, prompt_id, model, provider, timestamp,
				prompt_tokens, completion_tokens, total_tokens, cost
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullableID(usage.ApiKeyID), nullableID(usage.PromptID), usage.Model,
			usage.Provider, formatTime(usage.Timestamp), usage.PromptTokens,
			usage.CompletionTokens, usage.TotalTokens, usage.Cost,
		)
		if err != nil {
			return wrapWriteErr("insert llm usage", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert llm usage: %w", err)
		}

		day := usage.Timestamp.UTC().Format(dayLayout)
		if err := accumulateMetric(tx, "llm", "daily_tokens", day,
			"model", usage.Model, float64(usage.TotalTokens)); err != nil {
			return err
		}
		if err := accumulateMetric(tx, "llm", "daily_cost", day,
			"provider", usage.Provider, usage.Cost); err != nil {
			return err
		}

		if usage.ApiKeyID != nil {
			_, err = tx.Exec(`
				UPDATE ApiKeys
				SET usage_current = usage_current + ?, last_used_date = ?
				WHERE id = ?`,
				usage.Cost, formatTime(usage.Timestamp), *usage.ApiKeyID,
			)
			if err != nil {
				return fmt.Errorf("charge api key: %w", err)
			}
		}
		metrics.AggregateRecomputes.WithLabelValues("llm_usage").Inc()
		return nil
	})
	if err != nil {
		return 0, err
	}
	usage.ID = id
	return id, nil
}

// RecordCodeMapUsage inserts a telemetry event, bumps the per-user daily
// invocation counter, and folds the complexity score into the per-user
// average as (old_avg + new_value) / 2 — the formula the desktop app ships
// with, kept verbatim so existing dashboards read the same numbers.
func (s *Store) RecordCodeMapUsage(usage *models.CodeMapUsage) (int64, error) {
	if usage.Timestamp.IsZero() {
		usage.Timestamp = time.Now()
	}
	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO CodeMapUsage (
				api_key_id, prompt_id, user_id, timestamp, file_count, complexity_score
			) VALUES (?, ?, ?, ?, ?, ?)`,
			nullableID(usage.ApiKeyID), nullableID(usage.PromptID), usage.UserID,
			formatTime(usage.Timestamp), usage.FileCount, usage.ComplexityScore,
		)
		if err != nil {
			return wrapWriteErr("insert code map usage", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert code map usage: %w", err)
		}

		day := usage.Timestamp.UTC().Format(dayLayout)
		if err := accumulateMetric(tx, "code_map", "daily_invocations", day,
			"user", usage.UserID, 1); err != nil {
			return err
		}
		if err := halveIntoMetric(tx, "code_map", "avg_complexity", "",
			"user", usage.UserID, usage.ComplexityScore); err != nil {
			return err
		}
		metrics.AggregateRecomputes.WithLabelValues("code_map_usage").Inc()
		return nil
	})
	if err != nil {
		return 0, err
	}
	usage.ID = id
	return id, nil
}

// GetReportingMetric reads one fact-table cell. The bool reports presence.
func (s *Store) GetReportingMetric(metricType, metricName, timestamp, dimension, dimensionValue string) (float64, bool, error) {
	var value float64
	err := s.db.QueryRow(`
		SELECT value FROM ReportingMetrics
		WHERE metric_type = ? AND metric_name = ? AND timestamp = ?
			AND dimension = ? AND dimension_value = ?`,
		metricType, metricName, timestamp, dimension, dimensionValue,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read reporting metric: %w", err)
	}
	return value, true, nil
}

// recomputePromptScore sets the prompt's avg_score to the mean of all its
// recorded overall_score values (NULL when none exist, never zero), then
// refreshes the owning category's rollup.
func (s *Store) recomputePromptScore(tx *sql.Tx, promptID int64) error {
	_, err := tx.Exec(`
		UPDATE Prompts
		SET avg_score = (SELECT AVG(overall_score) FROM PromptScores WHERE prompt_id = ?)
		WHERE id = ?`,
		promptID, promptID,
	)
	if err != nil {
		return fmt.Errorf("recompute prompt avg_score: %w", err)
	}
	metrics.AggregateRecomputes.WithLabelValues("prompt_score").Inc()

	var categoryID sql.NullInt64
	err = tx.QueryRow("SELECT category_id FROM Prompts WHERE id = ?", promptID).Scan(&categoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read prompt category: %w", err)
	}
	if categoryID.Valid {
		return s.recomputeCategoryStats(tx, categoryID.Int64)
	}
	return nil
}

// recomputeCategoryStats refreshes prompt_count and avg_category_score for
// one category. Prompts without a score are excluded from the mean.
func (s *Store) recomputeCategoryStats(tx *sql.Tx, categoryID int64) error {
	_, err := tx.Exec(`
		UPDATE Categories
		SET prompt_count = (SELECT COUNT(*) FROM Prompts WHERE category_id = ?),
			avg_category_score = (
				SELECT AVG(avg_score) FROM Prompts
				WHERE category_id = ? AND avg_score IS NOT NULL
			)
		WHERE id = ?`,
		categoryID, categoryID, categoryID,
	)
	if err != nil {
		return fmt.Errorf("recompute category stats: %w", err)
	}
	metrics.AggregateRecomputes.WithLabelValues("category").Inc()
	return nil
}

// accumulateMetric is the upsert-accumulate primitive of the fact table:
// insert the cell if absent, otherwise add to its value.
func accumulateMetric(tx *sql.Tx, metricType, metricName, timestamp, dimension, dimensionValue string, delta float64) error {
	_, err := tx.Exec(`
		INSERT INTO ReportingMetrics (metric_type, metric_name, timestamp, dimension, dimension_value, value)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(metric_type, metric_name, timestamp, dimension, dimension_value)
		DO UPDATE SET value = value + excluded.value`,
		metricType, metricName, timestamp, dimension, dimensionValue, delta,
	)
	if err != nil {
		return fmt.Errorf("accumulate reporting metric %s/%s: %w", metricType, metricName, err)
	}
	return nil
}

// halveIntoMetric folds a new sample into a cell as (old + new) / 2. Not a
// true running mean; see RecordCodeMapUsage.
func halveIntoMetric(tx *sql.Tx, metricType, metricName, timestamp, dimension, dimensionValue string, value float64) error {
	var existing float64
	err := tx.QueryRow(`
		SELECT value FROM ReportingMetrics
		WHERE metric_type = ? AND metric_name = ? AND timestamp = ?
			AND dimension = ? AND dimension_value = ?`,
		metricType, metricName, timestamp, dimension, dimensionValue,
	).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = tx.Exec(`
			INSERT INTO ReportingMetrics (metric_type, metric_name, timestamp, dimension, dimension_value, value)
			VALUES (?, ?, ?, ?, ?, ?)`,
			metricType, metricName, timestamp, dimension, dimensionValue, value,
		)
		if err != nil {
			return fmt.Errorf("insert reporting metric %s/%s: %w", metricType, metricName, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read reporting metric %s/%s: %w", metricType, metricName, err)
	}

	_, err = tx.Exec(`
		UPDATE ReportingMetrics SET value = ?
		WHERE metric_type = ? AND metric_name = ? AND timestamp = ?
			AND dimension = ? AND dimension_value = ?`,
		(existing+value)/2, metricType, metricName, timestamp, dimension, dimensionValue,
	)
	if err != nil {
		return fmt.Errorf("update reporting metric %s/%s: %w", metricType, metricName, err)
	}
	return nil
}
