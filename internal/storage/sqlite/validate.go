package sqlite

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prometheusai/promptstore/internal/metrics"
	"github.com/prometheusai/promptstore/pkg/logger"
)

// ValidateOptions tunes the performance battery. The latency ceiling is a
// pass/fail threshold for the report, not an enforced timeout.
type ValidateOptions struct {
	LatencyCeilingMs float64
	Iterations       int
}

type CheckResult struct {
	Name      string
	Passed    bool
	Detail    string
	AvgMillis float64
}

type ValidationReport struct {
	Checks        []CheckResult
	SchemaOK      bool
	PerformanceOK bool
}

func (r *ValidationReport) OK() bool {
	return r.SchemaOK && r.PerformanceOK
}

var expectedTables = []string{
	"SchemaVersion", "Categories", "Prompts", "Tags", "PromptTagAssociation",
	"CategoryHierarchy", "PromptVersions", "PromptScores", "UsageContext",
	"PromptUsage", "Models", "Benchmarks", "BenchmarkResults", "Documentation",
	"PromptDocContext", "ApiKeys", "LlmUsage", "CodeMapUsage", "ReportingMetrics",
	"PromptUrgencyLevels",
}

var expectedIndices = []string{
	"idx_prompts_type", "idx_prompts_category",
	"idx_prompt_tag_prompt_id", "idx_prompt_tag_tag_id",
	"idx_prompt_scores_prompt_id", "idx_prompt_usage_prompt_id",
	"idx_api_keys_provider", "idx_llm_usage_timestamp",
	"idx_code_map_usage_user", "idx_urgency_levels_prompt_id",
}

type batteryQuery struct {
	name string
	sql  string
}

var batteryQueries = []batteryQuery{
	{"list all prompts", "SELECT " + promptColumns + " FROM Prompts"},
	{"prompts by type", "SELECT " + promptColumns + " FROM Prompts WHERE type = 'code_review'"},
	{"prompts with tags", `
		SELECT p.id, p.title, GROUP_CONCAT(t.name)
		FROM Prompts p
		LEFT JOIN PromptTagAssociation pta ON p.id = pta.prompt_id
		LEFT JOIN Tags t ON pta.tag_id = t.id
		GROUP BY p.id`},
	{"usage statistics", `
		SELECT p.id, p.title, COUNT(pu.id)
		FROM Prompts p
		LEFT JOIN PromptUsage pu ON p.id = pu.prompt_id
		GROUP BY p.id
		ORDER BY COUNT(pu.id) DESC`},
	{"search by title or description", `
		SELECT id, title FROM Prompts
		WHERE title LIKE '%AI%' OR description LIKE '%AI%'`},
	{"benchmark results by model", `
		SELECT m.name, br.accuracy_score, br.coherence_score, br.creativity_score, br.instruction_score
		FROM BenchmarkResults br
		JOIN Models m ON br.model_id = m.id`},
	{"api keys by provider", `
		SELECT provider, key_name, usage_current, usage_limit
		FROM ApiKeys ORDER BY provider, key_name`},
	{"llm usage statistics", `
		SELECT model, provider, SUM(total_tokens), SUM(cost)
		FROM LlmUsage GROUP BY model, provider`},
	{"code map usage by user", `
		SELECT user_id, COUNT(*), AVG(complexity_score)
		FROM CodeMapUsage GROUP BY user_id`},
}

// Validate inspects the live database and reports structural conformance and
// query latency. It is read-only: failed checks are report entries, never
// errors, so one run surfaces every problem at once.
func (s *Store) Validate(opts ValidateOptions) (*ValidationReport, error) {
	if opts.LatencyCeilingMs <= 0 {
		opts.LatencyCeilingMs = 100
	}
	if opts.Iterations <= 0 {
		opts.Iterations = 5
	}

	report := &ValidationReport{SchemaOK: true, PerformanceOK: true}

	existing, err := s.objectNames("table")
	if err != nil {
		return nil, err
	}
	for _, table := range expectedTables {
		check := CheckResult{Name: "table " + table, Passed: existing[table]}
		if !check.Passed {
			check.Detail = "table does not exist"
			report.SchemaOK = false
		}
		report.Checks = append(report.Checks, check)
	}

	indices, err := s.objectNames("index")
	if err != nil {
		return nil, err
	}
	for _, index := range expectedIndices {
		check := CheckResult{Name: "index " + index, Passed: indices[index]}
		if !check.Passed {
			check.Detail = "index does not exist"
			report.SchemaOK = false
		}
		report.Checks = append(report.Checks, check)
	}

	fkCheck, err := s.foreignKeyCheck()
	if err != nil {
		return nil, err
	}
	if !fkCheck.Passed {
		report.SchemaOK = false
	}
	report.Checks = append(report.Checks, fkCheck)

	// The battery only runs against a structurally complete schema.
	if report.SchemaOK {
		for _, q := range batteryQueries {
			check, err := s.timeQuery(q, opts)
			if err != nil {
				return nil, err
			}
			if !check.Passed {
				report.PerformanceOK = false
			}
			report.Checks = append(report.Checks, check)
		}
	}

	logger.Info("schema validation finished",
		zap.Bool("schema_ok", report.SchemaOK),
		zap.Bool("performance_ok", report.PerformanceOK),
		zap.Int("checks", len(report.Checks)),
	)
	return report, nil
}

func (s *Store) objectNames(objectType string) (map[string]bool, error) {
	rows, err := s.db.Query(
		"SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%'",
		objectType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s objects: %w", objectType, err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan object name: %w", err)
		}
		names[name] = true
	}
	return names, rows.Err()
}

func (s *Store) foreignKeyCheck() (CheckResult, error) {
	rows, err := s.db.Query("PRAGMA foreign_key_check")
	if err != nil {
		return CheckResult{}, fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	violations := 0
	detail := ""
	for rows.Next() {
		var table string
		var rowid, fkid interface{}
		var parent string
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return CheckResult{}, fmt.Errorf("foreign key check: %w", err)
		}
		violations++
		if detail == "" {
			detail = fmt.Sprintf("first violation: table %s references %s", table, parent)
		}
	}
	if err := rows.Err(); err != nil {
		return CheckResult{}, fmt.Errorf("foreign key check: %w", err)
	}

	check := CheckResult{Name: "foreign key integrity", Passed: violations == 0, Detail: detail}
	if violations > 0 {
		check.Detail = fmt.Sprintf("%d violation(s); %s", violations, detail)
	}
	return check, nil
}

func (s *Store) timeQuery(q batteryQuery, opts ValidateOptions) (CheckResult, error) {
	var total time.Duration
	var rowCount int

	for i := 0; i < opts.Iterations; i++ {
		start := time.Now()
		rows, err := s.db.Query(q.sql)
		if err != nil {
			return CheckResult{}, fmt.Errorf("battery query %q: %w", q.name, err)
		}
		rowCount = 0
		for rows.Next() {
			rowCount++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return CheckResult{}, fmt.Errorf("battery query %q: %w", q.name, err)
		}
		rows.Close()
		elapsed := time.Since(start)
		total += elapsed
		metrics.ValidatorQueryDuration.WithLabelValues(q.name).Observe(elapsed.Seconds())
	}

	avgMillis := float64(total.Microseconds()) / float64(opts.Iterations) / 1000.0
	check := CheckResult{
		Name:      "query: " + q.name,
		Passed:    avgMillis < opts.LatencyCeilingMs,
		Detail:    fmt.Sprintf("%.2fms avg over %d runs, %d rows", avgMillis, opts.Iterations, rowCount),
		AvgMillis: avgMillis,
	}
	return check, nil
}
