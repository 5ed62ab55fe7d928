package models

import "time"

type Prompt struct {
	ID                int64
	Type              string
	Title             string
	Template          string
	Description       string
	Author            string
	Version           string
	CreatedDate       time.Time
	UpdatedDate       time.Time
	CategoryID        *int64
	IsCustom          bool
	AvgScore          *float64
	UsageCount        int64
	LastUsed          *time.Time
	UsesUrgencyLevels bool
}

type PromptUrgencyLevel struct {
	ID           int64
	PromptID     int64
	UrgencyLevel int
	Content      string
}

type Tag struct {
	ID          int64
	Name        string
	Description string
	Color       string
}

type Category struct {
	ID               int64
	Name             string
	Description      string
	DisplayOrder     int
	PromptCount      int64
	AvgCategoryScore *float64
}

type CategoryEdge struct {
	ID       int64
	ParentID int64
	ChildID  int64
}

type PromptVersion struct {
	ID           int64
	PromptID     int64
	VersionNum   int
	Template     string
	CreatedDate  time.Time
	Author       string
	VersionScore *float64
}

type PromptScore struct {
	ID                 int64
	PromptID           int64
	ClarityScore       int
	SpecificityScore   int
	EffectivenessScore int
	OverallScore       int
	Scorer             string
	Timestamp          time.Time
	Feedback           string
}

type PromptUsage struct {
	ID             int64
	PromptID       int64
	Timestamp      time.Time
	ContextID      *int64
	UserID         string
	Successful     bool
	ResponseTimeMs int64
	ResultSummary  string
}

type UsageContext struct {
	ID          int64
	ContextType string
	ContextName string
	Description string
}

type Model struct {
	ID            int64
	Name          string
	Provider      string
	Description   string
	Version       string
	ContextWindow int64
	IsLocal       bool
}

type Benchmark struct {
	ID          int64
	Name        string
	Description string
	PromptText  string
	Metrics     []string
	CreatedDate time.Time
}

type BenchmarkResult struct {
	ID               int64
	BenchmarkID      int64
	ModelID          int64
	PromptID         *int64
	AccuracyScore    int
	CoherenceScore   int
	CreativityScore  int
	InstructionScore int
	ResponseText     string
	ResponseTimeMs   int64
	Timestamp        time.Time
}

type Documentation struct {
	ID          int64
	Title       string
	Content     string
	Source      string
	CreatedDate time.Time
	UpdatedDate *time.Time
}

type PromptDocContext struct {
	ID             int64
	DocID          int64
	PromptID       *int64
	RelevanceScore float64
	IsActive       bool
}

type ApiKey struct {
	ID           int64
	Provider     string
	KeyName      string
	KeyValue     string // encrypted by the caller before it reaches the store
	UsageLimit   *float64
	UsageCurrent float64
	CreatedDate  time.Time
	LastUsedDate *time.Time
}

type LlmUsage struct {
	ID               int64
	ApiKeyID         *int64
	PromptID         *int64
	Model            string
	Provider         string
	Timestamp        time.Time
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	Cost             float64
}

type CodeMapUsage struct {
	ID              int64
	ApiKeyID        *int64
	PromptID        *int64
	UserID          string
	Timestamp       time.Time
	FileCount       int64
	ComplexityScore float64
}

type ReportingMetric struct {
	ID             int64
	MetricType     string
	MetricName     string
	Timestamp      string
	Dimension      string
	DimensionValue string
	Value          float64
}

type SchemaVersion struct {
	Version     int
	AppliedDate time.Time
	Description string
}
