// Package api defines the wire types for the zen PipelineAI architecture
// endpoints. Field names and optionality mirror the backend schema; optional
// fields use pointers so "absent" and "zero" stay distinguishable.
package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NodeType classifies a dependency node.
type NodeType string

const (
	NodeModule  NodeType = "module"
	NodePackage NodeType = "package"
	NodeService NodeType = "service"
)

// EdgeType classifies the relationship an edge represents.
type EdgeType string

const (
	EdgeImport EdgeType = "import"
	EdgeCall   EdgeType = "call"
	EdgeData   EdgeType = "data"
)

// DependencyNode is one module in a repository's dependency graph.
type DependencyNode struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        NodeType `json:"type"`
	Size        *int     `json:"size,omitempty"`
	HealthScore *float64 `json:"health_score,omitempty"`
	FileCount   *int     `json:"file_count,omitempty"`
}

// DependencyEdge is a directed relationship between two nodes, referenced
// by node id.
type DependencyEdge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Weight int      `json:"weight,omitempty"`
	Type   EdgeType `json:"type"`
}

// UnmarshalJSON defaults Weight to 1 when the backend omits it, matching the
// DependencyEdge schema default.
func (e *DependencyEdge) UnmarshalJSON(data []byte) error {
	type alias DependencyEdge
	aux := alias{Weight: 1}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = DependencyEdge(aux)
	return nil
}

// DependencyGraph is the full graph payload for one repository.
type DependencyGraph struct {
	RepositoryID         uuid.UUID           `json:"repository_id"`
	Nodes                []DependencyNode    `json:"nodes"`
	Edges                []DependencyEdge    `json:"edges"`
	CircularDependencies [][]string          `json:"circular_dependencies"`
	Layers               map[string][]string `json:"layers,omitempty"`
}

// RuleSeverity is the enforcement level of an architecture rule.
type RuleSeverity string

const (
	SeverityInfo     RuleSeverity = "info"
	SeverityWarning  RuleSeverity = "warning"
	SeverityError    RuleSeverity = "error"
	SeverityCritical RuleSeverity = "critical"
)

// Rule is a configured architecture rule.
type Rule struct {
	ID              uuid.UUID      `json:"id"`
	OrganizationID  uuid.UUID      `json:"organization_id"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	RuleType        string         `json:"rule_type"` // dependency, naming, structure, import, layer
	Severity        RuleSeverity   `json:"severity"`
	RuleDefinition  map[string]any `json:"rule_definition"`
	Enabled         bool           `json:"enabled"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       *time.Time     `json:"updated_at,omitempty"`
	ViolationsCount *int           `json:"violations_count,omitempty"`
}

// RuleCreate is the payload for creating a rule.
type RuleCreate struct {
	OrganizationID uuid.UUID      `json:"organization_id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	RuleType       string         `json:"rule_type"`
	Severity       RuleSeverity   `json:"severity,omitempty"`
	RuleDefinition map[string]any `json:"rule_definition"`
	Enabled        *bool          `json:"enabled,omitempty"`
}

// RuleUpdate is the partial-update payload for a rule. Nil fields are left
// unchanged by the backend.
type RuleUpdate struct {
	Name           *string        `json:"name,omitempty"`
	Description    *string        `json:"description,omitempty"`
	Severity       *RuleSeverity  `json:"severity,omitempty"`
	RuleDefinition map[string]any `json:"rule_definition,omitempty"`
	Enabled        *bool          `json:"enabled,omitempty"`
}

// Violation is a detected breach of an architecture rule.
type Violation struct {
	ID            uuid.UUID      `json:"id"`
	RepositoryID  uuid.UUID      `json:"repository_id"`
	RuleID        uuid.UUID      `json:"rule_id"`
	RuleName      string         `json:"rule_name,omitempty"`
	SourceModule  string         `json:"source_module"`
	TargetModule  string         `json:"target_module"`
	ViolationType string         `json:"violation_type"`
	FilePath      string         `json:"file_path,omitempty"`
	LineNumber    string         `json:"line_number,omitempty"`
	Details       map[string]any `json:"details"`
	IsResolved    bool           `json:"is_resolved"`
	DetectedAt    time.Time      `json:"detected_at"`
	ResolvedAt    *time.Time     `json:"resolved_at,omitempty"`
}

// ValidateRequest asks the backend to validate a repository against rules.
// Rules limits the run to specific rule ids; nil means all enabled rules.
type ValidateRequest struct {
	RepositoryID uuid.UUID   `json:"repository_id"`
	CommitSHA    string      `json:"commit_sha,omitempty"`
	Rules        []uuid.UUID `json:"rules,omitempty"`
}

// ValidationResult is the outcome of one rule within a validate run.
type ValidationResult struct {
	RuleID     uuid.UUID   `json:"rule_id"`
	RuleName   string      `json:"rule_name"`
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations"`
}

// ValidateResponse summarizes a validate run.
type ValidateResponse struct {
	RepositoryID uuid.UUID          `json:"repository_id"`
	Passed       bool               `json:"passed"`
	TotalRules   int                `json:"total_rules"`
	PassedRules  int                `json:"passed_rules"`
	FailedRules  int                `json:"failed_rules"`
	Results      []ValidationResult `json:"results"`
}

// DriftReport measures divergence from an architectural baseline.
type DriftReport struct {
	RepositoryID        uuid.UUID        `json:"repository_id"`
	BaselineDate        time.Time        `json:"baseline_date"`
	CurrentDate         time.Time        `json:"current_date"`
	DriftScore          float64          `json:"drift_score"` // 0-100
	Changes             []map[string]any `json:"changes"`
	NewDependencies     []string         `json:"new_dependencies"`
	RemovedDependencies []string         `json:"removed_dependencies"`
	LayerViolations     []Violation      `json:"layer_violations"`
	Recommendations     []string         `json:"recommendations"`
}

// ComplianceTrend is the direction a repository's compliance is moving.
type ComplianceTrend string

const (
	TrendImproving ComplianceTrend = "improving"
	TrendStable    ComplianceTrend = "stable"
	TrendDeclining ComplianceTrend = "declining"
)

// ComplianceStatus is the aggregate rule-compliance posture of a repository.
type ComplianceStatus struct {
	RepositoryID       uuid.UUID       `json:"repository_id"`
	OverallScore       float64         `json:"overall_score"`
	RulesCompliant     int             `json:"rules_compliant"`
	RulesViolated      int             `json:"rules_violated"`
	CriticalViolations int             `json:"critical_violations"`
	LastChecked        time.Time       `json:"last_checked"`
	Trend              ComplianceTrend `json:"trend"`
}

// Page is the backend's pagination envelope.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// Message is the generic acknowledgement envelope.
type Message struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// UnmarshalJSON defaults Success to true when the backend omits it, matching
// the MessageResponse schema default.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := alias{Success: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = Message(aux)
	return nil
}

// TokenPair is the access/refresh credential pair issued by the auth
// endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// Health returns the node's health score, defaulting to 80 when the backend
// did not compute one. 80 is the yellow-bucket floor.
func (n DependencyNode) Health() float64 {
	if n.HealthScore == nil {
		return 80
	}
	return *n.HealthScore
}
