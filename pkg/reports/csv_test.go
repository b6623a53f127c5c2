package reports

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/google/uuid"

	"github.com/zenpipeline/archview/pkg/api"
)

func health(v float64) *float64 { return &v }

func TestWriteNodes(t *testing.T) {
	graph := api.DependencyGraph{
		Nodes: []api.DependencyNode{
			{ID: "auth", Name: "auth", Type: api.NodeModule, HealthScore: health(95)},
			{ID: "db", Name: "db", Type: api.NodeModule}, // no score, defaults to 80
		},
		Edges: []api.DependencyEdge{
			{Source: "auth", Target: "db", Type: api.EdgeImport},
		},
	}

	var buf bytes.Buffer
	if err := WriteNodes(&buf, graph); err != nil {
		t.Fatalf("WriteNodes: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][3] != "95.0" {
		t.Errorf("auth health = %q, want 95.0", rows[1][3])
	}
	if rows[2][3] != "80.0" {
		t.Errorf("db health = %q, want default 80.0", rows[2][3])
	}
	if rows[1][4] != "1" || rows[2][4] != "1" {
		t.Errorf("degrees = %q/%q, want 1/1", rows[1][4], rows[2][4])
	}
}

func TestWriteViolations(t *testing.T) {
	ruleID := uuid.New()
	results := []api.ValidationResult{
		{
			RuleID:   ruleID,
			RuleName: "no-ui-to-db",
			Passed:   false,
			Violations: []api.Violation{
				{SourceModule: "ui", TargetModule: "db", ViolationType: "forbidden_dependency", FilePath: "ui/page.tsx"},
			},
		},
		{RuleID: uuid.New(), RuleName: "clean", Passed: true},
	}

	var buf bytes.Buffer
	if err := WriteViolations(&buf, results); err != nil {
		t.Fatalf("WriteViolations: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1 (passing rule emits nothing)", len(rows))
	}
	if rows[1][0] != ruleID.String() || rows[1][2] != "ui" {
		t.Errorf("unexpected violation row: %v", rows[1])
	}
}
