// Package reports writes tabular exports of graph health and rule
// violations for spreadsheets and CI artifacts.
package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/zenpipeline/archview/pkg/api"
)

// WriteNodes emits one row per node with its degree and health score.
// Missing health scores are reported at the default of 80.
func WriteNodes(w io.Writer, graph api.DependencyGraph) error {
	degrees := make(map[string]int, len(graph.Nodes))
	for _, e := range graph.Edges {
		degrees[e.Source]++
		degrees[e.Target]++
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "name", "type", "health_score", "degree"}); err != nil {
		return err
	}
	for _, n := range graph.Nodes {
		row := []string{
			n.ID,
			n.Name,
			string(n.Type),
			strconv.FormatFloat(n.Health(), 'f', 1, 64),
			strconv.Itoa(degrees[n.ID]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write nodes csv: %w", err)
	}
	return nil
}

// WriteViolations emits one row per violation across all validate results.
func WriteViolations(w io.Writer, results []api.ValidationResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rule_id", "rule_name", "source_module", "target_module", "violation_type", "file_path"}); err != nil {
		return err
	}
	for _, result := range results {
		for _, v := range result.Violations {
			row := []string{
				result.RuleID.String(),
				result.RuleName,
				v.SourceModule,
				v.TargetModule,
				v.ViolationType,
				v.FilePath,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write violations csv: %w", err)
	}
	return nil
}
