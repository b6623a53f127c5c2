package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zenpipeline/archview/pkg/api"
	"github.com/zenpipeline/archview/pkg/reports"
)

var (
	validateCommit string
	validateRules  []string
	validateCSV    string
)

var validateCmd = &cobra.Command{
	Use:   "validate <repository-id>",
	Short: "Validate a repository against architecture rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid repository id: %w", err)
		}

		req := api.ValidateRequest{RepositoryID: repoID, CommitSHA: validateCommit}
		for _, raw := range validateRules {
			ruleID, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid rule id %q: %w", raw, err)
			}
			req.Rules = append(req.Rules, ruleID)
		}

		resp, err := apiClient.Validate(context.Background(), req)
		if err != nil {
			return err
		}

		if validateCSV != "" {
			f, err := os.Create(validateCSV)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := reports.WriteViolations(f, resp.Results); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote violations to %s\n", validateCSV)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		} else {
			for _, result := range resp.Results {
				mark := "PASS"
				if !result.Passed {
					mark = "FAIL"
				}
				fmt.Printf("  [%s] %s (%d violations)\n", mark, result.RuleName, len(result.Violations))
			}
		}

		if !resp.Passed {
			return fmt.Errorf("validation failed")
		}
		fmt.Println("Validation passed")
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateCommit, "commit", "", "commit SHA to validate (default: latest analyzed)")
	validateCmd.Flags().StringSliceVar(&validateRules, "rule", nil, "restrict the run to specific rule ids (repeatable)")
	validateCmd.Flags().StringVar(&validateCSV, "csv", "", "also write violations as CSV to this file")
}
