package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zenpipeline/archview/pkg/api"
	"github.com/zenpipeline/archview/pkg/client"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage architecture rules",
}

var (
	rulesListType    string
	rulesListEnabled bool
	rulesListPage    int
)

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List architecture rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := client.RuleFilter{RuleType: rulesListType, Page: rulesListPage}
		if cmd.Flags().Changed("enabled") {
			filter.Enabled = &rulesListEnabled
		}

		page, err := apiClient.ListRules(context.Background(), filter)
		if err != nil {
			return err
		}

		if jsonOutput {
			data, err := json.MarshalIndent(page, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		for _, rule := range page.Items {
			state := "enabled"
			if !rule.Enabled {
				state = "disabled"
			}
			fmt.Printf("%s  %-30s %-10s %-8s %s\n", rule.ID, rule.Name, rule.RuleType, rule.Severity, state)
		}
		fmt.Printf("Page %d/%d (%d rules total)\n", page.Page, page.TotalPages, page.Total)
		return nil
	},
}

var (
	ruleCreateName     string
	ruleCreateType     string
	ruleCreateSeverity string
	ruleCreateDesc     string
	ruleCreateOrg      string
	ruleCreateDef      string
)

var rulesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an architecture rule",
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, err := uuid.Parse(ruleCreateOrg)
		if err != nil {
			return fmt.Errorf("invalid --org: %w", err)
		}

		var definition map[string]any
		if err := json.Unmarshal([]byte(ruleCreateDef), &definition); err != nil {
			return fmt.Errorf("invalid --definition JSON: %w", err)
		}

		rule, err := apiClient.CreateRule(context.Background(), api.RuleCreate{
			OrganizationID: orgID,
			Name:           ruleCreateName,
			Description:    ruleCreateDesc,
			RuleType:       ruleCreateType,
			Severity:       api.RuleSeverity(ruleCreateSeverity),
			RuleDefinition: definition,
		})
		if err != nil {
			return err
		}
		return printRule(rule)
	},
}

var rulesGetCmd = &cobra.Command{
	Use:   "get <rule-id>",
	Short: "Show one architecture rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ruleID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid rule id: %w", err)
		}
		rule, err := apiClient.GetRule(context.Background(), ruleID)
		if err != nil {
			return err
		}
		return printRule(rule)
	},
}

var (
	ruleUpdateName     string
	ruleUpdateSeverity string
	ruleUpdateEnabled  bool
)

var rulesUpdateCmd = &cobra.Command{
	Use:   "update <rule-id>",
	Short: "Update fields of an architecture rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ruleID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid rule id: %w", err)
		}

		var update api.RuleUpdate
		if cmd.Flags().Changed("name") {
			update.Name = &ruleUpdateName
		}
		if cmd.Flags().Changed("severity") {
			sev := api.RuleSeverity(ruleUpdateSeverity)
			update.Severity = &sev
		}
		if cmd.Flags().Changed("enabled") {
			update.Enabled = &ruleUpdateEnabled
		}

		rule, err := apiClient.UpdateRule(context.Background(), ruleID, update)
		if err != nil {
			return err
		}
		return printRule(rule)
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <rule-id>",
	Short: "Delete an architecture rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ruleID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid rule id: %w", err)
		}
		msg, err := apiClient.DeleteRule(context.Background(), ruleID)
		if err != nil {
			return err
		}
		fmt.Println(msg.Message)
		return nil
	},
}

func printRule(rule api.Rule) error {
	if jsonOutput {
		data, err := json.MarshalIndent(rule, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Printf("Rule %s\n", rule.ID)
	fmt.Printf("  Name:     %s\n", rule.Name)
	fmt.Printf("  Type:     %s\n", rule.RuleType)
	fmt.Printf("  Severity: %s\n", rule.Severity)
	fmt.Printf("  Enabled:  %v\n", rule.Enabled)
	if rule.Description != "" {
		fmt.Printf("  Description: %s\n", rule.Description)
	}
	if len(rule.RuleDefinition) > 0 {
		data, err := json.MarshalIndent(rule.RuleDefinition, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "  Definition: %s\n", data)
	}
	return nil
}

func init() {
	rulesListCmd.Flags().StringVar(&rulesListType, "type", "", "filter by rule type")
	rulesListCmd.Flags().BoolVar(&rulesListEnabled, "enabled", true, "filter by enabled state")
	rulesListCmd.Flags().IntVar(&rulesListPage, "page", 1, "page number")

	rulesCreateCmd.Flags().StringVar(&ruleCreateName, "name", "", "rule name")
	rulesCreateCmd.Flags().StringVar(&ruleCreateType, "type", "dependency", "rule type: dependency|naming|structure|import|layer")
	rulesCreateCmd.Flags().StringVar(&ruleCreateSeverity, "severity", "warning", "severity: info|warning|error|critical")
	rulesCreateCmd.Flags().StringVar(&ruleCreateDesc, "description", "", "rule description")
	rulesCreateCmd.Flags().StringVar(&ruleCreateOrg, "org", "", "organization id")
	rulesCreateCmd.Flags().StringVar(&ruleCreateDef, "definition", "{}", "rule definition JSON")
	rulesCreateCmd.MarkFlagRequired("name")
	rulesCreateCmd.MarkFlagRequired("org")

	rulesUpdateCmd.Flags().StringVar(&ruleUpdateName, "name", "", "new rule name")
	rulesUpdateCmd.Flags().StringVar(&ruleUpdateSeverity, "severity", "", "new severity")
	rulesUpdateCmd.Flags().BoolVar(&ruleUpdateEnabled, "enabled", true, "enable or disable the rule")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesCreateCmd)
	rulesCmd.AddCommand(rulesGetCmd)
	rulesCmd.AddCommand(rulesUpdateCmd)
	rulesCmd.AddCommand(rulesDeleteCmd)
}
