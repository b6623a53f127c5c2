package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repository-id>",
	Short: "Run a fresh architecture analysis and print the resulting graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid repository id: %w", err)
		}

		fmt.Fprintln(cmd.ErrOrStderr(), "Analyzing, this can take up to a minute...")
		graph, err := apiClient.Analyze(context.Background(), repoID)
		if err != nil {
			return err
		}

		if jsonOutput {
			data, err := json.MarshalIndent(graph, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Analysis complete: %d nodes, %d edges\n", len(graph.Nodes), len(graph.Edges))
		for _, cycle := range graph.CircularDependencies {
			fmt.Printf("  cycle: %v\n", cycle)
		}
		return nil
	},
}
