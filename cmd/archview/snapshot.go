package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zenpipeline/archview/pkg/store"
)

var snapshotSave bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <repository-id>",
	Short: "Fetch the dependency graph, compliance, and drift for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid repository id: %w", err)
		}

		ctx := context.Background()
		snap, err := apiClient.FetchSnapshot(ctx, repoID)
		if err != nil {
			return err
		}

		if snapshotSave {
			db, err := store.NewStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			id, err := db.SaveSnapshot(ctx, snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved snapshot %s\n", id)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Repository %s\n", snap.RepositoryID)
		fmt.Printf("  Nodes:    %d\n", len(snap.Graph.Nodes))
		fmt.Printf("  Edges:    %d\n", len(snap.Graph.Edges))
		fmt.Printf("  Cycles:   %d\n", len(snap.Graph.CircularDependencies))
		fmt.Printf("  Score:    %.1f\n", snap.Compliance.OverallScore)
		fmt.Printf("  Drift:    %.1f\n", snap.Drift.DriftScore)
		return nil
	},
}

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotSave, "save", false, "persist the snapshot to the local history database")
}
