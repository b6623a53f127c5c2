package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zenpipeline/archview/pkg/store"
)

var (
	historyLimit int
	historyPrune time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history <repository-id>",
	Short: "List snapshots saved to the local history database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid repository id: %w", err)
		}

		db, err := store.NewStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		if historyPrune > 0 {
			removed, err := db.Prune(ctx, historyPrune)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Pruned %d snapshots older than %s\n", removed, historyPrune)
		}

		snaps, err := db.ListSnapshots(ctx, repoID, historyLimit)
		if err != nil {
			return err
		}

		if jsonOutput {
			data, err := json.MarshalIndent(snaps, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		if len(snaps) == 0 {
			fmt.Println("No saved snapshots. Use 'archview snapshot --save' to record one.")
			return nil
		}
		for _, snap := range snaps {
			fmt.Printf("%s  %s  %3d nodes  score %.1f\n",
				snap.ID, snap.TakenAt.Format(time.RFC3339),
				len(snap.Graph.Nodes), snap.Compliance.OverallScore)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum snapshots to list")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "drop snapshots older than this before listing (e.g. 720h)")
}
