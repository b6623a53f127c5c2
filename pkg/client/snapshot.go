package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zenpipeline/archview/pkg/api"
)

// Snapshot is one repository's full architecture view: graph, compliance,
// and drift, fetched together.
type Snapshot struct {
	RepositoryID uuid.UUID            `json:"repository_id"`
	TakenAt      time.Time            `json:"taken_at"`
	Graph        api.DependencyGraph  `json:"graph"`
	Compliance   api.ComplianceStatus `json:"compliance"`
	Drift        api.DriftReport      `json:"drift"`
}

// FetchSnapshot issues the three view requests in parallel. Any failure
// fails the whole snapshot; the caller keeps its previous state.
func (c *Client) FetchSnapshot(ctx context.Context, repoID uuid.UUID) (Snapshot, error) {
	snap := Snapshot{RepositoryID: repoID, TakenAt: time.Now().UTC()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		graph, err := c.DependencyGraph(ctx, repoID)
		if err != nil {
			return err
		}
		snap.Graph = graph
		return nil
	})
	g.Go(func() error {
		compliance, err := c.Compliance(ctx, repoID)
		if err != nil {
			return err
		}
		snap.Compliance = compliance
		return nil
	})
	g.Go(func() error {
		drift, err := c.Drift(ctx, repoID)
		if err != nil {
			return err
		}
		snap.Drift = drift
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
