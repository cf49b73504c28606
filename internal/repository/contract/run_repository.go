package contract

import (
	"context"

	"tenderanalysis/internal/entity"
)

// RunRepository persists the fast-status-polling projection of a
// pipeline run. The detailed per-stage artifact itself is owned by
// internal/orchestrator.ArtifactStore, not by this repository.
type RunRepository interface {
	Upsert(ctx context.Context, run *entity.Run) error
	FindByRunID(ctx context.Context, runID string) (*entity.Run, error)
	FindLatestByDocID(ctx context.Context, docID, analysisLevel string) (*entity.Run, error)
}
