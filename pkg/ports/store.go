package ports

import (
	"context"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
)

// PipelineStore defines the interface for persisting compiled pipelines.
// The runtime loads the tree and token map back when it resumes, retries or
// rolls back an execution.
type PipelineStore interface {
	// Save persists the pipeline under its tree id, replacing any previous version.
	Save(ctx context.Context, pipeline *domain.Pipeline) error

	// Load retrieves the pipeline for the given id.
	// Returns domain.ErrPipelineNotFound if the pipeline does not exist.
	Load(ctx context.Context, pipelineID string) (*domain.Pipeline, error)

	// Delete removes the pipeline for the given id.
	Delete(ctx context.Context, pipelineID string) error

	// List returns the ids of the stored pipelines.
	List(ctx context.Context) ([]string, error)
}
