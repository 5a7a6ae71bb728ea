// backend-go/internal/repository/archive_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
)

// ArchiveRepository is append-only.
type ArchiveRepository interface {
	Append(ctx context.Context, proposal domain.ArchivedProposal) error
	// List returns archived proposals most recent first.
	List(ctx context.Context) ([]domain.ArchivedProposal, error)
	Get(ctx context.Context, id string) (domain.ArchivedProposal, error)
}
