package memory

import (
	"context"
	"sync"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

var _ repository.ArchiveRepository = (*ArchiveStore)(nil)

// ArchiveStore is an append-only list of approved proposals.
type ArchiveStore struct {
	mu        sync.RWMutex
	proposals []domain.ArchivedProposal
}

func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{}
}

func (s *ArchiveStore) Append(_ context.Context, p domain.ArchivedProposal) error {
	p = clone(p)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.proposals {
		if existing.ID == p.ID {
			return pkgerrors.Newf(pkgerrors.CodeInvalidState, "archived proposal %s already exists", p.ID)
		}
	}
	s.proposals = append(s.proposals, p)
	return nil
}

// List returns the newest proposal first.
func (s *ArchiveStore) List(_ context.Context) ([]domain.ArchivedProposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ArchivedProposal, 0, len(s.proposals))
	for i := len(s.proposals) - 1; i >= 0; i-- {
		out = append(out, clone(s.proposals[i]))
	}
	return out, nil
}

func (s *ArchiveStore) Get(_ context.Context, id string) (domain.ArchivedProposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.proposals {
		if p.ID == id {
			return clone(p), nil
		}
	}
	return domain.ArchivedProposal{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "archived proposal %s not found", id)
}

func clone(p domain.ArchivedProposal) domain.ArchivedProposal {
	p.Lines = append([]domain.ArchivedProposalLine(nil), p.Lines...)
	return p
}
