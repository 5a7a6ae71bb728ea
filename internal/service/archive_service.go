package service

import (
	"context"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
)

type ArchiveService struct {
	repo repository.ArchiveRepository
}

func NewArchiveService(repo repository.ArchiveRepository) *ArchiveService {
	return &ArchiveService{repo: repo}
}

// List returns archived proposals most recent first.
func (s *ArchiveService) List(ctx context.Context) ([]domain.ArchivedProposal, error) {
	return s.repo.List(ctx)
}

func (s *ArchiveService) Get(ctx context.Context, id string) (domain.ArchivedProposal, error) {
	return s.repo.Get(ctx, id)
}

// SearchByCode keeps proposals with a line whose code contains term, ignoring case.
func (s *ArchiveService) SearchByCode(ctx context.Context, term string) ([]domain.ArchivedProposal, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ArchivedProposal, 0, len(all))
	for _, p := range all {
		if p.ContainsCode(term) {
			out = append(out, p)
		}
	}
	return out, nil
}
