package memory

import (
	"context"
	"sync"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

var _ repository.PolicyRepository = (*PolicyStore)(nil)

// PolicyStore keeps policies in insertion order.
type PolicyStore struct {
	mu       sync.RWMutex
	policies []domain.PolicyParams
}

func NewPolicyStore() *PolicyStore {
	return &PolicyStore{}
}

func (s *PolicyStore) List(_ context.Context) ([]domain.PolicyParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PolicyParams, len(s.policies))
	copy(out, s.policies)
	return out, nil
}

func (s *PolicyStore) Get(_ context.Context, id string) (domain.PolicyParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.policies[i], nil
	}
	return domain.PolicyParams{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "policy %s not found", id)
}

func (s *PolicyStore) GetActive(_ context.Context) (domain.PolicyParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.policies {
		if p.IsActive {
			return p, nil
		}
	}
	return domain.PolicyParams{}, pkgerrors.New(pkgerrors.CodeNotFound, "no active policy")
}

func (s *PolicyStore) Create(_ context.Context, policy domain.PolicyParams) (domain.PolicyParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(policy.ID) >= 0 {
		return domain.PolicyParams{}, pkgerrors.Newf(pkgerrors.CodeInvalidState, "policy %s already exists", policy.ID)
	}
	s.policies = append(s.policies, policy)
	return policy, nil
}

func (s *PolicyStore) Update(_ context.Context, policy domain.PolicyParams) (domain.PolicyParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(policy.ID)
	if i < 0 {
		return domain.PolicyParams{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "policy %s not found", policy.ID)
	}
	s.policies[i] = policy
	return policy, nil
}

func (s *PolicyStore) SetActive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "policy %s not found", id)
	}
	for i := range s.policies {
		s.policies[i].IsActive = s.policies[i].ID == id
	}
	return nil
}

func (s *PolicyStore) indexOf(id string) int {
	for i, p := range s.policies {
		if p.ID == id {
			return i
		}
	}
	return -1
}
