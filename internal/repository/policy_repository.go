// backend-go/internal/repository/policy_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
)

type PolicyRepository interface {
	// List returns policies in insertion order.
	List(ctx context.Context) ([]domain.PolicyParams, error)
	Get(ctx context.Context, id string) (domain.PolicyParams, error)
	GetActive(ctx context.Context) (domain.PolicyParams, error)
	Create(ctx context.Context, policy domain.PolicyParams) (domain.PolicyParams, error)
	Update(ctx context.Context, policy domain.PolicyParams) (domain.PolicyParams, error)
	// SetActive marks id active and every other policy inactive.
	SetActive(ctx context.Context, id string) error
}
