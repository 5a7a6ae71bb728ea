// backend-go/internal/service/policy_service.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/backend-go/internal/cache"
	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

// PolicyService owns the single-active-policy invariant.
type PolicyService struct {
	repo  repository.PolicyRepository
	cache cache.CatalogCache
	now   func() time.Time
}

func NewPolicyService(repo repository.PolicyRepository, catalogCache cache.CatalogCache) *PolicyService {
	if catalogCache == nil {
		catalogCache = cache.NewNoopCatalogCache()
	}
	return &PolicyService{repo: repo, cache: catalogCache, now: time.Now}
}

// GetActive fails with CONFIGURATION_FAULT when no policy is active.
func (s *PolicyService) GetActive(ctx context.Context) (domain.PolicyParams, error) {
	p, err := s.repo.GetActive(ctx)
	if pkgerrors.IsNotFound(err) {
		return domain.PolicyParams{}, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "no active replenishment policy")
	}
	return p, err
}

func (s *PolicyService) List(ctx context.Context) ([]domain.PolicyParams, error) {
	return s.repo.List(ctx)
}

func (s *PolicyService) Get(ctx context.Context, id string) (domain.PolicyParams, error) {
	return s.repo.Get(ctx, id)
}

// Save stores a new, inactive policy at version 1.
func (s *PolicyService) Save(ctx context.Context, draft domain.PolicyParams) (domain.PolicyParams, error) {
	if err := normalizePolicy(&draft); err != nil {
		return domain.PolicyParams{}, err
	}

	now := s.now().UTC()
	draft.ID = uuid.NewString()
	draft.Version = 1
	draft.IsActive = false
	draft.CreatedAt = now
	draft.UpdatedAt = now

	saved, err := s.repo.Create(ctx, draft)
	if err != nil {
		return domain.PolicyParams{}, err
	}
	warnUnimplementedMethod(saved)
	return saved, nil
}

// Update replaces every field and bumps the version. Turning is_active on goes
// through SetActive so the previous active policy is switched off.
func (s *PolicyService) Update(ctx context.Context, policy domain.PolicyParams) (domain.PolicyParams, error) {
	existing, err := s.repo.Get(ctx, policy.ID)
	if err != nil {
		return domain.PolicyParams{}, err
	}
	if err := normalizePolicy(&policy); err != nil {
		return domain.PolicyParams{}, err
	}

	wantActive := policy.IsActive
	policy.IsActive = existing.IsActive && wantActive
	policy.Version = existing.Version + 1
	policy.CreatedAt = existing.CreatedAt
	policy.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, policy)
	if err != nil {
		return domain.PolicyParams{}, err
	}

	if wantActive && !existing.IsActive {
		if err := s.repo.SetActive(ctx, updated.ID); err != nil {
			return domain.PolicyParams{}, err
		}
		updated.IsActive = true
	}
	if existing.IsActive && !wantActive {
		log.Warn().Str("policy_id", updated.ID).Msg("active policy deactivated by update; calculations will fail until another policy is activated")
	}

	warnUnimplementedMethod(updated)
	s.invalidate(ctx)
	return updated, nil
}

// SetActive makes id the only active policy.
func (s *PolicyService) SetActive(ctx context.Context, id string) error {
	if err := s.repo.SetActive(ctx, id); err != nil {
		return err
	}
	if p, err := s.repo.Get(ctx, id); err == nil {
		warnUnimplementedMethod(p)
		log.Info().Str("policy_id", p.ID).Str("name", p.Name).Int("version", p.Version).Msg("policy activated")
	}
	s.invalidate(ctx)
	return nil
}

// EnsureDefault seeds and activates the configured default when the store is empty.
func (s *PolicyService) EnsureDefault(ctx context.Context, defaults config.PolicyDefaultsConfig) (domain.PolicyParams, bool, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return domain.PolicyParams{}, false, err
	}
	if len(existing) > 0 {
		return domain.PolicyParams{}, false, nil
	}

	method, ok := domain.ParseRunRateMethod(defaults.RunRateMethod)
	if !ok {
		return domain.PolicyParams{}, false, pkgerrors.Newf(pkgerrors.CodeConfiguration, "unknown default run rate method %q", defaults.RunRateMethod)
	}
	rounding, ok := domain.ParseRoundingStrategy(defaults.RoundingStrategy)
	if !ok {
		return domain.PolicyParams{}, false, pkgerrors.Newf(pkgerrors.CodeConfiguration, "unknown default rounding strategy %q", defaults.RoundingStrategy)
	}

	saved, err := s.Save(ctx, domain.PolicyParams{
		Name:                       defaults.Name,
		RunRateMethod:              method,
		AvgWindowDays:              defaults.AvgWindowDays,
		RecentWeightDays:           defaults.RecentWeightDays,
		RecentWeightFactor:         defaults.RecentWeightFactor,
		LeadTimeDefaultDays:        defaults.LeadTimeDefaultDays,
		SafetyStockDays:            defaults.SafetyStockDays,
		SlowMoverQtyThreshold:      defaults.SlowMoverQtyThreshold,
		SlowMoverDaysSinceLastSale: defaults.SlowMoverDaysSinceLastSale,
		MinRevenueThreshold:        defaults.MinRevenueThreshold,
		RoundingStrategy:           rounding,
	})
	if err != nil {
		return domain.PolicyParams{}, false, err
	}
	if err := s.SetActive(ctx, saved.ID); err != nil {
		return domain.PolicyParams{}, false, err
	}
	saved.IsActive = true
	return saved, true, nil
}

func (s *PolicyService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate catalog cache")
	}
}

func normalizePolicy(p *domain.PolicyParams) error {
	if m, ok := domain.ParseRunRateMethod(string(p.RunRateMethod)); ok {
		p.RunRateMethod = m
	}
	if r, ok := domain.ParseRoundingStrategy(string(p.RoundingStrategy)); ok {
		p.RoundingStrategy = r
	}
	if err := validateStruct(p); err != nil {
		return err
	}
	if p.MinRevenueThreshold.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"min_revenue_threshold": "must be at least 0"})
	}
	return nil
}

func warnUnimplementedMethod(p domain.PolicyParams) {
	if p.RunRateMethod == domain.RunRateSimpleAvg {
		return
	}
	log.Warn().
		Str("policy_id", p.ID).
		Str("run_rate_method", string(p.RunRateMethod)).
		Str("applied", string(domain.RunRateSimpleAvg)).
		Msg("run rate method not implemented; simple average is applied")
}
