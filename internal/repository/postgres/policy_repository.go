// backend-go/internal/repository/postgres/policy_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

var _ repository.PolicyRepository = (*policyRepository)(nil)

const policyColumns = `
	id, name, version, run_rate_method, avg_window_days, recent_weight_days,
	recent_weight_factor, lead_time_default_days, safety_stock_days,
	slow_mover_qty_threshold, slow_mover_days_since_last_sale,
	min_revenue_threshold, rounding_strategy, is_active, created_at, updated_at`

type policyRepository struct {
	db *DB
}

func NewPolicyRepository(db *DB) *policyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) List(ctx context.Context) ([]domain.PolicyParams, error) {
	query := `SELECT ` + policyColumns + ` FROM policies ORDER BY seq`

	var policies []domain.PolicyParams
	if err := sqlx.SelectContext(ctx, r.db, &policies, query); err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return policies, nil
}

func (r *policyRepository) Get(ctx context.Context, id string) (domain.PolicyParams, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = $1`

	var p domain.PolicyParams
	err := sqlx.GetContext(ctx, r.db, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PolicyParams{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "policy %s not found", id)
	}
	if err != nil {
		return domain.PolicyParams{}, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

func (r *policyRepository) GetActive(ctx context.Context) (domain.PolicyParams, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE is_active LIMIT 1`

	var p domain.PolicyParams
	err := sqlx.GetContext(ctx, r.db, &p, query)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PolicyParams{}, pkgerrors.New(pkgerrors.CodeNotFound, "no active policy")
	}
	if err != nil {
		return domain.PolicyParams{}, fmt.Errorf("failed to get active policy: %w", err)
	}
	return p, nil
}

func (r *policyRepository) Create(ctx context.Context, p domain.PolicyParams) (domain.PolicyParams, error) {
	query := `
		INSERT INTO policies (
			id, name, version, run_rate_method, avg_window_days, recent_weight_days,
			recent_weight_factor, lead_time_default_days, safety_stock_days,
			slow_mover_qty_threshold, slow_mover_days_since_last_sale,
			min_revenue_threshold, rounding_strategy, is_active, created_at, updated_at
		) VALUES (
			:id, :name, :version, :run_rate_method, :avg_window_days, :recent_weight_days,
			:recent_weight_factor, :lead_time_default_days, :safety_stock_days,
			:slow_mover_qty_threshold, :slow_mover_days_since_last_sale,
			:min_revenue_threshold, :rounding_strategy, :is_active, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return domain.PolicyParams{}, fmt.Errorf("failed to create policy: %w", err)
	}
	return p, nil
}

func (r *policyRepository) Update(ctx context.Context, p domain.PolicyParams) (domain.PolicyParams, error) {
	query := `
		UPDATE policies SET
			name = :name,
			version = :version,
			run_rate_method = :run_rate_method,
			avg_window_days = :avg_window_days,
			recent_weight_days = :recent_weight_days,
			recent_weight_factor = :recent_weight_factor,
			lead_time_default_days = :lead_time_default_days,
			safety_stock_days = :safety_stock_days,
			slow_mover_qty_threshold = :slow_mover_qty_threshold,
			slow_mover_days_since_last_sale = :slow_mover_days_since_last_sale,
			min_revenue_threshold = :min_revenue_threshold,
			rounding_strategy = :rounding_strategy,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return domain.PolicyParams{}, fmt.Errorf("failed to update policy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.PolicyParams{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "policy %s not found", p.ID)
	}
	return p, nil
}

// SetActive runs in one transaction. The partial unique index on is_active
// requires clearing the old flag before setting the new one.
func (r *policyRepository) SetActive(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var locked string
		err := tx.QueryRowContext(ctx, `SELECT id FROM policies WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "policy %s not found", id)
		}
		if err != nil {
			return fmt.Errorf("failed to lock policy: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE policies SET is_active = FALSE, updated_at = NOW() WHERE is_active AND id <> $1`, id); err != nil {
			return fmt.Errorf("failed to deactivate policies: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE policies SET is_active = TRUE, updated_at = NOW() WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to activate policy: %w", err)
		}
		return nil
	})
}
