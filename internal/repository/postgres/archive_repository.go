// backend-go/internal/repository/postgres/archive_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

var _ repository.ArchiveRepository = (*archiveRepository)(nil)

type archiveRepository struct {
	db *DB
}

func NewArchiveRepository(db *DB) *archiveRepository {
	return &archiveRepository{db: db}
}

type archiveLineRow struct {
	ProposalID string `db:"proposal_id"`
	domain.ArchivedProposalLine
}

func (r *archiveRepository) Append(ctx context.Context, p domain.ArchivedProposal) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Header
		_, err := tx.ExecContext(ctx, `
			INSERT INTO archived_proposals (id, proposal_date, created_by, items_count)
			VALUES ($1, $2, $3, $4)
		`, p.ID, p.ProposalDate, p.CreatedBy, p.ItemsCount)
		if err != nil {
			if isUniqueViolation(err) {
				return pkgerrors.Newf(pkgerrors.CodeInvalidState, "archived proposal %s already exists", p.ID)
			}
			return fmt.Errorf("failed to insert archived proposal: %w", err)
		}

		// 2. Lines in draft order
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO archived_proposal_lines (
				proposal_id, position, item_id, code, precodice, description, supplier, ordered_qty
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, line := range p.Lines {
			if _, err := stmt.ExecContext(ctx, p.ID, i, line.ItemID, line.Code, line.Precodice,
				line.Description, line.Supplier, line.OrderedQty); err != nil {
				return fmt.Errorf("failed to insert archived line: %w", err)
			}
		}
		return nil
	})
}

func (r *archiveRepository) List(ctx context.Context) ([]domain.ArchivedProposal, error) {
	var headers []domain.ArchivedProposal
	if err := sqlx.SelectContext(ctx, r.db, &headers, `
		SELECT id, proposal_date, created_by, items_count
		FROM archived_proposals
		ORDER BY seq DESC
	`); err != nil {
		return nil, fmt.Errorf("failed to list archived proposals: %w", err)
	}
	if len(headers) == 0 {
		return headers, nil
	}

	var lines []archiveLineRow
	if err := sqlx.SelectContext(ctx, r.db, &lines, `
		SELECT proposal_id, item_id, code, precodice, description, supplier, ordered_qty
		FROM archived_proposal_lines
		ORDER BY proposal_id, position
	`); err != nil {
		return nil, fmt.Errorf("failed to list archived lines: %w", err)
	}

	byProposal := make(map[string][]domain.ArchivedProposalLine, len(headers))
	for _, l := range lines {
		byProposal[l.ProposalID] = append(byProposal[l.ProposalID], l.ArchivedProposalLine)
	}
	for i := range headers {
		headers[i].Lines = byProposal[headers[i].ID]
	}
	return headers, nil
}

func (r *archiveRepository) Get(ctx context.Context, id string) (domain.ArchivedProposal, error) {
	var p domain.ArchivedProposal
	err := sqlx.GetContext(ctx, r.db, &p, `
		SELECT id, proposal_date, created_by, items_count
		FROM archived_proposals
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ArchivedProposal{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "archived proposal %s not found", id)
	}
	if err != nil {
		return domain.ArchivedProposal{}, fmt.Errorf("failed to get archived proposal: %w", err)
	}

	if err := sqlx.SelectContext(ctx, r.db, &p.Lines, `
		SELECT item_id, code, precodice, description, supplier, ordered_qty
		FROM archived_proposal_lines
		WHERE proposal_id = $1
		ORDER BY position
	`, id); err != nil {
		return domain.ArchivedProposal{}, fmt.Errorf("failed to get archived lines: %w", err)
	}
	return p, nil
}

// isUniqueViolation recognises the error from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
