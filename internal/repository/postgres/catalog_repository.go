// backend-go/internal/repository/postgres/catalog_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

var _ repository.CatalogRepository = (*catalogRepository)(nil)

const itemColumns = `
	i.id, i.code, i.precodice, i.description, i.supplier, i.location,
	i.lead_time_days, i.min_order_qty, i.order_multiple, i.current_stock,
	i.reserved_qty, i.reorder_blocked, i.created_at, i.updated_at`

type catalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetItem(ctx context.Context, id string) (domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items i WHERE i.id = $1`

	var item domain.Item
	err := sqlx.GetContext(ctx, r.db, &item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "item %s not found", id)
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (r *catalogRepository) GetItemByKey(ctx context.Context, key domain.ItemKey) (domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items i WHERE i.precodice = $1 AND i.code = $2`

	var item domain.Item
	err := sqlx.GetContext(ctx, r.db, &item, query, key.Precodice, key.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "item %s not found", key)
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("failed to get item by key: %w", err)
	}
	return item, nil
}

func (r *catalogRepository) UpdateItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	query := `
		UPDATE items i SET
			description = $2,
			supplier = $3,
			location = $4,
			lead_time_days = $5,
			min_order_qty = $6,
			order_multiple = $7,
			current_stock = $8,
			reserved_qty = $9,
			reorder_blocked = $10,
			updated_at = NOW()
		WHERE i.id = $1
		RETURNING ` + itemColumns

	var updated domain.Item
	err := sqlx.GetContext(ctx, r.db, &updated, query,
		item.ID,
		item.Description,
		item.Supplier,
		item.Location,
		item.LeadTimeDays,
		item.MinOrderQty,
		item.OrderMultiple,
		item.CurrentStock,
		item.ReservedQty,
		item.ReorderBlocked,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "item %s not found", item.ID)
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("failed to update item: %w", err)
	}
	return updated, nil
}

func (r *catalogRepository) GetSnapshot(ctx context.Context, itemID string) (domain.SalesSnapshot, error) {
	query := `
		SELECT item_id, qty_sold_365, value_sold_365, last_sale_date, last_purchase_date,
			import_warnings, source_id, as_of_date
		FROM sales_snapshots
		WHERE item_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, itemID)
	var (
		sale     domain.SalesSnapshot
		warnings pq.StringArray
	)
	err := row.Scan(&sale.ItemID, &sale.QtySold365, &sale.ValueSold365, &sale.LastSaleDate,
		&sale.LastPurchaseDate, &warnings, &sale.SourceID, &sale.AsOfDate)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SalesSnapshot{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "sales snapshot for item %s not found", itemID)
	}
	if err != nil {
		return domain.SalesSnapshot{}, fmt.Errorf("failed to get sales snapshot: %w", err)
	}
	sale.ImportWarnings = []string(warnings)
	return sale, nil
}

// ListJoined reads items and snapshots in a single statement so every row is
// one consistent view.
func (r *catalogRepository) ListJoined(ctx context.Context) ([]domain.ItemSnapshot, error) {
	query := `
		SELECT ` + itemColumns + `,
			s.qty_sold_365, s.value_sold_365, s.last_sale_date, s.last_purchase_date,
			s.import_warnings, s.source_id, s.as_of_date
		FROM items i
		JOIN sales_snapshots s ON s.item_id = i.id
		ORDER BY i.seq
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer rows.Close()

	var out []domain.ItemSnapshot
	for rows.Next() {
		var (
			it       domain.Item
			sale     domain.SalesSnapshot
			warnings pq.StringArray
		)
		if err := rows.Scan(
			&it.ID, &it.Code, &it.Precodice, &it.Description, &it.Supplier, &it.Location,
			&it.LeadTimeDays, &it.MinOrderQty, &it.OrderMultiple, &it.CurrentStock,
			&it.ReservedQty, &it.ReorderBlocked, &it.CreatedAt, &it.UpdatedAt,
			&sale.QtySold365, &sale.ValueSold365, &sale.LastSaleDate, &sale.LastPurchaseDate,
			&warnings, &sale.SourceID, &sale.AsOfDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		sale.ItemID = it.ID
		sale.ImportWarnings = []string(warnings)
		out = append(out, domain.ItemSnapshot{Item: it, Sales: sale})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog: %w", err)
	}
	return out, nil
}

func (r *catalogRepository) UpsertImported(ctx context.Context, rec domain.ImportedRecord) (domain.Item, bool, error) {
	var (
		item    domain.Item
		created bool
	)

	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Upsert item; existing rows only get descriptive fields
		query := `
			INSERT INTO items AS i (
				id, code, precodice, description, location,
				lead_time_days, min_order_qty, order_multiple, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			ON CONFLICT (precodice, code)
			DO UPDATE SET
				description = COALESCE($9, i.description),
				location = COALESCE(EXCLUDED.location, i.location),
				updated_at = NOW()
			RETURNING ` + itemColumns + `, (xmax = 0) AS inserted
		`

		var upserted struct {
			domain.Item
			Inserted bool `db:"inserted"`
		}
		if err := sqlx.GetContext(ctx, tx, &upserted, query,
			uuid.NewString(),
			rec.Key.Code,
			rec.Key.Precodice,
			rec.CreateDescription(),
			rec.Location,
			rec.Defaults.LeadTimeDays,
			rec.Defaults.MinOrderQty,
			rec.Defaults.OrderMultiple,
			rec.Description,
		); err != nil {
			return fmt.Errorf("failed to upsert item: %w", err)
		}
		item = upserted.Item
		created = upserted.Inserted

		// 2. Replace snapshot wholesale
		asOf := rec.Sales.AsOfDate
		if asOf.IsZero() {
			asOf = time.Now()
		}
		snapshotQuery := `
			INSERT INTO sales_snapshots (
				item_id, qty_sold_365, value_sold_365, last_sale_date, last_purchase_date,
				import_warnings, source_id, as_of_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (item_id)
			DO UPDATE SET
				qty_sold_365 = EXCLUDED.qty_sold_365,
				value_sold_365 = EXCLUDED.value_sold_365,
				last_sale_date = EXCLUDED.last_sale_date,
				last_purchase_date = EXCLUDED.last_purchase_date,
				import_warnings = EXCLUDED.import_warnings,
				source_id = EXCLUDED.source_id,
				as_of_date = EXCLUDED.as_of_date
		`
		warnings := rec.Sales.ImportWarnings
		if warnings == nil {
			warnings = []string{}
		}
		if _, err := tx.ExecContext(ctx, snapshotQuery,
			item.ID,
			rec.Sales.QtySold365,
			rec.Sales.ValueSold365,
			rec.Sales.LastSaleDate,
			rec.Sales.LastPurchaseDate,
			pq.Array(warnings),
			rec.Sales.SourceID,
			asOf,
		); err != nil {
			return fmt.Errorf("failed to replace sales snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Item{}, false, err
	}
	return item, created, nil
}
