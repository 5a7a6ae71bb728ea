package domain

import "github.com/shopspring/decimal"

// CatalogSummary holds the KPI cards shown above the item table.
type CatalogSummary struct {
	TotalItems         int             `json:"total_items"`
	ItemsToReorder     int             `json:"items_to_reorder"`
	ReorderPercentage  float64         `json:"reorder_percentage"`
	ProposedOrderValue decimal.Decimal `json:"proposed_order_value"`
	SlowMovers         int             `json:"slow_movers"`
	BlockedItems       int             `json:"blocked_items"`
}

// IngestResult reports one bulk import. Warnings are data-quality notes, never errors.
type IngestResult struct {
	BatchID  string   `json:"batch_id"`
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Warnings []string `json:"warnings"`
}
