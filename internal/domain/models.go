// backend-go/internal/domain/models.go
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemKey is the unique business key of an item. The same code may repeat
// under different precodice values.
type ItemKey struct {
	Precodice string `json:"precodice"`
	Code      string `json:"code"`
}

// NewItemKey trims both parts so keys built from imports and lookups compare equal.
func NewItemKey(precodice, code string) ItemKey {
	return ItemKey{Precodice: strings.TrimSpace(precodice), Code: strings.TrimSpace(code)}
}

func (k ItemKey) String() string {
	if k.Precodice == "" {
		return k.Code
	}
	return k.Precodice + "/" + k.Code
}

// Item represents a stocked product
type Item struct {
	ID             string    `json:"id" db:"id"`
	Code           string    `json:"code" db:"code"`
	Precodice      string    `json:"precodice,omitempty" db:"precodice"`
	Description    *string   `json:"description,omitempty" db:"description"`
	Supplier       *string   `json:"supplier,omitempty" db:"supplier"`
	Location       *string   `json:"ubicazione,omitempty" db:"location"`
	LeadTimeDays   *int      `json:"lead_time_days" db:"lead_time_days"` // nil falls back to the policy default
	MinOrderQty    int       `json:"min_order_qty" db:"min_order_qty"`
	OrderMultiple  int       `json:"order_multiple" db:"order_multiple"`
	CurrentStock   int       `json:"current_stock" db:"current_stock"`
	ReservedQty    int       `json:"reserved_qty" db:"reserved_qty"`
	ReorderBlocked bool      `json:"reorder_blocked" db:"reorder_blocked"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Key returns the composite business key of the item.
func (i Item) Key() ItemKey {
	return NewItemKey(i.Precodice, i.Code)
}

// SupplierName returns the supplier or "" when unknown.
func (i Item) SupplierName() string {
	if i.Supplier == nil {
		return ""
	}
	return strings.TrimSpace(*i.Supplier)
}

// SalesSnapshot holds the trailing 365-day sales for one item. It is replaced
// wholesale on every import of that item.
type SalesSnapshot struct {
	ItemID           string          `json:"item_id" db:"item_id"`
	QtySold365       float64         `json:"qty_sold_365" db:"qty_sold_365"`
	ValueSold365     decimal.Decimal `json:"value_sold_365" db:"value_sold_365"`
	LastSaleDate     *time.Time      `json:"last_sale_date,omitempty" db:"last_sale_date"`
	LastPurchaseDate *time.Time      `json:"last_purchase_date,omitempty" db:"last_purchase_date"`
	SourceID         string          `json:"source_id" db:"source_id"`
	AsOfDate         time.Time       `json:"as_of_date" db:"as_of_date"`
	ImportWarnings   []string        `json:"import_warnings,omitempty" db:"-"`
}

// ItemSnapshot pairs an item with the snapshot read in the same consistent view.
type ItemSnapshot struct {
	Item  Item
	Sales SalesSnapshot
}

// ReplenishmentCalculation is the engine output for one item under one policy.
type ReplenishmentCalculation struct {
	ItemID               string        `json:"item_id"`
	PolicyID             string        `json:"policy_id"`
	RunRateMethodApplied RunRateMethod `json:"run_rate_method_applied"`
	DailyRunRate         float64       `json:"daily_run_rate"`
	Forecast60d          int           `json:"forecast_60d"`
	SafetyStock          int           `json:"safety_stock"`
	LeadTimeCoverQty     int           `json:"lead_time_cover_qty"`
	AvailableStock       int           `json:"available_stock"`
	GapQty               int           `json:"gap_qty"`
	RecommendedOrderQty  int           `json:"recommended_order_qty"`
	SlowMoverFlag        bool          `json:"slow_mover_flag"`
	SlowMoverReason      string        `json:"slow_mover_reason"`
	CalcDate             time.Time     `json:"calc_date"`
}

// FullItemData is the read-only composite the rest of the system works with.
type FullItemData struct {
	Item        Item                     `json:"item"`
	Sales       SalesSnapshot            `json:"sales"`
	Calculation ReplenishmentCalculation `json:"calculation"`
}

// ImportRow is one normalized row handed over by the bulk importer.
type ImportRow struct {
	Code             string  `json:"code"`
	Precodice        string  `json:"precodice,omitempty"`
	Description      string  `json:"description,omitempty"`
	QtySold365       float64 `json:"qty_sold_365"`
	ValueSold365     float64 `json:"value_sold_365"`
	LastSaleDate     string  `json:"last_sale_date,omitempty"`
	LastPurchaseDate string  `json:"last_purchase_date,omitempty"`
	Ubicazione       string  `json:"ubicazione,omitempty"`
}

// ImportedRecord is a validated import row ready for an atomic upsert.
type ImportedRecord struct {
	Key         ItemKey
	Description *string
	Location    *string
	Defaults    ItemDefaults
	Sales       SalesSnapshot
}

// ItemDefaults are the values given to items created by import.
type ItemDefaults struct {
	Description   string // used when the row has none
	LeadTimeDays  int
	MinOrderQty   int
	OrderMultiple int
}

// CreateDescription is the description a newly created item gets.
func (r ImportedRecord) CreateDescription() *string {
	if r.Description != nil {
		return r.Description
	}
	if r.Defaults.Description == "" {
		return nil
	}
	d := r.Defaults.Description
	return &d
}

// PurchasingPatch updates the fields import never touches. Nil fields are left unchanged.
type PurchasingPatch struct {
	Supplier       *string `json:"supplier"`
	LeadTimeDays   *int    `json:"lead_time_days" validate:"omitempty,min=0"`
	ClearLeadTime  bool    `json:"clear_lead_time"`
	MinOrderQty    *int    `json:"min_order_qty" validate:"omitempty,min=1"`
	OrderMultiple  *int    `json:"order_multiple" validate:"omitempty,min=1"`
	CurrentStock   *int    `json:"current_stock" validate:"omitempty,min=0"`
	ReservedQty    *int    `json:"reserved_qty" validate:"omitempty,min=0"`
	ReorderBlocked *bool   `json:"reorder_blocked"`
}

// Apply writes the patch onto item.
func (p PurchasingPatch) Apply(item *Item) {
	if p.Supplier != nil {
		s := strings.TrimSpace(*p.Supplier)
		if s == "" {
			item.Supplier = nil
		} else {
			item.Supplier = &s
		}
	}
	if p.ClearLeadTime {
		item.LeadTimeDays = nil
	} else if p.LeadTimeDays != nil {
		v := *p.LeadTimeDays
		item.LeadTimeDays = &v
	}
	if p.MinOrderQty != nil {
		item.MinOrderQty = *p.MinOrderQty
	}
	if p.OrderMultiple != nil {
		item.OrderMultiple = *p.OrderMultiple
	}
	if p.CurrentStock != nil {
		item.CurrentStock = *p.CurrentStock
	}
	if p.ReservedQty != nil {
		item.ReservedQty = *p.ReservedQty
	}
	if p.ReorderBlocked != nil {
		item.ReorderBlocked = *p.ReorderBlocked
	}
}

// ArchivedProposalLine keeps only what history display and search need.
type ArchivedProposalLine struct {
	ItemID      string  `json:"item_id" db:"item_id"`
	Code        string  `json:"code" db:"code"`
	Precodice   string  `json:"precodice,omitempty" db:"precodice"`
	Description *string `json:"description,omitempty" db:"description"`
	Supplier    *string `json:"supplier,omitempty" db:"supplier"`
	OrderedQty  int     `json:"ordered_qty" db:"ordered_qty"`
}

// ArchivedProposal is an immutable record of an approved draft.
type ArchivedProposal struct {
	ID           string                 `json:"id" db:"id"`
	ProposalDate time.Time              `json:"proposal_date" db:"proposal_date"`
	CreatedBy    string                 `json:"created_by" db:"created_by"`
	ItemsCount   int                    `json:"items_count" db:"items_count"`
	Lines        []ArchivedProposalLine `json:"lines" db:"-"`
}

// ContainsCode reports whether any line code contains term, case-insensitively.
func (p ArchivedProposal) ContainsCode(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, line := range p.Lines {
		if strings.Contains(strings.ToLower(line.Code), term) {
			return true
		}
	}
	return false
}
