// Package proposal holds the editable reorder draft owned by one operator session.
package proposal

import (
	"errors"
	"sync"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
)

// UnknownSupplier groups lines whose item has no supplier.
const UnknownSupplier = "Unknown"

// ErrEmptyDraft is returned when committing a draft with no lines.
var ErrEmptyDraft = errors.New("proposal: draft is empty")

// Line is one draft row. Item is frozen at generation time.
type Line struct {
	ItemID      string              `json:"item_id"`
	Item        domain.FullItemData `json:"item"`
	ModifiedQty int                 `json:"modified_qty"`
}

// Supplier returns the grouping name for the line.
func (l Line) Supplier() string {
	if s := l.Item.Item.SupplierName(); s != "" {
		return s
	}
	return UnknownSupplier
}

// SupplierGroup is the lines of one supplier in draft order.
type SupplierGroup struct {
	Supplier string `json:"supplier"`
	Lines    []Line `json:"lines"`
}

// Draft is safe for concurrent use.
type Draft struct {
	mu    sync.Mutex
	lines []Line
}

// NewDraft returns an empty draft.
func NewDraft() *Draft {
	return &Draft{}
}

// Generate replaces the draft with one line per item, keeping the first
// occurrence of a repeated item id.
func (d *Draft) Generate(items []domain.FullItemData) {
	lines := make([]Line, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.Item.ID]; dup {
			continue
		}
		seen[it.Item.ID] = struct{}{}
		lines = append(lines, Line{
			ItemID:      it.Item.ID,
			Item:        freeze(it),
			ModifiedQty: it.Calculation.RecommendedOrderQty,
		})
	}

	d.mu.Lock()
	d.lines = lines
	d.mu.Unlock()
}

// UpdateQty sets the ordered quantity of a line. It reports whether the item was in the draft.
func (d *Draft) UpdateQty(itemID string, qty int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.lines {
		if d.lines[i].ItemID == itemID {
			d.lines[i].ModifiedQty = qty
			return true
		}
	}
	return false
}

// Remove drops a line. It reports whether the item was in the draft.
func (d *Draft) Remove(itemID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.lines {
		if d.lines[i].ItemID == itemID {
			d.lines = append(d.lines[:i], d.lines[i+1:]...)
			return true
		}
	}
	return false
}

// Clear discards every line.
func (d *Draft) Clear() {
	d.mu.Lock()
	d.lines = nil
	d.mu.Unlock()
}

// Lines returns a copy of the current lines in draft order.
func (d *Draft) Lines() []Line {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.snapshot()
}

// Len returns the number of lines.
func (d *Draft) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.lines)
}

func (d *Draft) State() domain.ProposalState {
	if d.Len() == 0 {
		return domain.ProposalEmpty
	}
	return domain.ProposalDraft
}

// GroupBySupplier returns the current lines grouped by supplier in first-appearance order.
func (d *Draft) GroupBySupplier() []SupplierGroup {
	return GroupBySupplier(d.Lines())
}

// Commit hands the current lines to fn while holding the draft lock and
// clears the draft only when fn succeeds. An empty draft yields ErrEmptyDraft
// without calling fn.
func (d *Draft) Commit(fn func(lines []Line) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.lines) == 0 {
		return ErrEmptyDraft
	}
	if err := fn(d.snapshot()); err != nil {
		return err
	}
	d.lines = nil
	return nil
}

func (d *Draft) snapshot() []Line {
	out := make([]Line, len(d.lines))
	copy(out, d.lines)
	return out
}

// GroupBySupplier groups lines by supplier name, first appearance first.
func GroupBySupplier(lines []Line) []SupplierGroup {
	var groups []SupplierGroup
	index := make(map[string]int)
	for _, line := range lines {
		name := line.Supplier()
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, SupplierGroup{Supplier: name})
		}
		groups[i].Lines = append(groups[i].Lines, line)
	}
	return groups
}

func freeze(in domain.FullItemData) domain.FullItemData {
	out := in
	out.Item.Description = cloneString(in.Item.Description)
	out.Item.Supplier = cloneString(in.Item.Supplier)
	out.Item.Location = cloneString(in.Item.Location)
	if in.Item.LeadTimeDays != nil {
		v := *in.Item.LeadTimeDays
		out.Item.LeadTimeDays = &v
	}
	if in.Sales.ImportWarnings != nil {
		out.Sales.ImportWarnings = append([]string(nil), in.Sales.ImportWarnings...)
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
