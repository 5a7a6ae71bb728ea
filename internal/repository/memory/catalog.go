// Package memory keeps repositories in process memory. It backs the default
// single-operator deployment and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

var _ repository.CatalogRepository = (*CatalogStore)(nil)

// CatalogStore holds items and their snapshots under one lock.
type CatalogStore struct {
	mu    sync.RWMutex
	now   func() time.Time
	items map[string]domain.Item
	byKey map[domain.ItemKey]string
	sales map[string]domain.SalesSnapshot
	order []string
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		now:   time.Now,
		items: make(map[string]domain.Item),
		byKey: make(map[domain.ItemKey]string),
		sales: make(map[string]domain.SalesSnapshot),
	}
}

func (s *CatalogStore) GetItem(_ context.Context, id string) (domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return domain.Item{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "item %s not found", id)
	}
	return item, nil
}

func (s *CatalogStore) GetItemByKey(_ context.Context, key domain.ItemKey) (domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return domain.Item{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "item %s not found", key)
	}
	return s.items[id], nil
}

// UpdateItem replaces the stored item. The key cannot change.
func (s *CatalogStore) UpdateItem(_ context.Context, item domain.Item) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.ID]
	if !ok {
		return domain.Item{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "item %s not found", item.ID)
	}
	item.Code = existing.Code
	item.Precodice = existing.Precodice
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = s.now()
	s.items[item.ID] = item
	return item, nil
}

func (s *CatalogStore) GetSnapshot(_ context.Context, itemID string) (domain.SalesSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[itemID]
	if !ok {
		return domain.SalesSnapshot{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "sales snapshot for item %s not found", itemID)
	}
	return sale, nil
}

// ListJoined returns items with snapshots in creation order.
func (s *CatalogStore) ListJoined(_ context.Context) ([]domain.ItemSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ItemSnapshot, 0, len(s.sales))
	for _, id := range s.order {
		sale, ok := s.sales[id]
		if !ok {
			continue
		}
		out = append(out, domain.ItemSnapshot{Item: s.items[id], Sales: sale})
	}
	return out, nil
}

func (s *CatalogStore) UpsertImported(_ context.Context, rec domain.ImportedRecord) (domain.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id, exists := s.byKey[rec.Key]

	var item domain.Item
	if exists {
		item = s.items[id]
		if rec.Description != nil {
			item.Description = rec.Description
		}
		if rec.Location != nil {
			item.Location = rec.Location
		}
		item.UpdatedAt = now
	} else {
		lead := rec.Defaults.LeadTimeDays
		item = domain.Item{
			ID:            uuid.NewString(),
			Code:          rec.Key.Code,
			Precodice:     rec.Key.Precodice,
			Description:   rec.CreateDescription(),
			Location:      rec.Location,
			LeadTimeDays:  &lead,
			MinOrderQty:   rec.Defaults.MinOrderQty,
			OrderMultiple: rec.Defaults.OrderMultiple,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		s.byKey[rec.Key] = item.ID
		s.order = append(s.order, item.ID)
	}
	s.items[item.ID] = item

	sale := rec.Sales
	sale.ItemID = item.ID
	s.sales[item.ID] = sale

	return item, !exists, nil
}
