// backend-go/internal/repository/catalog_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
)

// ItemRepository reads and updates stocked items.
type ItemRepository interface {
	GetItem(ctx context.Context, id string) (domain.Item, error)
	GetItemByKey(ctx context.Context, key domain.ItemKey) (domain.Item, error)
	UpdateItem(ctx context.Context, item domain.Item) (domain.Item, error)
}

// SalesRepository reads the sales snapshot of an item.
type SalesRepository interface {
	GetSnapshot(ctx context.Context, itemID string) (domain.SalesSnapshot, error)
}

// CatalogRepository joins items with their snapshots. Both methods keep an
// item and its snapshot consistent: a reader never sees a snapshot paired with
// another version of its item.
type CatalogRepository interface {
	ItemRepository
	SalesRepository

	// ListJoined returns every item that has a snapshot.
	ListJoined(ctx context.Context) ([]domain.ItemSnapshot, error)
	// UpsertImported creates or updates the item by key and replaces its snapshot
	// in one step. Purchasing fields of existing items are left untouched.
	UpsertImported(ctx context.Context, rec domain.ImportedRecord) (item domain.Item, created bool, err error)
}
