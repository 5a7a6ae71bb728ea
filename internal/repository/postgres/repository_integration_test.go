package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

// openTestDB connects to REPLENISH_TEST_DATABASE_URL and skips otherwise.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("REPLENISH_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("REPLENISH_TEST_DATABASE_URL not set")
	}

	sqlDB, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := Open(sqlDB, "pgx", 4)
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestCatalogRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCatalogRepository(db)

	code := "IT-" + uuid.NewString()[:8]
	desc := "integration item"
	lastSale := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	rec := domain.ImportedRecord{
		Key:         domain.NewItemKey("P", code),
		Description: &desc,
		Defaults:    domain.ItemDefaults{LeadTimeDays: 2, MinOrderQty: 1, OrderMultiple: 1},
		Sales: domain.SalesSnapshot{
			QtySold365:     -5,
			ValueSold365:   decimal.RequireFromString("12.50"),
			LastSaleDate:   &lastSale,
			ImportWarnings: []string{"negative quantity"},
			SourceID:       "batch-1",
		},
	}

	item, created, err := repo.UpsertImported(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)

	item.MinOrderQty = 6
	_, err = repo.UpdateItem(ctx, item)
	require.NoError(t, err)

	_, created, err = repo.UpsertImported(ctx, rec)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.GetItemByKey(ctx, rec.Key)
	require.NoError(t, err)
	assert.Equal(t, 6, got.MinOrderQty)

	sale, err := repo.GetSnapshot(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, -5.0, sale.QtySold365)
	assert.Equal(t, []string{"negative quantity"}, sale.ImportWarnings)
	assert.True(t, sale.ValueSold365.Equal(decimal.RequireFromString("12.5")))
}

func TestPolicyRepositorySetActive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewPolicyRepository(db)

	now := time.Now().UTC()
	var ids []string
	for i := 0; i < 2; i++ {
		p, err := repo.Create(ctx, domain.PolicyParams{
			ID:               uuid.NewString(),
			Name:             "integration",
			Version:          1,
			RunRateMethod:    domain.RunRateSimpleAvg,
			RoundingStrategy: domain.RoundToMultiple,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	require.NoError(t, repo.SetActive(ctx, ids[0]))
	require.NoError(t, repo.SetActive(ctx, ids[1]))

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[1], active.ID)

	assert.True(t, pkgerrors.IsNotFound(repo.SetActive(ctx, uuid.NewString())))
}

func TestArchiveRepositoryAppendAndGet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewArchiveRepository(db)

	p := domain.ArchivedProposal{
		ID:           uuid.NewString(),
		ProposalDate: time.Now().UTC(),
		CreatedBy:    "tester",
		ItemsCount:   1,
		Lines:        []domain.ArchivedProposalLine{{ItemID: uuid.NewString(), Code: "A", OrderedQty: 4}},
	}
	require.NoError(t, repo.Append(ctx, p))
	assert.True(t, pkgerrors.IsInvalidState(repo.Append(ctx, p)))

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 4, got.Lines[0].OrderedQty)
}
