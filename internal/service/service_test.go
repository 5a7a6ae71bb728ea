package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/backend-go/internal/cache"
	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/proposal"
	"github.com/andresuchdata/replenish/backend-go/internal/replenishment"
	"github.com/andresuchdata/replenish/backend-go/internal/repository/memory"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

type recordingCache struct {
	cache.CatalogCache
	invalidations int
}

func (c *recordingCache) InvalidateAll(ctx context.Context) error {
	c.invalidations++
	return nil
}

type testEnv struct {
	policies  *PolicyService
	catalog   *CatalogService
	proposals *ProposalService
	archive   *ArchiveService
	archives  *memory.ArchiveStore
	cache     *recordingCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	rc := &recordingCache{CatalogCache: cache.NewNoopCatalogCache()}
	policies := NewPolicyService(memory.NewPolicyStore(), rc)
	policies.now = func() time.Time { return testNow }

	clock := func() time.Time { return testNow }
	catalog := NewCatalogService(memory.NewCatalogStore(), policies, replenishment.NewEngine(replenishment.WithClock(clock)), CatalogOptions{
		Cache:    rc,
		Defaults: domain.ItemDefaults{LeadTimeDays: 2, MinOrderQty: 1, OrderMultiple: 1},
		Workers:  4,
		Clock:    clock,
	})

	archives := memory.NewArchiveStore()
	proposals := NewProposalService(catalog, archives, nil)
	proposals.now = clock

	return &testEnv{
		policies:  policies,
		catalog:   catalog,
		proposals: proposals,
		archive:   NewArchiveService(archives),
		archives:  archives,
		cache:     rc,
	}
}

func testPolicy() domain.PolicyParams {
	return domain.PolicyParams{
		Name:                       "Test",
		RunRateMethod:              domain.RunRateSimpleAvg,
		AvgWindowDays:              365,
		RecentWeightFactor:         1,
		LeadTimeDefaultDays:        2,
		SafetyStockDays:            7,
		SlowMoverQtyThreshold:      1,
		SlowMoverDaysSinceLastSale: 999,
		MinRevenueThreshold:        decimal.Zero,
		RoundingStrategy:           domain.RoundToMultiple,
	}
}

func (e *testEnv) activate(t *testing.T, p domain.PolicyParams) domain.PolicyParams {
	t.Helper()
	saved, err := e.policies.Save(context.Background(), p)
	require.NoError(t, err)
	require.NoError(t, e.policies.SetActive(context.Background(), saved.ID))
	saved.IsActive = true
	return saved
}

func (e *testEnv) ingest(t *testing.T, rows ...domain.ImportRow) domain.IngestResult {
	t.Helper()
	res, err := e.catalog.Ingest(context.Background(), rows)
	require.NoError(t, err)
	return res
}

func itemByCode(t *testing.T, items []domain.FullItemData, code string) domain.FullItemData {
	t.Helper()
	for _, it := range items {
		if it.Item.Code == code {
			return it
		}
	}
	t.Fatalf("item %s not found", code)
	return domain.FullItemData{}
}

// --- policies

func TestGetActiveWithoutPolicyIsConfigurationFault(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.policies.GetActive(context.Background())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConfiguration))

	_, err = env.catalog.GetAll(context.Background())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConfiguration))
}

func TestSaveForcesInactiveVersionOne(t *testing.T) {
	env := newTestEnv(t)
	draft := testPolicy()
	draft.IsActive = true
	draft.Version = 9

	saved, err := env.policies.Save(context.Background(), draft)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 1, saved.Version)
	assert.False(t, saved.IsActive)
}

func TestSaveRejectsInvalidPolicy(t *testing.T) {
	env := newTestEnv(t)

	bad := testPolicy()
	bad.RunRateMethod = "median"
	_, err := env.policies.Save(context.Background(), bad)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	bad = testPolicy()
	bad.SafetyStockDays = -1
	_, err = env.policies.Save(context.Background(), bad)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	bad = testPolicy()
	bad.MinRevenueThreshold = decimal.NewFromInt(-1)
	_, err = env.policies.Save(context.Background(), bad)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	ok := testPolicy()
	ok.RunRateMethod = "WEIGHTED-AVG"
	saved, err := env.policies.Save(context.Background(), ok)
	require.NoError(t, err)
	assert.Equal(t, domain.RunRateWeightedAvg, saved.RunRateMethod)
}

func TestUpdateBumpsVersionAndRoutesActivation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	first := env.activate(t, testPolicy())
	second, err := env.policies.Save(ctx, testPolicy())
	require.NoError(t, err)

	second.SafetyStockDays = 14
	second.IsActive = true
	updated, err := env.policies.Update(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.True(t, updated.IsActive)

	list, err := env.policies.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.False(t, list[0].IsActive)
	assert.True(t, list[1].IsActive)
	assert.Equal(t, 14, list[1].SafetyStockDays)

	_, err = env.policies.Update(ctx, domain.PolicyParams{ID: "missing"})
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.True(t, pkgerrors.IsNotFound(env.policies.SetActive(ctx, "missing")))
}

func TestEnsureDefaultSeedsOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	defaults := config.PolicyDefaultsConfig{
		Name:                       "Default 2025Q3",
		RunRateMethod:              "weighted_avg",
		AvgWindowDays:              365,
		RecentWeightDays:           90,
		RecentWeightFactor:         1.5,
		LeadTimeDefaultDays:        2,
		SafetyStockDays:            7,
		SlowMoverQtyThreshold:      3,
		SlowMoverDaysSinceLastSale: 120,
		MinRevenueThreshold:        decimal.NewFromInt(50),
		RoundingStrategy:           "to_multiple",
	}

	seeded, created, err := env.policies.EnsureDefault(ctx, defaults)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, seeded.IsActive)

	active, err := env.policies.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Default 2025Q3", active.Name)
	assert.Equal(t, domain.RunRateWeightedAvg, active.RunRateMethod)

	_, created, err = env.policies.EnsureDefault(ctx, defaults)
	require.NoError(t, err)
	assert.False(t, created)
}

// --- catalog

func TestIngestCreatesItemsAndCalculates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())

	res := env.ingest(t, domain.ImportRow{Code: "SKU-001", QtySold365: 365, ValueSold365: 1000})
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 0, res.Failed)
	assert.NotEmpty(t, res.BatchID)

	all, err := env.catalog.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	it := all[0]
	require.NotNil(t, it.Item.LeadTimeDays)
	assert.Equal(t, 2, *it.Item.LeadTimeDays)
	assert.Equal(t, "New item SKU-001", *it.Item.Description)
	assert.Equal(t, 69, it.Calculation.RecommendedOrderQty)

	zero := 0
	_, err = env.catalog.UpdatePurchasing(ctx, it.Item.ID, domain.PurchasingPatch{LeadTimeDays: &zero})
	require.NoError(t, err)

	all, err = env.catalog.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, all[0].Calculation.LeadTimeCoverQty)
	assert.Equal(t, 67, all[0].Calculation.RecommendedOrderQty)
}

func TestIngestUpdatesDescriptiveFieldsOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())

	env.ingest(t, domain.ImportRow{Code: "A", Precodice: "P", Description: "first", QtySold365: 10})
	all, err := env.catalog.GetAll(ctx)
	require.NoError(t, err)

	minQty := 12
	_, err = env.catalog.UpdatePurchasing(ctx, all[0].Item.ID, domain.PurchasingPatch{MinOrderQty: &minQty})
	require.NoError(t, err)

	env.ingest(t, domain.ImportRow{Code: "A", Precodice: "P", Ubicazione: "B-12", QtySold365: 20})
	all, err = env.catalog.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "first", *all[0].Item.Description)
	assert.Equal(t, "B-12", *all[0].Item.Location)
	assert.Equal(t, 12, all[0].Item.MinOrderQty)
	assert.Equal(t, 20.0, all[0].Sales.QtySold365)
}

func TestIngestRecordsDataQualityWarnings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())

	res := env.ingest(t,
		domain.ImportRow{Code: "NEG", QtySold365: -50, ValueSold365: -20},
		domain.ImportRow{Code: "NAN", QtySold365: math.NaN(), LastSaleDate: "yesterday"},
		domain.ImportRow{Code: "  ", QtySold365: 5},
	)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, res.Warnings, "row 1 (NEG): negative quantity sold (-50)")
	assert.Contains(t, res.Warnings, "row 1 (NEG): negative value sold (-20)")
	assert.Contains(t, res.Warnings, "row 2 (NAN): quantity sold is not a number, defaulted to 0")
	assert.Contains(t, res.Warnings, `row 2 (NAN): unparseable last sale date "yesterday" ignored`)
	assert.Contains(t, res.Warnings, "row 3: missing code")

	all, err := env.catalog.GetAll(ctx)
	require.NoError(t, err)

	neg := itemByCode(t, all, "NEG")
	assert.Equal(t, -50.0, neg.Sales.QtySold365)
	assert.Len(t, neg.Sales.ImportWarnings, 2)
	assert.Equal(t, 0.0, neg.Calculation.DailyRunRate)

	nan := itemByCode(t, all, "NAN")
	assert.Equal(t, 0.0, nan.Sales.QtySold365)
	assert.Nil(t, nan.Sales.LastSaleDate)
}

func TestIngestSameKeyLastRowWins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())

	var rows []domain.ImportRow
	for i := 1; i <= 20; i++ {
		rows = append(rows, domain.ImportRow{Code: "DUP", QtySold365: float64(i)})
	}
	res := env.ingest(t, rows...)
	assert.Equal(t, 20, res.Imported)

	all, err := env.catalog.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 20.0, all[0].Sales.QtySold365)
}

func TestIngestInvalidatesCache(t *testing.T) {
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	before := env.cache.invalidations

	env.ingest(t, domain.ImportRow{Code: "A", QtySold365: 1})
	assert.Equal(t, before+1, env.cache.invalidations)
}

func TestFindByCodesCaseInsensitiveAndDeduped(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	env.ingest(t,
		domain.ImportRow{Code: "Bolt-1", Precodice: "P1", QtySold365: 1},
		domain.ImportRow{Code: "Bolt-1", Precodice: "P2", QtySold365: 1},
		domain.ImportRow{Code: "Nut-2", QtySold365: 1},
	)

	found, err := env.catalog.FindByCodes(ctx, []string{"bolt-1", "BOLT-1", "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	empty, err := env.catalog.FindByCodes(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFindByKeysReportsNotFound(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	env.ingest(t, domain.ImportRow{Code: "A", Precodice: "P1", QtySold365: 1})

	found, notFound, err := env.catalog.FindByKeys(ctx, []domain.ItemKey{
		{Precodice: "P1", Code: "A"},
		{Precodice: "P2", Code: "A"},
		{Precodice: " P1 ", Code: "A "},
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []domain.ItemKey{{Precodice: "P2", Code: "A"}}, notFound)
}

func TestItemDetail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	env.ingest(t, domain.ImportRow{Code: "A", Precodice: "P1", QtySold365: 365})

	all, err := env.catalog.GetAll(ctx)
	require.NoError(t, err)
	want := itemByCode(t, all, "A")

	got, err := env.catalog.Detail(ctx, want.Item.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Item.ID, got.Item.ID)
	assert.Equal(t, want.Calculation, got.Calculation)
	assert.Equal(t, 69, got.Calculation.RecommendedOrderQty)

	_, err = env.catalog.Detail(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestItemDetailByKey(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	env.ingest(t, domain.ImportRow{Code: "A", Precodice: "P1", QtySold365: 365})

	got, err := env.catalog.DetailByKey(ctx, domain.ItemKey{Precodice: " P1 ", Code: "A "})
	require.NoError(t, err)
	assert.Equal(t, "A", got.Item.Code)
	assert.Equal(t, 69, got.Calculation.RecommendedOrderQty)

	_, err = env.catalog.DetailByKey(ctx, domain.ItemKey{Code: "A"})
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = env.catalog.DetailByKey(ctx, domain.ItemKey{Precodice: "P1"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestItemDetailWithoutActivePolicy(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.catalog.Detail(context.Background(), "any")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConfiguration))
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	policy := testPolicy()
	policy.SlowMoverQtyThreshold = 3
	env.activate(t, policy)

	env.ingest(t,
		domain.ImportRow{Code: "FAST", QtySold365: 365, ValueSold365: 730},
		domain.ImportRow{Code: "SLOW", QtySold365: 1, ValueSold365: 5},
	)

	s, err := env.catalog.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalItems)
	assert.Equal(t, 1, s.ItemsToReorder)
	assert.Equal(t, 50.0, s.ReorderPercentage)
	assert.Equal(t, 1, s.SlowMovers)
	// 69 units at 2.00 each
	assert.True(t, s.ProposedOrderValue.Equal(decimal.NewFromInt(138)), s.ProposedOrderValue.String())
}

// --- proposals

func TestApproveEmptyDraftFailsWithoutArchiving(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.proposals.Generate("s1", nil)
	_, err := env.proposals.Approve(ctx, "s1", "maria")
	assert.True(t, pkgerrors.IsInvalidState(err))

	list, err := env.archive.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRemovingEveryLineMatchesNeverGenerated(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	env.ingest(t, domain.ImportRow{Code: "A", QtySold365: 365}, domain.ImportRow{Code: "B", QtySold365: 365})

	lines, err := env.proposals.GenerateFromSelection(ctx, "s1", nil)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	for _, l := range lines {
		_, err := env.proposals.Remove("s1", l.ItemID)
		require.NoError(t, err)
	}
	_, err = env.proposals.Remove("s1", lines[0].ItemID)
	assert.True(t, pkgerrors.IsNotFound(err))

	assert.Equal(t, env.proposals.View("fresh").State, env.proposals.View("s1").State)
	assert.Equal(t, domain.ProposalEmpty, env.proposals.View("s1").State)
	_, err = env.proposals.Approve(ctx, "s1", "maria")
	assert.True(t, pkgerrors.IsInvalidState(err))
}

func TestApproveArchivesModifiedQuantities(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	env.ingest(t, domain.ImportRow{Code: "A", QtySold365: 365}, domain.ImportRow{Code: "B", QtySold365: 365})

	all, err := env.catalog.GetAll(ctx)
	require.NoError(t, err)
	supplier := "ACME"
	b := itemByCode(t, all, "B")
	_, err = env.catalog.UpdatePurchasing(ctx, b.Item.ID, domain.PurchasingPatch{Supplier: &supplier})
	require.NoError(t, err)

	lines, err := env.proposals.GenerateFromSelection(ctx, "s1", nil)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, 69, lines[0].ModifiedQty)

	edits := map[string]int{"A": 5, "B": 0}
	for _, l := range lines {
		env.proposals.UpdateQty("s1", l.ItemID, edits[l.Item.Item.Code])
	}
	env.proposals.UpdateQty("s1", "unknown", 100)

	archived, err := env.proposals.Approve(ctx, "s1", "maria")
	require.NoError(t, err)
	assert.Equal(t, "maria", archived.CreatedBy)
	assert.Equal(t, testNow, archived.ProposalDate)
	assert.Equal(t, 2, archived.ItemsCount)

	qty := map[string]int{}
	for _, l := range archived.Lines {
		qty[l.Code] = l.OrderedQty
	}
	assert.Equal(t, map[string]int{"A": 5, "B": 0}, qty)
	assert.Empty(t, env.proposals.Lines("s1"))

	stored, err := env.archive.Get(ctx, archived.ID)
	require.NoError(t, err)
	assert.Equal(t, archived.Lines, stored.Lines)
}

type failingArchive struct{ *memory.ArchiveStore }

func (failingArchive) Append(context.Context, domain.ArchivedProposal) error {
	return errors.New("disk full")
}

func TestApproveKeepsDraftWhenArchiveFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	env.ingest(t, domain.ImportRow{Code: "A", QtySold365: 365})

	proposals := NewProposalService(env.catalog, failingArchive{memory.NewArchiveStore()}, nil)
	_, err := proposals.GenerateFromSelection(ctx, "", nil)
	require.NoError(t, err)

	_, err = proposals.Approve(ctx, "", "maria")
	require.Error(t, err)
	assert.Len(t, proposals.Lines(DefaultSession), 1)
}

func TestApproveRequiresApprover(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.proposals.Approve(context.Background(), "s1", "  ")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	env.ingest(t, domain.ImportRow{Code: "A", QtySold365: 365})

	_, err := env.proposals.GenerateFromSelection(ctx, "alice", nil)
	require.NoError(t, err)

	assert.Len(t, env.proposals.Lines("alice"), 1)
	assert.Empty(t, env.proposals.Lines("bob"))
}

func TestGenerateFromUnknownIDsIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.activate(t, testPolicy())

	_, err := env.proposals.GenerateFromSelection(context.Background(), "s1", []string{"nope"})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestViewGroupsDraftBySupplier(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	env.ingest(t,
		domain.ImportRow{Code: "A", QtySold365: 365},
		domain.ImportRow{Code: "B", QtySold365: 365},
		domain.ImportRow{Code: "C", QtySold365: 365},
	)

	all, err := env.catalog.GetAll(ctx)
	require.NoError(t, err)
	supplier := "ACME"
	for _, code := range []string{"A", "C"} {
		_, err = env.catalog.UpdatePurchasing(ctx, itemByCode(t, all, code).Item.ID, domain.PurchasingPatch{Supplier: &supplier})
		require.NoError(t, err)
	}

	_, err = env.proposals.GenerateFromSelection(ctx, " s1 ", nil)
	require.NoError(t, err)

	snap := env.proposals.View("s1")
	assert.Equal(t, "s1", snap.Session)
	assert.Equal(t, domain.ProposalDraft, snap.State)
	assert.Len(t, snap.Lines, 3)
	require.Len(t, snap.Suppliers, 2)

	bySupplier := map[string]int{}
	for _, g := range snap.Suppliers {
		bySupplier[g.Supplier] = len(g.Lines)
	}
	assert.Equal(t, map[string]int{"ACME": 2, proposal.UnknownSupplier: 1}, bySupplier)
}

func TestEmptiedSessionsAreForgotten(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	env.ingest(t, domain.ImportRow{Code: "A", QtySold365: 365})

	for _, session := range []string{"alice", "bob", "carol"} {
		_, err := env.proposals.GenerateFromSelection(ctx, session, nil)
		require.NoError(t, err)
	}
	require.Equal(t, 3, env.proposals.sessionCount())

	// reads of unknown sessions never register them
	assert.Empty(t, env.proposals.Lines("dave"))
	assert.Equal(t, domain.ProposalEmpty, env.proposals.View("erin").State)
	env.proposals.UpdateQty("frank", "x", 1)
	assert.Equal(t, 3, env.proposals.sessionCount())

	env.proposals.Clear("alice")
	assert.Equal(t, 2, env.proposals.sessionCount())

	_, err := env.proposals.Approve(ctx, "bob", "maria")
	require.NoError(t, err)
	assert.Equal(t, 1, env.proposals.sessionCount())

	lines := env.proposals.Lines("carol")
	require.Len(t, lines, 1)
	_, err = env.proposals.Remove("carol", lines[0].ItemID)
	require.NoError(t, err)
	assert.Equal(t, 0, env.proposals.sessionCount())

	env.proposals.Generate("empty", nil)
	assert.Equal(t, 0, env.proposals.sessionCount())
}

func TestFailedApproveKeepsSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.activate(t, testPolicy())
	env.ingest(t, domain.ImportRow{Code: "A", QtySold365: 365})

	proposals := NewProposalService(env.catalog, failingArchive{memory.NewArchiveStore()}, nil)
	_, err := proposals.GenerateFromSelection(ctx, "s1", nil)
	require.NoError(t, err)

	_, err = proposals.Approve(ctx, "s1", "maria")
	require.Error(t, err)
	assert.Equal(t, 1, proposals.sessionCount())
}

// --- archive

func TestArchiveSearchByCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.archives.Append(ctx, domain.ArchivedProposal{ID: "1", Lines: []domain.ArchivedProposalLine{{Code: "BOLT-12"}}}))
	require.NoError(t, env.archives.Append(ctx, domain.ArchivedProposal{ID: "2", Lines: []domain.ArchivedProposalLine{{Code: "NUT-3"}}}))
	require.NoError(t, env.archives.Append(ctx, domain.ArchivedProposal{ID: "3", Lines: []domain.ArchivedProposalLine{{Code: "bolt-99"}}}))

	found, err := env.archive.SearchByCode(ctx, "Bolt")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "3", found[0].ID)
	assert.Equal(t, "1", found[1].ID)

	all, err := env.archive.SearchByCode(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
