// backend-go/internal/service/catalog_service.go
package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/replenish/backend-go/internal/cache"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/replenishment"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
	"github.com/andresuchdata/replenish/backend-go/pkg/logger"
	"github.com/andresuchdata/replenish/backend-go/pkg/metrics"
)

const defaultIngestWorkers = 8

// ActivePolicyProvider resolves the policy every calculation uses.
type ActivePolicyProvider interface {
	GetActive(ctx context.Context) (domain.PolicyParams, error)
}

// CatalogOptions configures a CatalogService. Zero values are usable.
type CatalogOptions struct {
	Cache    cache.CatalogCache
	Metrics  *metrics.ReplenishmentMetrics
	Defaults domain.ItemDefaults
	Workers  int
	Clock    func() time.Time
}

type CatalogService struct {
	repo     repository.CatalogRepository
	policies ActivePolicyProvider
	engine   *replenishment.Engine
	cache    cache.CatalogCache
	metrics  *metrics.ReplenishmentMetrics
	defaults domain.ItemDefaults
	workers  int
	now      func() time.Time
	log      zerolog.Logger
}

func NewCatalogService(repo repository.CatalogRepository, policies ActivePolicyProvider, engine *replenishment.Engine, opts CatalogOptions) *CatalogService {
	s := &CatalogService{
		repo:     repo,
		policies: policies,
		engine:   engine,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		defaults: opts.Defaults,
		workers:  opts.Workers,
		now:      opts.Clock,
		log:      logger.Component("catalog"),
	}
	if s.cache == nil {
		s.cache = cache.NewNoopCatalogCache()
	}
	if s.workers <= 0 {
		s.workers = defaultIngestWorkers
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.engine == nil {
		s.engine = replenishment.NewEngine(replenishment.WithClock(s.now))
	}
	if s.defaults.MinOrderQty < 1 {
		s.defaults.MinOrderQty = 1
	}
	if s.defaults.OrderMultiple < 1 {
		s.defaults.OrderMultiple = 1
	}
	return s
}

// GetAll joins every item with its snapshot and calculates it under the active policy.
func (s *CatalogService) GetAll(ctx context.Context) ([]domain.FullItemData, error) {
	policy, err := s.policies.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.CatalogKey{PolicyID: policy.ID, PolicyVersion: policy.Version, Date: s.now()}
	if cached, ok, err := s.cache.GetCatalog(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}

	joined, err := s.repo.ListJoined(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	items := make([]domain.FullItemData, 0, len(joined))
	for _, js := range joined {
		items = append(items, domain.FullItemData{
			Item:        js.Item,
			Sales:       js.Sales,
			Calculation: s.engine.Calculate(js.Item, js.Sales, policy),
		})
	}
	s.metrics.AddCalculations(len(items))

	if err := s.cache.SetCatalog(ctx, key, items); err != nil {
		s.log.Warn().Err(err).Msg("catalog cache write failed")
	}
	return items, nil
}

// Detail calculates one item read straight from the store.
func (s *CatalogService) Detail(ctx context.Context, id string) (domain.FullItemData, error) {
	policy, err := s.policies.GetActive(ctx)
	if err != nil {
		return domain.FullItemData{}, err
	}
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return domain.FullItemData{}, err
	}
	return s.detail(ctx, item, policy)
}

// DetailByKey is Detail for an exact (precodice, code) pair.
func (s *CatalogService) DetailByKey(ctx context.Context, key domain.ItemKey) (domain.FullItemData, error) {
	key = domain.NewItemKey(key.Precodice, key.Code)
	if key.Code == "" {
		return domain.FullItemData{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"code": "is required"})
	}

	policy, err := s.policies.GetActive(ctx)
	if err != nil {
		return domain.FullItemData{}, err
	}
	item, err := s.repo.GetItemByKey(ctx, key)
	if err != nil {
		return domain.FullItemData{}, err
	}
	return s.detail(ctx, item, policy)
}

func (s *CatalogService) detail(ctx context.Context, item domain.Item, policy domain.PolicyParams) (domain.FullItemData, error) {
	sales, err := s.repo.GetSnapshot(ctx, item.ID)
	if err != nil {
		return domain.FullItemData{}, err
	}
	s.metrics.AddCalculations(1)
	return domain.FullItemData{
		Item:        item,
		Sales:       sales,
		Calculation: s.engine.Calculate(item, sales, policy),
	}, nil
}

// FindByCodes matches codes case-insensitively. Duplicate inputs are collapsed
// and unmatched inputs are not reported.
func (s *CatalogService) FindByCodes(ctx context.Context, codes []string) ([]domain.FullItemData, error) {
	wanted := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			wanted[c] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return []domain.FullItemData{}, nil
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.FullItemData, 0, len(wanted))
	for _, it := range all {
		if _, ok := wanted[strings.ToLower(it.Item.Code)]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// FindByKeys matches exact (precodice, code) pairs and returns the keys with no item.
func (s *CatalogService) FindByKeys(ctx context.Context, keys []domain.ItemKey) ([]domain.FullItemData, []domain.ItemKey, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	byKey := make(map[domain.ItemKey]domain.FullItemData, len(all))
	for _, it := range all {
		byKey[it.Item.Key()] = it
	}

	found := make([]domain.FullItemData, 0, len(keys))
	notFound := make([]domain.ItemKey, 0)
	seen := make(map[domain.ItemKey]struct{}, len(keys))
	for _, k := range keys {
		k = domain.NewItemKey(k.Precodice, k.Code)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if it, ok := byKey[k]; ok {
			found = append(found, it)
		} else {
			notFound = append(notFound, k)
		}
	}
	return found, notFound, nil
}

// FindByIDs returns items in the order of ids and the ids that matched nothing.
func (s *CatalogService) FindByIDs(ctx context.Context, ids []string) ([]domain.FullItemData, []string, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[string]domain.FullItemData, len(all))
	for _, it := range all {
		byID[it.Item.ID] = it
	}

	found := make([]domain.FullItemData, 0, len(ids))
	var missing []string
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			found = append(found, it)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

// Recommended returns the items with something to order.
func (s *CatalogService) Recommended(ctx context.Context) ([]domain.FullItemData, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.FullItemData, 0)
	for _, it := range all {
		if it.Calculation.RecommendedOrderQty > 0 {
			out = append(out, it)
		}
	}
	return out, nil
}

// Summary computes the KPI cards. Order value prices each recommended unit at
// the trailing average selling price.
func (s *CatalogService) Summary(ctx context.Context) (domain.CatalogSummary, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return domain.CatalogSummary{}, err
	}

	summary := domain.CatalogSummary{TotalItems: len(all), ProposedOrderValue: decimal.Zero}
	for _, it := range all {
		if it.Calculation.SlowMoverFlag {
			summary.SlowMovers++
		}
		if it.Item.ReorderBlocked {
			summary.BlockedItems++
		}
		qty := it.Calculation.RecommendedOrderQty
		if qty <= 0 {
			continue
		}
		summary.ItemsToReorder++
		if it.Sales.QtySold365 > 0 {
			unit := it.Sales.ValueSold365.Div(decimal.NewFromFloat(it.Sales.QtySold365))
			summary.ProposedOrderValue = summary.ProposedOrderValue.Add(unit.Mul(decimal.NewFromInt(int64(qty))))
		}
	}
	if summary.TotalItems > 0 {
		summary.ReorderPercentage = math.Round(float64(summary.ItemsToReorder)/float64(summary.TotalItems)*1000) / 10
	}
	summary.ProposedOrderValue = summary.ProposedOrderValue.Round(2)
	return summary, nil
}

// UpdatePurchasing edits the fields import never touches.
func (s *CatalogService) UpdatePurchasing(ctx context.Context, id string, patch domain.PurchasingPatch) (domain.Item, error) {
	if err := validateStruct(patch); err != nil {
		return domain.Item{}, err
	}

	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	patch.Apply(&item)

	updated, err := s.repo.UpdateItem(ctx, item)
	if err != nil {
		return domain.Item{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Ingest upserts every row and replaces its snapshot. Rows are independent and
// run in parallel; rows sharing a key run in input order so the last one wins.
// Row problems are counted and reported, never returned as errors.
func (s *CatalogService) Ingest(ctx context.Context, rows []domain.ImportRow) (domain.IngestResult, error) {
	result := domain.IngestResult{BatchID: uuid.NewString(), Warnings: []string{}}
	asOf := s.now().UTC()

	type outcome struct {
		imported bool
		messages []string
	}
	outcomes := make([]outcome, len(rows))

	// Group row indexes by key, keeping first-appearance order.
	var groups [][]int
	groupOf := make(map[domain.ItemKey]int)
	for i, row := range rows {
		key := domain.NewItemKey(row.Precodice, row.Code)
		if key.Code == "" {
			groups = append(groups, []int{i})
			continue
		}
		g, ok := groupOf[key]
		if !ok {
			g = len(groups)
			groupOf[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, group := range groups {
		g.Go(func() error {
			for _, i := range group {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec, warnings, err := s.prepareRow(rows[i], result.BatchID, asOf)
				label := rowLabel(i, rows[i])
				for _, w := range warnings {
					outcomes[i].messages = append(outcomes[i].messages, label+": "+w)
				}
				if err != nil {
					outcomes[i].messages = append(outcomes[i].messages, label+": "+err.Error())
					continue
				}
				if _, _, err := s.repo.UpsertImported(gctx, rec); err != nil {
					s.log.Error().Err(err).Str("code", rec.Key.Code).Str("precodice", rec.Key.Precodice).Msg("failed to import row")
					outcomes[i].messages = append(outcomes[i].messages, label+": not saved")
					continue
				}
				outcomes[i].imported = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.IngestResult{}, err
	}

	warnings := 0
	for _, o := range outcomes {
		if o.imported {
			result.Imported++
		} else {
			result.Failed++
		}
		result.Warnings = append(result.Warnings, o.messages...)
		warnings += len(o.messages)
	}

	s.metrics.ObserveIngest(result.Imported, result.Failed, warnings)
	if result.Imported > 0 {
		s.invalidate(ctx)
	}

	s.log.Info().
		Str("batch_id", result.BatchID).
		Int("imported", result.Imported).
		Int("failed", result.Failed).
		Int("warnings", warnings).
		Msg("import completed")

	return result, nil
}

// prepareRow normalises one row. Numeric anomalies become warnings; only a
// missing code fails the row.
func (s *CatalogService) prepareRow(row domain.ImportRow, batchID string, asOf time.Time) (domain.ImportedRecord, []string, error) {
	key := domain.NewItemKey(row.Precodice, row.Code)
	if key.Code == "" {
		return domain.ImportedRecord{}, nil, fmt.Errorf("missing code")
	}

	var warnings []string

	qty := row.QtySold365
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		warnings = append(warnings, "quantity sold is not a number, defaulted to 0")
		qty = 0
	} else if qty < 0 {
		warnings = append(warnings, fmt.Sprintf("negative quantity sold (%s)", formatFloat(qty)))
	}

	value := row.ValueSold365
	if math.IsNaN(value) || math.IsInf(value, 0) {
		warnings = append(warnings, "value sold is not a number, defaulted to 0")
		value = 0
	} else if value < 0 {
		warnings = append(warnings, fmt.Sprintf("negative value sold (%s)", formatFloat(value)))
	}

	lastSale, w := parseImportDate("last sale date", row.LastSaleDate)
	warnings = append(warnings, w...)
	lastPurchase, w := parseImportDate("last purchase date", row.LastPurchaseDate)
	warnings = append(warnings, w...)

	defaults := s.defaults
	defaults.Description = fmt.Sprintf("New item %s", key.Code)

	return domain.ImportedRecord{
		Key:         key,
		Description: optionalString(row.Description),
		Location:    optionalString(row.Ubicazione),
		Defaults:    defaults,
		Sales: domain.SalesSnapshot{
			QtySold365:       qty,
			ValueSold365:     decimal.NewFromFloat(value),
			LastSaleDate:     lastSale,
			LastPurchaseDate: lastPurchase,
			SourceID:         batchID,
			AsOfDate:         asOf,
			ImportWarnings:   warnings,
		},
	}, warnings, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate catalog cache")
	}
}

var importDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

func parseImportDate(field, raw string) (*time.Time, []string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
			return &day, nil
		}
	}
	return nil, []string{fmt.Sprintf("unparseable %s %q ignored", field, raw)}
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func rowLabel(i int, row domain.ImportRow) string {
	code := strings.TrimSpace(row.Code)
	if code == "" {
		return fmt.Sprintf("row %d", i+1)
	}
	return fmt.Sprintf("row %d (%s)", i+1, code)
}

func formatFloat(v float64) string {
	return decimal.NewFromFloat(v).String()
}
