package service

import (
	"context"
	"time"

	"github.com/andresuchdata/grocerystock/internal/cache"
	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/repository"
	"github.com/rs/zerolog/log"
)

// InventoryService records stock counts and serves the live summary view.
type InventoryService struct {
	repo  repository.InventoryRepository
	cache cache.StockSummaryCache
	now   func() time.Time
}

func NewInventoryService(repo repository.InventoryRepository, cacheImpl cache.StockSummaryCache) *InventoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopStockSummaryCache()
	}
	return &InventoryService{repo: repo, cache: cacheImpl, now: time.Now}
}

// RecordEntry validates a stock count and stores it as one unit of work:
// the item is created on first use and the log appended. Invalid input never
// reaches the store.
func (s *InventoryService) RecordEntry(ctx context.Context, form domain.EntryForm) (*domain.Item, *domain.StockLogEntry, error) {
	if form.Date == "" {
		form.Date = s.now().Format(domain.DateLayout)
	}
	if err := validateStruct(form); err != nil {
		return nil, nil, err
	}

	fields := map[string]string{}
	if domain.NormalizeName(form.ItemName) == "" {
		fields["item_name"] = "required"
	}
	if domain.NormalizeName(form.Category) == "" {
		fields["category"] = "required"
	}
	if len(fields) > 0 {
		return nil, nil, &ValidationError{Fields: fields}
	}

	item, entry, err := s.repo.RecordEntry(ctx, form)
	if err != nil {
		return nil, nil, err
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("inventory: cache invalidate failed")
	}

	log.Info().
		Str("item", item.Name).
		Str("date", entry.Date).
		Int("current_stock", entry.CurrentStock).
		Int("usage_today", entry.UsageToday).
		Msg("stock entry recorded")

	return item, entry, nil
}

// Summary returns the latest date and summed stock per item.
func (s *InventoryService) Summary(ctx context.Context, filter domain.SummaryFilter) ([]domain.ItemStockSummary, error) {
	if summaries, ok, err := s.cache.GetSummary(ctx, filter); err == nil && ok {
		return summaries, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("inventory: cache get summary failed")
	}

	summaries, err := s.repo.ListStockSummaries(ctx, filter)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = make([]domain.ItemStockSummary, 0)
	}

	if err := s.cache.SetSummary(ctx, filter, summaries); err != nil {
		log.Warn().Err(err).Msg("inventory: cache set summary failed")
	}

	return summaries, nil
}

func (s *InventoryService) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.repo.ListItems(ctx)
}

// Categories returns the categories offered by the entry form.
func (s *InventoryService) Categories() []string {
	return append([]string(nil), domain.DefaultCategories...)
}

func (s *InventoryService) ExportRawLogs(ctx context.Context) ([]domain.RawStockLog, error) {
	return s.repo.ExportRawLogs(ctx)
}
