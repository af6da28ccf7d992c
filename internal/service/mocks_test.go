package service

import (
	"context"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockInventoryRepo struct {
	mock.Mock
}

func (m *mockInventoryRepo) GetOrCreateItem(ctx context.Context, name, category string) (*domain.Item, error) {
	args := m.Called(ctx, name, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *mockInventoryRepo) FindItem(ctx context.Context, name, category string) (*domain.Item, error) {
	args := m.Called(ctx, name, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *mockInventoryRepo) ListItems(ctx context.Context) ([]domain.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Item), args.Error(1)
}

func (m *mockInventoryRepo) AppendStockLog(ctx context.Context, entry *domain.StockLogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockInventoryRepo) RecordEntry(ctx context.Context, form domain.EntryForm) (*domain.Item, *domain.StockLogEntry, error) {
	args := m.Called(ctx, form)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Item), args.Get(1).(*domain.StockLogEntry), args.Error(2)
}

func (m *mockInventoryRepo) ListStockSummaries(ctx context.Context, filter domain.SummaryFilter) ([]domain.ItemStockSummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ItemStockSummary), args.Error(1)
}

func (m *mockInventoryRepo) ExportRawLogs(ctx context.Context) ([]domain.RawStockLog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawStockLog), args.Error(1)
}

type mockSummaryCache struct {
	mock.Mock
}

func (m *mockSummaryCache) GetSummary(ctx context.Context, filter domain.SummaryFilter) ([]domain.ItemStockSummary, bool, error) {
	args := m.Called(ctx, filter)
	summaries, _ := args.Get(0).([]domain.ItemStockSummary)
	return summaries, args.Bool(1), args.Error(2)
}

func (m *mockSummaryCache) SetSummary(ctx context.Context, filter domain.SummaryFilter, summaries []domain.ItemStockSummary) error {
	return m.Called(ctx, filter, summaries).Error(0)
}

func (m *mockSummaryCache) InvalidateAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockFeedbackRepo struct {
	mock.Mock
}

func (m *mockFeedbackRepo) AppendFeedback(ctx context.Context, record *domain.FeedbackRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockFeedbackRepo) ListFeedback(ctx context.Context, limit int) ([]domain.FeedbackRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FeedbackRecord), args.Error(1)
}
