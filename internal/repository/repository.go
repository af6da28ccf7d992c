package repository

import (
	"context"

	"github.com/andresuchdata/grocerystock/internal/domain"
)

// InventoryRepository persists items and their stock logs.
type InventoryRepository interface {
	// GetOrCreateItem returns the item with the normalized name and category,
	// inserting it when absent.
	GetOrCreateItem(ctx context.Context, name, category string) (*domain.Item, error)
	FindItem(ctx context.Context, name, category string) (*domain.Item, error)
	ListItems(ctx context.Context) ([]domain.Item, error)

	// AppendStockLog fails with domain.ErrItemNotFound when entry.ItemID does
	// not reference an existing item; nothing is written in that case.
	AppendStockLog(ctx context.Context, entry *domain.StockLogEntry) error

	// RecordEntry resolves the item and appends the log in one transaction.
	RecordEntry(ctx context.Context, form domain.EntryForm) (*domain.Item, *domain.StockLogEntry, error)

	ListStockSummaries(ctx context.Context, filter domain.SummaryFilter) ([]domain.ItemStockSummary, error)
	ExportRawLogs(ctx context.Context) ([]domain.RawStockLog, error)
}

// FeedbackRepository stores user feedback. Records are write-only for the
// pipeline.
type FeedbackRepository interface {
	AppendFeedback(ctx context.Context, record *domain.FeedbackRecord) error
	ListFeedback(ctx context.Context, limit int) ([]domain.FeedbackRecord, error)
}

// PipelineRunRepository tracks stage executions.
type PipelineRunRepository interface {
	CreateRun(ctx context.Context, run *domain.PipelineRun) error
	FinishRun(ctx context.Context, run *domain.PipelineRun) error
	LatestRun(ctx context.Context, stage, item string) (*domain.PipelineRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error)
}
