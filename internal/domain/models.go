// internal/domain/models.go
package domain

import "time"

// DateLayout is the ISO calendar date layout used for stored and exported dates.
const DateLayout = "2006-01-02"

// Item represents a tracked grocery product
type Item struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"item_name" db:"item_name"`
	Category string `json:"category" db:"category"`
}

// StockLogEntry is one dated observation of an item's stock movement.
// Entries are append-only.
type StockLogEntry struct {
	ID               int64  `json:"id" db:"id"`
	ItemID           int64  `json:"item_id" db:"item_id"`
	CurrentStock     int    `json:"current_stock" db:"current_stock"`
	UsageToday       int    `json:"usage_today" db:"usage_today"`
	DamagedStock     *int   `json:"damaged_stock,omitempty" db:"damaged_stock"`
	DeliveryQuantity *int   `json:"delivery_quantity,omitempty" db:"delivery_quantity"`
	Date             string `json:"date" db:"date"`
}

// EntryForm is a stock count as submitted by the entry form or an import sheet.
type EntryForm struct {
	ItemName         string `json:"item_name" validate:"required,max=120"`
	Category         string `json:"category" validate:"required,max=60"`
	CurrentStock     int    `json:"current_stock" validate:"gte=0"`
	UsageToday       int    `json:"usage_today" validate:"gte=0"`
	DamagedStock     *int   `json:"damaged_stock,omitempty" validate:"omitempty,gte=0"`
	DeliveryQuantity *int   `json:"delivery_quantity,omitempty" validate:"omitempty,gte=0"`
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
}

// RawStockLog is the export shape of a stock log joined with its item.
// Every field is kept as text so the cleaning stage can judge completeness
// and parseability itself; an empty string means the value is missing.
type RawStockLog struct {
	ItemName         string
	Category         string
	CurrentStock     string
	UsageToday       string
	DamagedStock     string
	DeliveryQuantity string
	Date             string
}

// CleanedRecord is a deduplicated, type-normalized stock observation
type CleanedRecord struct {
	ItemName     string    `json:"item_name"`
	Date         time.Time `json:"date"`
	CurrentStock int       `json:"current_stock"`
	UsageToday   int       `json:"usage_today"`
}

// FeedbackRecord is a user judgment on a forecast or anomaly result.
type FeedbackRecord struct {
	ID       int64  `json:"id" db:"id"`
	ItemName string `json:"item_name" db:"item_name" validate:"required,max=120"`
	Type     string `json:"feedback_type" db:"feedback_type" validate:"required,oneof=forecast anomaly"`
	Value    string `json:"feedback_value" db:"feedback_value" validate:"required,oneof=agree disagree"`
	Date     string `json:"date" db:"date" validate:"required,datetime=2006-01-02"`
}

// ItemStockSummary is the live aggregate view of one item over all its logs
type ItemStockSummary struct {
	ItemName   string `json:"item_name" db:"item_name"`
	Category   string `json:"category" db:"category"`
	LatestDate string `json:"latest_date" db:"latest_date"`
	TotalStock int64  `json:"total_stock" db:"total_stock"`
	EntryCount int    `json:"entry_count" db:"entry_count"`
	TotalUsage int64  `json:"total_usage" db:"total_usage"`
}

// SummaryFilter narrows the stock summary view
type SummaryFilter struct {
	Category string `json:"category"`
}

// PipelineRun tracks a single execution of one stage, optionally for one item
type PipelineRun struct {
	ID           int64      `json:"id" db:"id"`
	Stage        string     `json:"stage" db:"stage"`
	ItemName     string     `json:"item_name" db:"item_name"`
	InputHash    string     `json:"input_hash" db:"input_hash"`
	Status       string     `json:"status" db:"status"`
	RowCount     int        `json:"row_count" db:"row_count"`
	StartedAt    time.Time  `json:"started_at" db:"-"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"-"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
}
