package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/repository"
	"github.com/jmoiron/sqlx"
)

type inventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) repository.InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) GetOrCreateItem(ctx context.Context, name, category string) (*domain.Item, error) {
	var item *domain.Item
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		item, err = r.getOrCreateItem(ctx, tx, name, category)
		return err
	})
	return item, err
}

func (r *inventoryRepository) getOrCreateItem(ctx context.Context, tx *sqlx.Tx, name, category string) (*domain.Item, error) {
	name = domain.NormalizeName(name)
	category = domain.NormalizeName(category)
	if name == "" || category == "" {
		return nil, fmt.Errorf("%w: item name and category are required", domain.ErrInvalidInput)
	}

	item, err := findItem(ctx, tx, name, category)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, domain.ErrItemNotFound) {
		return nil, err
	}

	id, err := r.db.insertID(ctx, tx, `INSERT INTO items (item_name, category) VALUES (?, ?)`, name, category)
	if err != nil {
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}
	return &domain.Item{ID: id, Name: name, Category: category}, nil
}

func (r *inventoryRepository) FindItem(ctx context.Context, name, category string) (*domain.Item, error) {
	return findItem(ctx, r.db, domain.NormalizeName(name), domain.NormalizeName(category))
}

// queryer is satisfied by both *DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func findItem(ctx context.Context, q queryer, name, category string) (*domain.Item, error) {
	var item domain.Item
	query := q.Rebind(`SELECT id, item_name, category FROM items WHERE item_name = ? AND category = ?`)
	err := sqlx.GetContext(ctx, q, &item, query, name, category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s (%s): %w", name, category, domain.ErrItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up item: %w", err)
	}
	return &item, nil
}

func (r *inventoryRepository) ListItems(ctx context.Context) ([]domain.Item, error) {
	items := []domain.Item{}
	err := r.db.SelectContext(ctx, &items, `SELECT id, item_name, category FROM items ORDER BY item_name, category`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (r *inventoryRepository) AppendStockLog(ctx context.Context, entry *domain.StockLogEntry) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return r.appendStockLog(ctx, tx, entry)
	})
}

func (r *inventoryRepository) appendStockLog(ctx context.Context, tx *sqlx.Tx, entry *domain.StockLogEntry) error {
	var exists int
	err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM items WHERE id = ?`), entry.ItemID)
	if err != nil {
		return fmt.Errorf("failed to check item: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("item id %d: %w", entry.ItemID, domain.ErrItemNotFound)
	}

	id, err := r.db.insertID(ctx, tx, `
		INSERT INTO stock_logs (item_id, current_stock, usage_today, damaged_stock, delivery_quantity, date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ItemID,
		entry.CurrentStock,
		entry.UsageToday,
		nullInt(entry.DamagedStock),
		nullInt(entry.DeliveryQuantity),
		entry.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stock log: %w", err)
	}
	entry.ID = id
	return nil
}

func (r *inventoryRepository) RecordEntry(ctx context.Context, form domain.EntryForm) (*domain.Item, *domain.StockLogEntry, error) {
	var (
		item  *domain.Item
		entry *domain.StockLogEntry
	)
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		item, err = r.getOrCreateItem(ctx, tx, form.ItemName, form.Category)
		if err != nil {
			return err
		}

		entry = &domain.StockLogEntry{
			ItemID:           item.ID,
			CurrentStock:     form.CurrentStock,
			UsageToday:       form.UsageToday,
			DamagedStock:     form.DamagedStock,
			DeliveryQuantity: form.DeliveryQuantity,
			Date:             form.Date,
		}
		return r.appendStockLog(ctx, tx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return item, entry, nil
}

func (r *inventoryRepository) ListStockSummaries(ctx context.Context, filter domain.SummaryFilter) ([]domain.ItemStockSummary, error) {
	query := `
		SELECT
			i.item_name,
			i.category,
			MAX(l.date) AS latest_date,
			COALESCE(SUM(l.current_stock), 0) AS total_stock,
			COUNT(l.id) AS entry_count,
			COALESCE(SUM(l.usage_today), 0) AS total_usage
		FROM items i
		JOIN stock_logs l ON l.item_id = i.id
	`
	var args []interface{}
	if filter.Category != "" {
		query += " WHERE i.category = ?"
		args = append(args, domain.NormalizeName(filter.Category))
	}
	query += `
		GROUP BY i.id, i.item_name, i.category
		ORDER BY i.item_name, i.category
	`

	summaries := []domain.ItemStockSummary{}
	if err := r.db.SelectContext(ctx, &summaries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load stock summaries: %w", err)
	}
	return summaries, nil
}

type rawLogRow struct {
	ItemName         string        `db:"item_name"`
	Category         string        `db:"category"`
	CurrentStock     int64         `db:"current_stock"`
	UsageToday       int64         `db:"usage_today"`
	DamagedStock     sql.NullInt64 `db:"damaged_stock"`
	DeliveryQuantity sql.NullInt64 `db:"delivery_quantity"`
	Date             string        `db:"date"`
}

func (r *inventoryRepository) ExportRawLogs(ctx context.Context) ([]domain.RawStockLog, error) {
	query := `
		SELECT i.item_name, i.category, l.current_stock, l.usage_today,
		       l.damaged_stock, l.delivery_quantity, l.date
		FROM stock_logs l
		JOIN items i ON i.id = l.item_id
		ORDER BY l.id
	`

	var rows []rawLogRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to export stock logs: %w", err)
	}

	raw := make([]domain.RawStockLog, 0, len(rows))
	for _, row := range rows {
		raw = append(raw, domain.RawStockLog{
			ItemName:         row.ItemName,
			Category:         row.Category,
			CurrentStock:     strconv.FormatInt(row.CurrentStock, 10),
			UsageToday:       strconv.FormatInt(row.UsageToday, 10),
			DamagedStock:     nullString(row.DamagedStock),
			DeliveryQuantity: nullString(row.DeliveryQuantity),
			Date:             row.Date,
		})
	}
	return raw, nil
}

func nullString(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}
