package sqldb

import (
	"context"
	"fmt"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/repository"
	"github.com/jmoiron/sqlx"
)

type feedbackRepository struct {
	db *DB
}

func NewFeedbackRepository(db *DB) repository.FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) AppendFeedback(ctx context.Context, record *domain.FeedbackRecord) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		id, err := r.db.insertID(ctx, tx, `
			INSERT INTO feedback_logs (item_name, feedback_type, feedback_value, date)
			VALUES (?, ?, ?, ?)`,
			record.ItemName, record.Type, record.Value, record.Date,
		)
		if err != nil {
			return fmt.Errorf("failed to insert feedback: %w", err)
		}
		record.ID = id
		return nil
	})
}

func (r *feedbackRepository) ListFeedback(ctx context.Context, limit int) ([]domain.FeedbackRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	records := []domain.FeedbackRecord{}
	query := r.db.Rebind(`
		SELECT id, item_name, feedback_type, feedback_value, date
		FROM feedback_logs
		ORDER BY id DESC
		LIMIT ?`)
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return records, nil
}
