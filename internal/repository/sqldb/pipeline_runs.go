package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/repository"
	"github.com/jmoiron/sqlx"
)

type pipelineRunRepository struct {
	db *DB
}

func NewPipelineRunRepository(db *DB) repository.PipelineRunRepository {
	return &pipelineRunRepository{db: db}
}

type pipelineRunRow struct {
	ID           int64          `db:"id"`
	Stage        string         `db:"stage"`
	ItemName     string         `db:"item_name"`
	InputHash    string         `db:"input_hash"`
	Status       string         `db:"status"`
	RowCount     int            `db:"row_count"`
	StartedAt    string         `db:"started_at"`
	CompletedAt  sql.NullString `db:"completed_at"`
	ErrorMessage sql.NullString `db:"error_message"`
}

func (row pipelineRunRow) toDomain() domain.PipelineRun {
	run := domain.PipelineRun{
		ID:           row.ID,
		Stage:        row.Stage,
		ItemName:     row.ItemName,
		InputHash:    row.InputHash,
		Status:       row.Status,
		RowCount:     row.RowCount,
		StartedAt:    parseTimestamp(row.StartedAt),
		ErrorMessage: row.ErrorMessage.String,
	}
	if row.CompletedAt.Valid {
		completed := parseTimestamp(row.CompletedAt.String)
		run.CompletedAt = &completed
	}
	return run
}

const pipelineRunColumns = `id, stage, item_name, input_hash, status, row_count, started_at, completed_at, error_message`

// CreateRun inserts a new run record
func (r *pipelineRunRepository) CreateRun(ctx context.Context, run *domain.PipelineRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = domain.RunStatusProcessing
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		id, err := r.db.insertID(ctx, tx, `
			INSERT INTO pipeline_runs (stage, item_name, input_hash, status, row_count, started_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.Stage, run.ItemName, run.InputHash, run.Status, run.RowCount, formatTimestamp(run.StartedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create pipeline run: %w", err)
		}
		run.ID = id
		return nil
	})
}

// FinishRun stores the final status, row count and error of run
func (r *pipelineRunRepository) FinishRun(ctx context.Context, run *domain.PipelineRun) error {
	if run.CompletedAt == nil {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}

	var errMsg sql.NullString
	if run.ErrorMessage != "" {
		errMsg = sql.NullString{String: run.ErrorMessage, Valid: true}
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE pipeline_runs
			SET status = ?, input_hash = ?, row_count = ?, completed_at = ?, error_message = ?
			WHERE id = ?`),
			run.Status, run.InputHash, run.RowCount, formatTimestamp(*run.CompletedAt), errMsg, run.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update pipeline run %d: %w", run.ID, err)
		}
		return nil
	})
}

// LatestRun returns the most recent run of stage for item, or nil if none
func (r *pipelineRunRepository) LatestRun(ctx context.Context, stage, item string) (*domain.PipelineRun, error) {
	var row pipelineRunRow
	query := r.db.Rebind(`SELECT ` + pipelineRunColumns + `
		FROM pipeline_runs
		WHERE stage = ? AND item_name = ?
		ORDER BY id DESC
		LIMIT 1`)
	err := r.db.GetContext(ctx, &row, query, stage, item)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest %s run: %w", stage, err)
	}

	run := row.toDomain()
	return &run, nil
}

func (r *pipelineRunRepository) ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []pipelineRunRow
	query := r.db.Rebind(`SELECT ` + pipelineRunColumns + ` FROM pipeline_runs ORDER BY id DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}

	runs := make([]domain.PipelineRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.toDomain())
	}
	return runs, nil
}
