package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// schema is written with {{id}} for the auto-increment primary key column,
// which differs per dialect.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id {{id}},
		item_name VARCHAR(120) NOT NULL,
		category VARCHAR(60) NOT NULL,
		UNIQUE (item_name, category)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_logs (
		id {{id}},
		item_id BIGINT NOT NULL,
		current_stock INTEGER NOT NULL CHECK (current_stock >= 0),
		usage_today INTEGER NOT NULL CHECK (usage_today >= 0),
		damaged_stock INTEGER NULL CHECK (damaged_stock IS NULL OR damaged_stock >= 0),
		delivery_quantity INTEGER NULL CHECK (delivery_quantity IS NULL OR delivery_quantity >= 0),
		date VARCHAR(32) NOT NULL,
		FOREIGN KEY (item_id) REFERENCES items (id)
	)`,
	`CREATE INDEX idx_stock_logs_item_date ON stock_logs (item_id, date)`,
	`CREATE TABLE IF NOT EXISTS feedback_logs (
		id {{id}},
		item_name VARCHAR(120) NOT NULL,
		feedback_type VARCHAR(20) NOT NULL,
		feedback_value VARCHAR(20) NOT NULL,
		date VARCHAR(32) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id {{id}},
		stage VARCHAR(32) NOT NULL,
		item_name VARCHAR(120) NOT NULL DEFAULT '',
		input_hash VARCHAR(64) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		started_at VARCHAR(40) NOT NULL,
		completed_at VARCHAR(40) NULL,
		error_message TEXT NULL
	)`,
}

func (db *DB) idColumn() string {
	switch {
	case db.isPostgres():
		return "BIGSERIAL PRIMARY KEY"
	case db.driver == "mysql":
		return "BIGINT AUTO_INCREMENT PRIMARY KEY"
	default:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// Migrate creates the schema when missing. It is safe to run repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		stmt = strings.ReplaceAll(stmt, "{{id}}", db.idColumn())
		if strings.HasPrefix(stmt, "CREATE INDEX") && db.driver != "mysql" {
			// mysql has no CREATE INDEX IF NOT EXISTS
			stmt = strings.Replace(stmt, "CREATE INDEX", "CREATE INDEX IF NOT EXISTS", 1)
		}

		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if db.driver == "mysql" && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Info().Str("driver", db.driver).Int("statements", len(schema)).Msg("schema migrated")
	return nil
}
