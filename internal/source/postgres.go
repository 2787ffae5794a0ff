package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eventflow/internal/dbutil"
	"eventflow/pkg/message"
	"eventflow/pkg/metrics"
)

type PostgresConfig struct {
	Routing `mapstructure:",squash"`

	Query   string        `mapstructure:"query"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NewPostgres returns a bulk source over the rows of one query. Each row
// becomes a message keyed by column name.
func NewPostgres(db *sql.DB, cfg PostgresConfig) (*Bulk, error) {
	if cfg.Query == "" {
		return nil, fmt.Errorf("postgres source needs a query")
	}
	return NewBulk("postgres", cfg.Routing, cfg.Timeout, func(ctx context.Context) ([]*message.Message, error) {
		start := time.Now()
		msgs, err := queryRows(ctx, db, cfg.Query)
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.IncDatabaseQuery("source", "postgres", "select", status)
		metrics.ObserveDatabaseQueryDuration("source", "postgres", "select", time.Since(start))
		return msgs, err
	})
}

func queryRows(ctx context.Context, db *sql.DB, query string) ([]*message.Message, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	docs, err := dbutil.ScanMaps(rows, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*message.Message, len(docs))
	for i, doc := range docs {
		out[i] = message.New(doc)
	}
	return out, nil
}
