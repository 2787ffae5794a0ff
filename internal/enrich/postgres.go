package enrich

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"eventflow/internal/dbutil"
)

type PostgresConfig struct {
	Table string `mapstructure:"table"`
	Field string `mapstructure:"field"`
	Query string `mapstructure:"query"`
}

// PostgresProvider returns the first row of Query, run with the lookup
// value bound to $1. Without a query it selects from Table where Field
// equals the value.
type PostgresProvider struct {
	db    *sql.DB
	query string
}

func NewPostgresProvider(db *sql.DB, cfg PostgresConfig) (*PostgresProvider, error) {
	query := cfg.Query
	if query == "" {
		if cfg.Table == "" || cfg.Field == "" {
			return nil, fmt.Errorf("postgresql provider needs a query or a table and field")
		}
		query = fmt.Sprintf("SELECT * FROM %s WHERE %s = $1 LIMIT 1",
			pq.QuoteIdentifier(cfg.Table), pq.QuoteIdentifier(cfg.Field))
	}
	return &PostgresProvider{db: db, query: query}, nil
}

func (p *PostgresProvider) Fetch(ctx context.Context, value string) (map[string]interface{}, error) {
	rows, err := p.db.QueryContext(ctx, p.query, value)
	if err != nil {
		return nil, fmt.Errorf("postgresql query failed: %w", err)
	}
	defer rows.Close()

	docs, err := dbutil.ScanMaps(rows, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, notFound("row not found")
	}
	return docs[0], nil
}
