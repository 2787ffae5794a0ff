package sink

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"eventflow/internal/constants"
	"eventflow/internal/engine"
	"eventflow/internal/logger"
	"eventflow/pkg/message"
	"eventflow/pkg/metrics"
	"eventflow/pkg/migrations"
)

type PostgresConfig struct {
	Table     string `mapstructure:"table"`
	BatchSize int    `mapstructure:"batch_size"`
}

type row struct {
	stream   string
	pipeline string
	payload  string
}

// Postgres buffers messages and writes them in batches with COPY into a
// table with (stream, pipeline, payload) columns. The buffer is written
// when it reaches BatchSize and on Flush and Close.
type Postgres struct {
	db        *sql.DB
	table     string
	batchSize int
	reporter

	mu  sync.Mutex
	buf []row
}

func NewPostgres(name string, db *sql.DB, cfg PostgresConfig, log logger.Logger) *Postgres {
	table := cfg.Table
	if table == "" {
		table = migrations.EventsTable
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = constants.DefaultSinkBatchSize
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &Postgres{
		db:        db,
		table:     table,
		batchSize: batch,
		reporter:  reporter{name: name, log: log},
	}
}

func (p *Postgres) Init(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Process(mc *engine.MessageContext) {
	if err := p.add(mc.Context(), row{
		stream:   streamName(mc),
		pipeline: mc.Pipeline(),
		payload:  mc.Message().ToLine(),
	}); err != nil {
		p.report(mc, err)
	}
}

func (p *Postgres) ProcessMessage(msg *message.Message) {
	if err := p.add(context.Background(), row{payload: msg.ToLine()}); err != nil {
		p.report(nil, err)
	}
}

func (p *Postgres) add(ctx context.Context, r row) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = append(p.buf, r)
	if len(p.buf) < p.batchSize {
		return nil
	}
	return p.flushLocked(ctx)
}

func (p *Postgres) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(ctx)
}

// Close writes what is left in the buffer. The database handle is shared
// and stays open.
func (p *Postgres) Close(ctx context.Context) error {
	return p.Flush(ctx)
}

// Buffered reports rows not yet written.
func (p *Postgres) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

func (p *Postgres) flushLocked(ctx context.Context) error {
	if len(p.buf) == 0 {
		return nil
	}

	start := time.Now()
	err := p.copyRows(ctx, p.buf)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery("sink", "postgres", "copy", status)
	metrics.ObserveDatabaseQueryDuration("sink", "postgres", "copy", time.Since(start))
	if err != nil {
		return fmt.Errorf("write %d rows to %s: %w", len(p.buf), p.table, err)
	}

	for range p.buf {
		metrics.IncSinkDelivery(p.name, "success")
	}
	p.buf = p.buf[:0]
	return nil
}

func (p *Postgres) copyRows(ctx context.Context, rows []row) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(p.table, "stream", "pipeline", "payload"))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.stream, r.pipeline, r.payload); err != nil {
			stmt.Close()
			return err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}
