package sink

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"eventflow/internal/engine"
	"eventflow/internal/logger"
	"eventflow/pkg/message"
	"eventflow/pkg/metrics"
	"eventflow/pkg/migrations"
)

type MongoConfig struct {
	Collection string   `mapstructure:"collection"`
	Indexes    []string `mapstructure:"indexes"`
}

// Mongo inserts one document per message, stamped with the ingestion time.
// Init ensures the collection's indexes.
type Mongo struct {
	coll    *mongo.Collection
	db      *mongo.Database
	indexes []string
	reporter
}

func NewMongo(name string, db *mongo.Database, cfg MongoConfig, log logger.Logger) (*Mongo, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("mongo sink %s needs a collection", name)
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &Mongo{
		coll:     db.Collection(cfg.Collection),
		db:       db,
		indexes:  cfg.Indexes,
		reporter: reporter{name: name, log: log},
	}, nil
}

func (m *Mongo) Init(ctx context.Context) error {
	return migrations.EnsureSinkCollection(ctx, m.db, m.coll.Name(), m.indexes)
}

func (m *Mongo) Process(mc *engine.MessageContext) {
	m.report(mc, m.insert(mc.Context(), mc.Message()))
}

func (m *Mongo) ProcessMessage(msg *message.Message) {
	m.report(nil, m.insert(context.Background(), msg))
}

func (m *Mongo) insert(ctx context.Context, msg *message.Message) error {
	doc := msg.Document()
	doc[migrations.IngestedAtField] = time.Now().UTC()

	start := time.Now()
	_, err := m.coll.InsertOne(ctx, doc)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery("sink", "mongodb", "insert", status)
	metrics.ObserveDatabaseQueryDuration("sink", "mongodb", "insert", time.Since(start))
	if err != nil {
		return fmt.Errorf("insert into %s: %w", m.coll.Name(), err)
	}
	return nil
}

func (m *Mongo) Flush(context.Context) error {
	return nil
}

func (m *Mongo) Close(context.Context) error {
	return nil
}
