package source

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventflow/pkg/message"
	"eventflow/pkg/metrics"
)

type MongoConfig struct {
	Routing `mapstructure:",squash"`

	Collection string        `mapstructure:"collection"`
	Filter     string        `mapstructure:"filter"`
	Limit      int64         `mapstructure:"limit"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// NewMongo returns a bulk source over the documents matched by Filter, an
// extended JSON query document. Documents are converted through relaxed
// extended JSON.
func NewMongo(db *mongo.Database, cfg MongoConfig) (*Bulk, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("mongo source needs a collection")
	}
	filter := bson.M{}
	if cfg.Filter != "" {
		if err := bson.UnmarshalExtJSON([]byte(cfg.Filter), false, &filter); err != nil {
			return nil, fmt.Errorf("invalid mongo filter: %w", err)
		}
	}

	coll := db.Collection(cfg.Collection)
	return NewBulk("mongo", cfg.Routing, cfg.Timeout, func(ctx context.Context) ([]*message.Message, error) {
		start := time.Now()
		msgs, err := findAll(ctx, coll, filter, cfg.Limit)
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.IncDatabaseQuery("source", "mongodb", "find", status)
		metrics.ObserveDatabaseQueryDuration("source", "mongodb", "find", time.Since(start))
		return msgs, err
	})
}

func findAll(ctx context.Context, coll *mongo.Collection, filter bson.M, limit int64) ([]*message.Message, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*message.Message
	for cursor.Next(ctx) {
		data, err := bson.MarshalExtJSON(cursor.Current, false, false)
		if err != nil {
			return nil, fmt.Errorf("convert document: %w", err)
		}
		msg, err := message.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}
		out = append(out, msg)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}
	return out, nil
}
