package enrich

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"eventflow/pkg/message"
)

type MongoConfig struct {
	Collection string `mapstructure:"collection"`
	Field      string `mapstructure:"field"`
}

// MongoProvider returns the first document whose Field equals the lookup
// value. Field defaults to _id.
type MongoProvider struct {
	coll  *mongo.Collection
	field string
}

func NewMongoProvider(db *mongo.Database, cfg MongoConfig) (*MongoProvider, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection is required for mongodb provider")
	}
	field := cfg.Field
	if field == "" {
		field = "_id"
	}
	return &MongoProvider{coll: db.Collection(cfg.Collection), field: field}, nil
}

func (p *MongoProvider) Fetch(ctx context.Context, value string) (map[string]interface{}, error) {
	raw, err := p.coll.FindOne(ctx, bson.M{p.field: value}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb query failed: %w", err)
	}

	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("convert document: %w", err)
	}
	msg, err := message.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return msg.Document(), nil
}
