package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IngestedAtField is stamped on every document written by the mongo sink.
const IngestedAtField = "_ingested_at"

// EnsureSinkCollection creates the indexes the mongo sink relies on: one on
// the ingestion timestamp plus one ascending index per entry of fields.
// Existing indexes are left alone.
func EnsureSinkCollection(ctx context.Context, db *mongo.Database, collection string, fields []string) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: IngestedAtField, Value: -1}},
			Options: options.Index().SetName("idx_" + collection + "_ingested_at"),
		},
	}
	for _, field := range fields {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetName("idx_" + collection + "_" + strings.ReplaceAll(field, ".", "_")),
		})
	}

	_, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
	}
	return nil
}
