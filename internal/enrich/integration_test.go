//go:build integration

package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"eventflow/internal/testinfra"
	apperrors "eventflow/pkg/errors"
)

func TestRedisProvider_Integration(t *testing.T) {
	client := testinfra.Redis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "customer:1", `{"name":"ada"}`, 0).Err())
	require.NoError(t, client.Set(ctx, "customer:2", "plain", 0).Err())

	p, err := NewRedisProvider(client, RedisConfig{KeyPattern: "customer:{value}"})
	require.NoError(t, err)

	data, err := p.Fetch(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "ada", data["name"])

	data, err = p.Fetch(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"value": "plain"}, data)

	_, err = p.Fetch(ctx, "3")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCachedProvider_Integration(t *testing.T) {
	client := testinfra.Redis(t)
	ctx := context.Background()

	calls := 0
	inner := ProviderFunc(func(ctx context.Context, value string) (map[string]interface{}, error) {
		calls++
		return map[string]interface{}{"value": value}, nil
	})
	p := NewCachedProvider(inner, client, "lookup", time.Minute, nil)

	for i := 0; i < 3; i++ {
		data, err := p.Fetch(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "k", data["value"])
	}
	assert.Equal(t, 1, calls)

	ttl, err := client.TTL(ctx, "enrich:lookup:k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestMongoProvider_Integration(t *testing.T) {
	db := testinfra.Mongo(t)
	ctx := context.Background()

	_, err := db.Collection("customers").InsertOne(ctx, bson.M{"code": "c-1", "tier": "gold"})
	require.NoError(t, err)

	p, err := NewMongoProvider(db, MongoConfig{Collection: "customers", Field: "code"})
	require.NoError(t, err)

	data, err := p.Fetch(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "gold", data["tier"])

	_, err = p.Fetch(ctx, "c-2")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPostgresProvider_Integration(t *testing.T) {
	db := testinfra.Postgres(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `CREATE TABLE customers (code text PRIMARY KEY, tier text, attrs jsonb)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO customers VALUES ('c-1', 'gold', '{"vip":true}')`)
	require.NoError(t, err)

	p, err := NewPostgresProvider(db, PostgresConfig{Table: "customers", Field: "code"})
	require.NoError(t, err)

	data, err := p.Fetch(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "gold", data["tier"])
	assert.Equal(t, map[string]interface{}{"vip": true}, data["attrs"])

	_, err = p.Fetch(ctx, "c-9")
	assert.True(t, apperrors.IsNotFound(err))
}
