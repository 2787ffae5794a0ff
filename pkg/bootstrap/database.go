package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventflow/internal/config"
	"eventflow/internal/logger"
	"eventflow/pkg/migrations"
)

// Connections holds the shared database handles. A handle stays nil when its
// section is not configured.
type Connections struct {
	Redis    *redis.Client
	Postgres *sql.DB
	Mongo    *mongo.Client
	MongoDB  *mongo.Database
}

type DatabaseConnector struct {
	Config config.DatabaseConfig
	Logger logger.Logger
}

func NewDatabaseConnector(cfg config.DatabaseConfig, log logger.Logger) *DatabaseConnector {
	if log == nil {
		log = logger.NopLogger()
	}
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

// Connect opens every configured database and registers its close step on
// base. On failure the connections opened so far are closed again.
func (dc *DatabaseConnector) Connect(ctx context.Context, base *Base) (*Connections, error) {
	conns := &Connections{}

	if dc.Config.Redis.Configured() {
		rdb, err := dc.InitRedis(ctx)
		if err != nil {
			return nil, dc.abort(ctx, conns, err)
		}
		conns.Redis = rdb
	}

	if dc.Config.Postgres.Configured() {
		db, err := dc.InitPostgreSQL(ctx)
		if err != nil {
			return nil, dc.abort(ctx, conns, err)
		}
		conns.Postgres = db
	}

	if dc.Config.MongoDB.Configured() {
		client, err := dc.InitMongoDB(ctx)
		if err != nil {
			return nil, dc.abort(ctx, conns, err)
		}
		conns.Mongo = client
		conns.MongoDB = client.Database(dc.Config.MongoDB.Database)
	}

	if base != nil {
		base.OnShutdown("databases", func(ctx context.Context) error {
			return dc.ShutdownDatabases(ctx, conns)
		})
	}
	return conns, nil
}

func (dc *DatabaseConnector) abort(ctx context.Context, conns *Connections, err error) error {
	if closeErr := dc.ShutdownDatabases(ctx, conns); closeErr != nil {
		dc.Logger.WarnwCtx(ctx, "Failed to close partial connections", "error", closeErr)
	}
	return err
}

func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", dc.Config.Redis.Host, dc.Config.Redis.Port),
		Password: dc.Config.Redis.Password,
		DB:       dc.Config.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.InfowCtx(ctx, "Redis connected successfully")
	return rdb, nil
}

// InitPostgreSQL connects and applies the bundled schema migrations.
func (dc *DatabaseConnector) InitPostgreSQL(ctx context.Context) (*sql.DB, error) {
	pg := dc.Config.Postgres
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pg.User,
		pg.Password,
		pg.Host,
		pg.Port,
		pg.DBName,
		pg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrations.MigratePostgres(db); err != nil {
		db.Close()
		return nil, err
	}

	dc.Logger.InfowCtx(ctx, "PostgreSQL connected successfully")
	return db, nil
}

func (dc *DatabaseConnector) InitMongoDB(ctx context.Context) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dc.Config.MongoDB.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dc.Logger.InfowCtx(ctx, "MongoDB connected successfully")
	return client, nil
}

func (dc *DatabaseConnector) ShutdownDatabases(ctx context.Context, conns *Connections) error {
	var errs []error

	if conns.Redis != nil {
		if err := conns.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if conns.Postgres != nil {
		if err := conns.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres close error: %w", err))
		}
	}

	if conns.Mongo != nil {
		if err := conns.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%v", errs)
	}
	return nil
}
