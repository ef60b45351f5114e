package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/goliatone/go-integrations/core"
	integrationmigrations "github.com/goliatone/go-integrations/migrations"
	"github.com/goliatone/go-integrations/settings"
	redisstore "github.com/goliatone/go-integrations/store/redis"
	sqlstore "github.com/goliatone/go-integrations/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "go-integrations"
}

// storeHandle is the opened ephemeral store plus what serve needs to run
// and release it. store is nil for the memory driver so the service builds
// its own.
type storeHandle struct {
	store  core.EphemeralStore
	purger interface {
		PurgeExpired(ctx context.Context) (int64, error)
	}
	close func() error
}

func openStore(ctx context.Context, cfg settings.Settings) (storeHandle, error) {
	ttl := time.Duration(cfg.ExpirySeconds) * time.Second
	switch cfg.Driver() {
	case settings.StoreMemory:
		return storeHandle{close: func() error { return nil }}, nil
	case settings.StoreRedis:
		store, err := redisstore.Open(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		}, redisstore.WithDefaultTTL(ttl))
		if err != nil {
			return storeHandle{}, err
		}
		return storeHandle{store: store, close: store.Close}, nil
	case settings.StoreSQLite, settings.StorePostgres:
		client, err := openPersistence(ctx, cfg)
		if err != nil {
			return storeHandle{}, err
		}
		store, err := sqlstore.NewStoreFromPersistence(client, sqlstore.WithDefaultTTL(ttl))
		if err != nil {
			_ = client.Close()
			return storeHandle{}, err
		}
		return storeHandle{store: store, purger: store, close: client.Close}, nil
	default:
		return storeHandle{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// openPersistence connects to the SQL database and applies the embedded
// migrations for its dialect.
func openPersistence(ctx context.Context, cfg settings.Settings) (*persistence.Client, error) {
	driverName, target := "postgres", integrationmigrations.DialectPostgres
	if cfg.Driver() == settings.StoreSQLite {
		driverName, target = "sqlite3", integrationmigrations.DialectSQLite
	}

	sqlDB, err := sql.Open(driverName, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driverName, err)
	}
	if driverName == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}
	pcfg := persistenceConfig{
		driver: driverName,
		server: cfg.DatabaseDSN,
		debug:  cfg.DatabaseDebug,
	}
	var client *persistence.Client
	if driverName == "sqlite3" {
		client, err = persistence.New(pcfg, sqlDB, sqlitedialect.New())
	} else {
		client, err = persistence.New(pcfg, sqlDB, pgdialect.New())
	}
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("persistence client: %w", err)
	}

	if err := integrationmigrations.RegisterDialect(ctx, target, func(fsys fs.FS) {
		client.RegisterSQLMigrations(fsys)
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return client, nil
}
