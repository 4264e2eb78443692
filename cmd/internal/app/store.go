package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// sessionBackend owns the session store and the connections behind it.
type sessionBackend struct {
	kind  string
	store approval.Store

	dbPool *pgxpool.Pool
	redis  *redis.Client

	// ping is nil for the in-memory store.
	ping func(ctx context.Context) error
}

// durable reports whether sessions survive a restart.
func (b *sessionBackend) durable() bool { return b.kind != StoreMemory }

// Close closes the store first, then the connections it borrowed.
func (b *sessionBackend) Close() error {
	var errs []error
	if b.store != nil {
		errs = append(errs, b.store.Close())
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.dbPool != nil {
		b.dbPool.Close()
	}
	return errors.Join(errs...)
}

// newSessionBackend opens the store selected by cfg.Store. Durable backends are wrapped in
// approval.Resilient so a failing write degrades to the in-process overlay instead of
// failing the request. onDegraded is called once per degraded operation.
func newSessionBackend(ctx context.Context, cfg Config, log Logger, onDegraded func(op string)) (*sessionBackend, error) {
	b := &sessionBackend{kind: cfg.Store}

	var backend approval.Store
	switch cfg.Store {
	case StoreMemory, "":
		b.kind = StoreMemory
		b.store = approval.NewMemoryStore()
		log.Warn("store.memory", "durable", false)
		return b, nil

	case StoreSQLite:
		st, err := approval.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		backend = st
		b.ping = st.Ping
		log.Info("store.sqlite", "path", cfg.SQLitePath)

	case StorePostgres:
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		st, err := approval.NewPostgresStore(pool, approval.WithSchema(cfg.DBSchema))
		if err != nil {
			pool.Close()
			return nil, err
		}
		migrateCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err = st.Migrate(migrateCtx)
		cancel()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		backend = st
		b.dbPool = pool
		b.ping = func(ctx context.Context) error { return PingDB(ctx, pool, 2*time.Second) }
		log.Info("store.postgres", "schema", cfg.DBSchema, "max_conns", cfg.DBMaxConns)

	case StoreRedis:
		client, err := approval.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		st, err := approval.NewRedisStore(client, approval.WithRetention(cfg.RedisTTL))
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		backend = st
		b.redis = client
		b.ping = func(ctx context.Context) error {
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return client.Ping(pctx).Err()
		}
		log.Info("store.redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.RedisTTL.String())

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	b.store = approval.NewResilient(backend, log, approval.WithDegradedHook(onDegraded))
	return b, nil
}
