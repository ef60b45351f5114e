// Package redis implements the ephemeral store on Redis so that several
// service replicas can share OAuth state, verifiers and credentials.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-integrations/core"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPingTimeout = 5 * time.Second

// Config describes a single Redis endpoint. Prefix namespaces every key.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store keeps entries with native Redis expiry. Consume uses GETDEL so a
// value is handed out at most once even across replicas.
type Store struct {
	client     goredis.UniversalClient
	prefix     string
	defaultTTL time.Duration
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = strings.TrimSpace(prefix)
	}
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

func NewStore(client goredis.UniversalClient, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis store: client is required")
	}
	store := &Store{client: client, defaultTTL: core.DefaultExpirySeconds * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Open dials Redis and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redis store: address is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis store: ping failed: %w", err)
	}
	opts = append([]Option{WithPrefix(cfg.Prefix)}, opts...)
	return NewStore(client, opts...)
}

func (s *Store) Put(ctx context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis store: set: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	return readResult(value, err, "get")
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis store: del: %w", err)
	}
	return nil
}

func (s *Store) Consume(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.GetDel(ctx, s.key(key)).Result()
	return readResult(value, err, "getdel")
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// readResult folds redis.Nil into absent; an expired key and one that never
// existed look the same.
func readResult(value string, err error, op string) (string, bool, error) {
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis store: %s: %w", op, err)
	}
	return value, true, nil
}

var (
	_ core.EphemeralStore    = (*Store)(nil)
	_ core.EphemeralConsumer = (*Store)(nil)
)
