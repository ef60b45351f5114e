// Package sqlstore implements the ephemeral store on a SQL database through
// bun, for deployments that already run Postgres or SQLite and do not want a
// Redis dependency.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-integrations/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store keeps one row per key in integration_ephemeral_entries. Expired
// rows are filtered on read and removed by PurgeExpired.
type Store struct {
	db         *bun.DB
	repo       repository.Repository[*ephemeralEntryRecord]
	defaultTTL time.Duration
	now        func() time.Time
}

type Option func(*Store)

func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStoreFromPersistence(client *persistence.Client, opts ...Option) (*Store, error) {
	return NewStore(client, opts...)
}

func NewStoreFromDB(db *bun.DB, opts ...Option) (*Store, error) {
	return NewStore(db, opts...)
}

// NewStore accepts a *bun.DB or anything exposing DB() *bun.DB.
func NewStore(persistenceClient any, opts ...Option) (*Store, error) {
	db, err := resolveBunDB(persistenceClient)
	if err != nil {
		return nil, err
	}
	repo := repository.NewRepository[*ephemeralEntryRecord](db, ephemeralEntryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid ephemeral entry repository wiring: %w", err)
		}
	}
	store := &Store{
		db:         db,
		repo:       repo,
		defaultTTL: core.DefaultExpirySeconds * time.Second,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *Store) Put(ctx context.Context, key string, value string, ttl time.Duration) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: ephemeral store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: key is required")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now().UTC()
	record := &ephemeralEntryRecord{
		ID:         uuid.NewString(),
		EntryKey:   key,
		EntryValue: value,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*ephemeralEntryRecord)(nil)).
			Where("entry_key = ?", key).
			Exec(ctx); err != nil {
			return fmt.Errorf("sqlstore: replace entry: %w", err)
		}
		if _, err := s.repo.CreateTx(ctx, tx, record); err != nil {
			return fmt.Errorf("sqlstore: insert entry: %w", err)
		}
		return nil
	})
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.repo == nil {
		return "", false, fmt.Errorf("sqlstore: ephemeral store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("entry_key", "=", strings.TrimSpace(key)),
		repository.SelectBy("expires_at", ">", s.now().UTC()),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return "", false, fmt.Errorf("sqlstore: get entry: %w", err)
	}
	if len(records) == 0 {
		return "", false, nil
	}
	return records[0].EntryValue, true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: ephemeral store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*ephemeralEntryRecord)(nil)).
		Where("entry_key = ?", strings.TrimSpace(key)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: delete entry: %w", err)
	}
	return nil
}

// Consume reads and removes a live entry in one transaction. The delete is
// keyed by row id and must affect exactly one row, so when two consumers race
// only the one whose delete lands sees the value.
func (s *Store) Consume(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, fmt.Errorf("sqlstore: ephemeral store is not configured")
	}
	key = strings.TrimSpace(key)
	now := s.now().UTC()

	var (
		value string
		found bool
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &ephemeralEntryRecord{}
		err := tx.NewSelect().
			Model(record).
			Where("entry_key = ?", key).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("sqlstore: read entry: %w", err)
		}

		res, err := tx.NewDelete().
			Model((*ephemeralEntryRecord)(nil)).
			Where("id = ?", record.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("sqlstore: consume entry: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlstore: consume entry: %w", err)
		}
		if affected != 1 || !record.ExpiresAt.After(now) {
			return nil
		}
		value, found = record.EntryValue, true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

// PurgeExpired deletes every expired row and reports how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: ephemeral store is not configured")
	}
	res, err := s.db.NewDelete().
		Model((*ephemeralEntryRecord)(nil)).
		Where("expires_at <= ?", s.now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: purge expired entries: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) DB() *bun.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		if typed == nil {
			return nil, fmt.Errorf("sqlstore: persistence client is required")
		}
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
