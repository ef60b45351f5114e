package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-integrations/core"
	integrationmigrations "github.com/goliatone/go-integrations/migrations"
	"github.com/goliatone/go-integrations/providers/devkit"
	sqlstore "github.com/goliatone/go-integrations/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-integrations-tests"
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"integration_ephemeral_entries",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "integration_ephemeral_entries" {
		t.Fatalf("expected integration_ephemeral_entries table, got %q", tableName)
	}
}

func TestStore_Conformance(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewStoreFromPersistence(client)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := devkit.ValidateEphemeralStoreConformance(context.Background(), store, "sql"); err != nil {
		t.Fatalf("conformance: %v", err)
	}
}

func TestStore_ExpiredEntriesAreAbsent(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	store, err := sqlstore.NewStoreFromDB(client.DB(), sqlstore.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	stateKey := core.StoreKey(core.KeyPurposeState, "airtable", "o1", "u1")
	verifierKey := core.StoreKey(core.KeyPurposeVerifier, "airtable", "o1", "u1")
	if err := store.Put(ctx, stateKey, "state", time.Minute); err != nil {
		t.Fatalf("put state: %v", err)
	}
	if err := store.Put(ctx, verifierKey, "verifier", 10*time.Minute); err != nil {
		t.Fatalf("put verifier: %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, found, err := store.Get(ctx, stateKey); err != nil || found {
		t.Fatalf("expected expired state to be absent, found=%t err=%v", found, err)
	}
	if _, found, err := store.Consume(ctx, stateKey); err != nil || found {
		t.Fatalf("expected expired state to be unconsumable, found=%t err=%v", found, err)
	}
	value, found, err := store.Get(ctx, verifierKey)
	if err != nil || !found || value != "verifier" {
		t.Fatalf("expected live verifier, got %q found=%t err=%v", value, found, err)
	}

	clock.Advance(time.Hour)
	purged, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge expired: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected one purged row, got %d", purged)
	}
}

func TestStore_PutReplacesExistingKey(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewStoreFromPersistence(client)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key := core.StoreKey(core.KeyPurposeCredentials, "notion", "o1", "u1")
	for _, value := range []string{`{"access_token":"a"}`, `{"access_token":"b"}`} {
		if err := store.Put(ctx, key, value, time.Minute); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	var count int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM integration_ephemeral_entries WHERE entry_key = ?", key,
	).Scan(ctx, &count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row per key, got %d", count)
	}
	value, found, err := store.Consume(ctx, key)
	if err != nil || !found || value != `{"access_token":"b"}` {
		t.Fatalf("expected latest value, got %q found=%t err=%v", value, found, err)
	}
}

func TestStore_FlowRoundTripThroughEngine(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewStoreFromPersistence(client)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	engine, err := core.NewFlowEngine(core.ProviderConfig{
		ID:           "crm",
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost/cb",
		AuthURL:      "https://auth.example.com/authorize",
		TokenURL:     "https://auth.example.com/token",
		PKCE:         true,
		ContentMode:  core.TokenContentForm,
	}, store, devkit.NewFakeTransportAdapter("rest", devkit.JSONResponse(`{"access_token":"at"}`)), time.Minute)
	if err != nil {
		t.Fatalf("new flow engine: %v", err)
	}

	authURL, err := engine.Authorize(ctx, "u1", "o1")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	state := queryParam(t, authURL, "state")
	if _, err := engine.Callback(ctx, core.CallbackRequest{ProviderID: "crm", Code: "c", State: state}); err != nil {
		t.Fatalf("callback: %v", err)
	}
	credentials, err := engine.GetCredentials(ctx, "u1", "o1")
	if err != nil {
		t.Fatalf("get credentials: %v", err)
	}
	if credentials.AccessToken() != "at" {
		t.Fatalf("unexpected credentials: %#v", credentials)
	}
	if _, err := engine.GetCredentials(ctx, "u1", "o1"); err == nil {
		t.Fatalf("expected credentials to be single use")
	}
}

func queryParam(t *testing.T, rawURL string, name string) string {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return parsed.Query().Get(name)
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:integrations-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	if err := integrationmigrations.RegisterDialect(ctx, integrationmigrations.DialectSQLite, func(fsys fs.FS) {
		client.RegisterSQLMigrations(fsys)
	}); err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
