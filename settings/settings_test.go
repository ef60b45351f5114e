package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-integrations/core"
)

func TestParse_Defaults(t *testing.T) {
	s, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.ExpirySeconds != core.DefaultExpirySeconds {
		t.Fatalf("expected default expiry, got %d", s.ExpirySeconds)
	}
	if s.Driver() != StoreMemory || s.HTTPAddr != ":8000" {
		t.Fatalf("unexpected defaults: %#v", s)
	}
	if len(s.CORSOrigins) != 1 || s.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %#v", s.CORSOrigins)
	}
	if s.Airtable.RedirectURI != "http://localhost:8000/integrations/oauth2callback?integration_type=airtable" {
		t.Fatalf("unexpected airtable redirect: %q", s.Airtable.RedirectURI)
	}
}

func TestParse_ProviderPrefixesAndProviders(t *testing.T) {
	t.Setenv("HUBSPOT_CLIENT_ID", "hs-client")
	t.Setenv("HUBSPOT_CLIENT_SECRET", "hs-secret")
	t.Setenv("NOTION_CLIENT_ID", "n-client")
	t.Setenv("NOTION_CLIENT_SECRET", "n-secret")
	t.Setenv("NOTION_REDIRECT_URI", "https://app.example.com/cb?integration_type=notion")
	t.Setenv("INTEGRATIONS_CORS_ORIGINS", "https://a.example.com,https://b.example.com")

	s, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.HubSpot.ClientID != "hs-client" || s.Airtable.Enabled() {
		t.Fatalf("unexpected provider settings: %#v", s)
	}
	if len(s.CORSOrigins) != 2 {
		t.Fatalf("expected two cors origins, got %#v", s.CORSOrigins)
	}

	providers, err := s.Providers()
	if err != nil {
		t.Fatalf("providers: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("expected hubspot and notion, got %d providers", len(providers))
	}
	if providers[0].ID() != "hubspot" || providers[1].ID() != "notion" {
		t.Fatalf("unexpected provider ids %q %q", providers[0].ID(), providers[1].ID())
	}
	if got := providers[1].Config().RedirectURI; got != "https://app.example.com/cb?integration_type=notion" {
		t.Fatalf("unexpected notion redirect %q", got)
	}
}

func TestParse_RejectsInvalidStore(t *testing.T) {
	t.Setenv("INTEGRATIONS_STORE", "cassandra")
	if _, err := Parse(); err == nil {
		t.Fatalf("expected unsupported driver to fail")
	}

	t.Setenv("INTEGRATIONS_STORE", "postgres")
	if _, err := Parse(); err == nil {
		t.Fatalf("expected postgres without dsn to fail")
	}

	t.Setenv("INTEGRATIONS_DATABASE_DSN", "postgres://localhost/integrations")
	if _, err := Parse(); err != nil {
		t.Fatalf("expected postgres with dsn to parse: %v", err)
	}
}

func TestLoad_ReadsDotenvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("REDIS_EXPIRY=120\nINTEGRATIONS_SERVICE_NAME=crm-sync\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("REDIS_EXPIRY", "")
	os.Unsetenv("REDIS_EXPIRY")
	t.Setenv("INTEGRATIONS_SERVICE_NAME", "")
	os.Unsetenv("INTEGRATIONS_SERVICE_NAME")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.ExpirySeconds != 120 || s.ServiceName != "crm-sync" {
		t.Fatalf("unexpected settings: %#v", s)
	}

	raw, err := s.RawLoader().LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if raw["expiry_seconds"] != 120 || raw["service_name"] != "crm-sync" {
		t.Fatalf("unexpected raw config: %#v", raw)
	}
	if cfg := s.ServiceConfig(); cfg.TTL().Seconds() != 120 {
		t.Fatalf("unexpected ttl %v", cfg.TTL())
	}
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected missing explicit file to fail")
	}
}
