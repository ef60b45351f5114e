package hubspot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/providers/devkit"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	provider, err := New(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:8000/integrations/oauth2callback?integration_type=hubspot",
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return provider
}

func TestProvider_Config(t *testing.T) {
	provider := newTestProvider(t)
	if err := devkit.ValidateProviderConformance(provider); err != nil {
		t.Fatalf("conformance: %v", err)
	}
	cfg := provider.Config()
	if !cfg.PKCE || cfg.ContentMode != core.TokenContentForm {
		t.Fatalf("expected pkce with form exchange, got %#v", cfg)
	}
	if cfg.AuthURL != AuthURL || cfg.TokenURL != TokenURL || cfg.Scope != DefaultScope {
		t.Fatalf("expected default endpoints, got %#v", cfg)
	}
}

func TestProvider_FetchRawItemsFollowsAfterCursor(t *testing.T) {
	provider := newTestProvider(t)
	transport := devkit.NewFakeTransportAdapter("rest",
		devkit.JSONResponse(`{"results":[{"id":"1"},{"id":"2"}],"paging":{"next":{"after":"c2"}}}`),
		devkit.JSONResponse(`{"results":[{"id":"3"}]}`),
	)

	raw, err := provider.FetchRawItems(context.Background(), transport, "at-1")
	if err != nil {
		t.Fatalf("fetch raw items: %v", err)
	}
	if len(raw) != 3 {
		t.Fatalf("expected three contacts, got %d", len(raw))
	}

	requests := transport.Requests()
	if len(requests) != 2 {
		t.Fatalf("expected two page requests, got %d", len(requests))
	}
	first, second := requests[0], requests[1]
	if first.URL != ContactsURL || first.Query["limit"] != "100" || first.Query["properties"] != "firstname,lastname,email" {
		t.Fatalf("unexpected first request: %#v", first)
	}
	if _, ok := first.Query["after"]; ok {
		t.Fatalf("first page must not carry a cursor")
	}
	if second.Query["after"] != "c2" {
		t.Fatalf("expected cursor on second request, got %#v", second.Query)
	}
	if first.Headers["Authorization"] != "Bearer at-1" {
		t.Fatalf("expected bearer token, got %#v", first.Headers)
	}
}

func TestProvider_FetchRawItemsRejectsRepeatedCursor(t *testing.T) {
	provider := newTestProvider(t)
	transport := devkit.NewFakeTransportAdapter("rest",
		devkit.JSONResponse(`{"results":[{"id":"1"}],"paging":{"next":{"after":"c1"}}}`),
	)
	_, err := provider.FetchRawItems(context.Background(), transport, "at")
	if !errors.Is(err, core.ErrUpstreamFetchFailed) {
		t.Fatalf("expected upstream failure on looping cursor, got %v", err)
	}
	if len(transport.Requests()) != 2 {
		t.Fatalf("expected the loop to stop on the first repeat, got %d calls", len(transport.Requests()))
	}
}

func TestProvider_FetchRawItemsSurfacesUpstreamStatus(t *testing.T) {
	provider := newTestProvider(t)
	transport := devkit.NewFakeTransportAdapter("rest",
		devkit.StatusResponse(http.StatusUnauthorized, `{"status":"error","message":"expired"}`),
	)
	_, err := provider.FetchRawItems(context.Background(), transport, "at")
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected upstream 401, got %v", err)
	}
}

func TestProvider_Normalize(t *testing.T) {
	provider := newTestProvider(t)
	item, err := provider.Normalize(core.RawItem{
		Kind: ItemTypeContact,
		Data: json.RawMessage(`{
			"id": "501",
			"createdAt": "2024-01-02T03:04:05Z",
			"updatedAt": "2024-02-01T00:00:00Z",
			"properties": {
				"firstname": "Ada",
				"lastname": null,
				"email": "ada@example.com",
				"lastmodifieddate": "2024-03-01T00:00:00Z"
			}
		}`),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := core.Item{
		ID:             "501",
		Name:           "Ada",
		Type:           ItemTypeContact,
		Email:          "ada@example.com",
		CreatedAt:      "2024-01-02T03:04:05Z",
		LastModifiedAt: "2024-03-01T00:00:00Z",
	}
	if item != want {
		t.Fatalf("unexpected item:\n got %#v\nwant %#v", item, want)
	}

	item, err = provider.Normalize(core.RawItem{Kind: ItemTypeContact, Data: json.RawMessage(`{"id":"7","updatedAt":"u","properties":{"createdate":"c"}}`)})
	if err != nil {
		t.Fatalf("normalize fallback: %v", err)
	}
	if item.Name != "" || item.CreatedAt != "c" || item.LastModifiedAt != "u" {
		t.Fatalf("unexpected fallback item: %#v", item)
	}
}

func TestNew_CustomProperties(t *testing.T) {
	provider, err := New(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost/cb",
		Properties:   []string{" FirstName", "email", "email"},
		PageSize:     10,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	transport := devkit.NewFakeTransportAdapter("rest", devkit.JSONResponse(`{"results":[]}`))
	if _, err := provider.FetchRawItems(context.Background(), transport, "at"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	query := transport.Requests()[0].Query
	if query["properties"] != "firstname,email" || query["limit"] != "10" {
		t.Fatalf("unexpected query: %#v", query)
	}
}
