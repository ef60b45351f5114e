package airtable

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/providers/devkit"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	provider, err := New(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:8000/integrations/oauth2callback?integration_type=airtable",
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return provider
}

func normalizeAll(t *testing.T, provider *Provider, raw []core.RawItem) []core.Item {
	t.Helper()
	items := make([]core.Item, 0, len(raw))
	for _, entry := range raw {
		item, err := provider.Normalize(entry)
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		items = append(items, item)
	}
	return items
}

func TestProvider_Config(t *testing.T) {
	provider := newTestProvider(t)
	if err := devkit.ValidateProviderConformance(provider); err != nil {
		t.Fatalf("conformance: %v", err)
	}
	cfg := provider.Config()
	if !cfg.PKCE || cfg.ContentMode != core.TokenContentForm || cfg.AuthParams["owner"] != "user" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
}

func TestProvider_BaseAndTableRoundTrip(t *testing.T) {
	provider := newTestProvider(t)
	transport := devkit.NewFakeTransportAdapter("rest",
		devkit.JSONResponse(`{"bases":[{"id":"app1","name":"CRM","permissionLevel":"create"}]}`),
		devkit.JSONResponse(`{"tables":[{"id":"tbl1","name":"Leads"}]}`),
	)

	raw, err := provider.FetchRawItems(context.Background(), transport, "at-1")
	if err != nil {
		t.Fatalf("fetch raw items: %v", err)
	}
	items := normalizeAll(t, provider, raw)
	want := []core.Item{
		{ID: "app1_Base", Name: "CRM", Type: ItemTypeBase},
		{ID: "tbl1_Table", Name: "Leads", Type: ItemTypeTable, ParentID: "app1_Base", ParentName: "CRM"},
	}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %#v", len(want), items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("item %d:\n got %#v\nwant %#v", i, items[i], want[i])
		}
	}

	requests := transport.Requests()
	if requests[0].URL != APIBaseURL+"/meta/bases" || len(requests[0].Query) != 0 {
		t.Fatalf("unexpected bases request: %#v", requests[0])
	}
	if requests[1].URL != APIBaseURL+"/meta/bases/app1/tables" {
		t.Fatalf("unexpected tables request: %s", requests[1].URL)
	}
}

func TestProvider_FetchBasesFollowsOffset(t *testing.T) {
	provider := newTestProvider(t)
	transport := devkit.NewFakeTransportAdapter("rest").Route("/meta/bases", devkit.Pages(
		`{"bases":[{"id":"a"}],"offset":"p2"}`,
		`{"bases":[{"id":"b"}],"offset":"p3"}`,
		`{"bases":[{"id":"c"}]}`,
	)...)

	bases, err := provider.FetchBases(context.Background(), transport, "at")
	if err != nil {
		t.Fatalf("fetch bases: %v", err)
	}
	if len(bases) != 3 {
		t.Fatalf("expected bases from three pages, got %d", len(bases))
	}
	requests := transport.RequestsTo("/meta/bases")
	if len(requests) != 3 {
		t.Fatalf("expected exactly three calls, got %d", len(requests))
	}
	if requests[1].Query["offset"] != "p2" || requests[2].Query["offset"] != "p3" {
		t.Fatalf("unexpected offsets: %#v %#v", requests[1].Query, requests[2].Query)
	}
}

func TestProvider_TablesFailureFailsWholeListing(t *testing.T) {
	provider := newTestProvider(t)
	transport := devkit.NewFakeTransportAdapter("rest",
		devkit.JSONResponse(`{"bases":[{"id":"a","name":"A"},{"id":"b","name":"B"}]}`),
		devkit.JSONResponse(`{"tables":[{"id":"t1","name":"T1"}]}`),
		devkit.StatusResponse(http.StatusForbidden, `{"error":"NOT_AUTHORIZED"}`),
	)

	raw, err := provider.FetchRawItems(context.Background(), transport, "at")
	if !errors.Is(err, core.ErrUpstreamFetchFailed) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
	if raw != nil {
		t.Fatalf("expected no partial results, got %d", len(raw))
	}
}

func TestProvider_NormalizeRejectsUnknownKind(t *testing.T) {
	provider := newTestProvider(t)
	if _, err := provider.Normalize(core.RawItem{Kind: "View", Data: []byte(`{"id":"v"}`)}); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}
