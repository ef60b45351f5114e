package query

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-integrations/core"
)

type stubItemLister struct {
	listFn func(context.Context, core.ListItemsRequest) ([]core.Item, error)
}

func (s stubItemLister) ListItems(ctx context.Context, req core.ListItemsRequest) ([]core.Item, error) {
	if s.listFn == nil {
		return nil, errors.New("list items not stubbed")
	}
	return s.listFn(ctx, req)
}

type stubProviderCatalog []string

func (s stubProviderCatalog) Providers() []string { return []string(s) }

func TestListItemsQuery_QueryDelegates(t *testing.T) {
	expected := []core.Item{
		{ID: "app1_Base", Name: "CRM", Type: "Base"},
		{ID: "tbl1_Table", Name: "Leads", Type: "Table", ParentID: "app1_Base", ParentName: "CRM"},
	}
	called := false
	lister := stubItemLister{
		listFn: func(_ context.Context, req core.ListItemsRequest) ([]core.Item, error) {
			called = true
			if req.ProviderID != "airtable" || req.Credentials.AccessToken() != "at" {
				t.Fatalf("unexpected list request: %#v", req)
			}
			return expected, nil
		},
	}

	result, err := NewListItemsQuery(lister).Query(context.Background(), ListItemsMessage{Request: core.ListItemsRequest{
		ProviderID:  "airtable",
		Credentials: core.Credentials{"access_token": "at"},
	}})
	if err != nil {
		t.Fatalf("query items: %v", err)
	}
	if !called {
		t.Fatalf("expected item lister invocation")
	}
	if len(result) != 2 || result[1] != expected[1] {
		t.Fatalf("unexpected items: %#v", result)
	}
}

func TestListItemsQuery_RejectsMissingAccessToken(t *testing.T) {
	lister := stubItemLister{
		listFn: func(context.Context, core.ListItemsRequest) ([]core.Item, error) {
			t.Fatalf("lister must not be called without a token")
			return nil, nil
		},
	}
	_, err := NewListItemsQuery(lister).Query(context.Background(), ListItemsMessage{Request: core.ListItemsRequest{
		ProviderID:  "notion",
		Credentials: core.Credentials{"refresh_token": "rt"},
	}})
	if err == nil {
		t.Fatalf("expected missing access token to fail")
	}
}

func TestListItemsQuery_PropagatesUpstreamErrors(t *testing.T) {
	lister := stubItemLister{
		listFn: func(context.Context, core.ListItemsRequest) ([]core.Item, error) {
			return nil, core.UpstreamFetchFailedError("hubspot", 401, []byte(`{"message":"expired"}`), nil)
		},
	}
	_, err := NewListItemsQuery(lister).Query(context.Background(), ListItemsMessage{Request: core.ListItemsRequest{
		ProviderID:  "hubspot",
		Credentials: core.Credentials{"access_token": "at"},
	}})
	if !errors.Is(err, core.ErrUpstreamFetchFailed) {
		t.Fatalf("expected upstream fetch failure, got %v", err)
	}
}

func TestListProvidersQuery_ReturnsCatalog(t *testing.T) {
	result, err := NewListProvidersQuery(stubProviderCatalog{"airtable", "hubspot", "notion"}).
		Query(context.Background(), ListProvidersMessage{})
	if err != nil {
		t.Fatalf("query providers: %v", err)
	}
	if len(result) != 3 || result[0] != "airtable" {
		t.Fatalf("unexpected providers: %#v", result)
	}
}
