package devkit

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/goliatone/go-integrations/core"
)

func TestFakeTransportAdapter_ScriptsAndCapturesRequests(t *testing.T) {
	adapter := NewFakeTransportAdapter("rest",
		StatusResponse(http.StatusTooManyRequests, `{}`),
		JSONResponse(`{"ok":true}`),
	)

	first, err := adapter.Do(context.Background(), core.TransportRequest{
		Method: "GET",
		URL:    "https://api.example.test/items",
	})
	if err != nil {
		t.Fatalf("first fake call: %v", err)
	}
	if first.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected first scripted status 429, got %d", first.StatusCode)
	}

	second, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  "GET",
		URL:     "https://api.example.test/items",
		Headers: map[string]string{"Authorization": "Bearer t"},
	})
	if err != nil {
		t.Fatalf("second fake call: %v", err)
	}
	if second.StatusCode != http.StatusOK || string(second.Body) != `{"ok":true}` {
		t.Fatalf("unexpected second response: %#v", second)
	}

	requests := adapter.Requests()
	if len(requests) != 2 {
		t.Fatalf("expected two captured requests, got %d", len(requests))
	}
	requests[1].Headers["Authorization"] = "mutated"
	if adapter.Requests()[1].Headers["Authorization"] != "Bearer t" {
		t.Fatalf("expected captured requests to be copies")
	}
}

func TestFakeTransportAdapter_RepeatsLastScript(t *testing.T) {
	boom := errors.New("boom")
	adapter := NewFakeTransportAdapter("REST", ErrorResponse(boom))
	if adapter.Kind() != "rest" {
		t.Fatalf("expected normalized kind, got %q", adapter.Kind())
	}
	for i := 0; i < 2; i++ {
		if _, err := adapter.Do(context.Background(), core.TransportRequest{}); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected scripted error, got %v", i, err)
		}
	}
}

func TestValidateTransportAdapterConformance(t *testing.T) {
	adapter := NewFakeTransportAdapter("rest")
	if err := ValidateTransportAdapterConformance(context.Background(), adapter, core.TransportRequest{URL: "https://x.test"}); err != nil {
		t.Fatalf("expected fake adapter to conform: %v", err)
	}
	if err := ValidateTransportAdapterConformance(context.Background(), NewFakeTransportAdapter(""), core.TransportRequest{}); err == nil {
		t.Fatalf("expected empty kind to be rejected")
	}
}

func TestValidateEphemeralStoreConformance_MemoryStore(t *testing.T) {
	store := core.NewMemoryEphemeralStore(0)
	if err := ValidateEphemeralStoreConformance(context.Background(), store, "devkit"); err != nil {
		t.Fatalf("expected memory store to conform: %v", err)
	}
}

func TestMustJSON(t *testing.T) {
	if got := MustJSON(map[string]any{"offset": "p2"}); got != `{"offset":"p2"}` {
		t.Fatalf("unexpected json: %s", got)
	}
}

func TestFakeTransportAdapter_RoutesTokenAndPagedListing(t *testing.T) {
	adapter := NewFakeTransportAdapter("rest", StatusResponse(http.StatusTeapot, `{}`)).
		Route("/oauth/token", TokenResponse("access-1")).
		Route("/items", Pages(`{"page":1,"next":"c2"}`, `{"page":2}`)...)

	ctx := context.Background()
	token, err := adapter.Do(ctx, core.TransportRequest{Method: "POST", URL: "https://api.example.test/oauth/token"})
	if err != nil {
		t.Fatalf("token call: %v", err)
	}
	if string(token.Body) != `{"access_token":"access-1","token_type":"bearer"}` {
		t.Fatalf("unexpected token body %s", token.Body)
	}

	var bodies []string
	for i := 0; i < 3; i++ {
		res, err := adapter.Do(ctx, core.TransportRequest{Method: "GET", URL: "https://api.example.test/items?cursor=x"})
		if err != nil {
			t.Fatalf("page call %d: %v", i, err)
		}
		bodies = append(bodies, string(res.Body))
	}
	if bodies[0] != `{"page":1,"next":"c2"}` || bodies[1] != `{"page":2}` || bodies[2] != `{"page":2}` {
		t.Fatalf("expected pages in order then the last repeated, got %v", bodies)
	}

	other, err := adapter.Do(ctx, core.TransportRequest{URL: "https://api.example.test/other"})
	if err != nil {
		t.Fatalf("unrouted call: %v", err)
	}
	if other.StatusCode != http.StatusTeapot {
		t.Fatalf("expected unrouted call to use the sequential script, got %d", other.StatusCode)
	}

	if got := len(adapter.RequestsTo("/items")); got != 3 {
		t.Fatalf("expected three listing requests, got %d", got)
	}
	if got := len(adapter.RequestsTo("/oauth/token")); got != 1 {
		t.Fatalf("expected one token request, got %d", got)
	}
	if got := len(adapter.Requests()); got != 5 {
		t.Fatalf("expected five requests in total, got %d", got)
	}
}

func TestFakeTransportAdapter_FirstMatchingRouteWins(t *testing.T) {
	adapter := NewFakeTransportAdapter("rest").
		Route("/tables", JSONResponse(`{"tables":[]}`)).
		Route("/meta/bases", JSONResponse(`{"bases":[]}`))

	res, err := adapter.Do(context.Background(), core.TransportRequest{URL: "https://api.example.test/meta/bases/app1/tables"})
	if err != nil {
		t.Fatalf("route call: %v", err)
	}
	if string(res.Body) != `{"tables":[]}` {
		t.Fatalf("expected the earlier route to answer, got %s", res.Body)
	}
}

func TestFakeTransportAdapter_UnscriptedCallsSucceedEmpty(t *testing.T) {
	adapter := NewFakeTransportAdapter("rest")
	res, err := adapter.Do(context.Background(), core.TransportRequest{URL: "https://x.test"})
	if err != nil {
		t.Fatalf("unscripted call: %v", err)
	}
	if res.StatusCode != http.StatusOK || len(res.Body) != 0 {
		t.Fatalf("expected empty 200, got %#v", res)
	}
}
