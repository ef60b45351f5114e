package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-integrations/core"
)

func TestRESTAdapter_SendsRequestAndReturnsNonSuccessAsResponse(t *testing.T) {
	var gotMethod, gotQuery, gotAuth, gotAgent, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"expired"}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	res, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  http.MethodPost,
		URL:     server.URL + "/v1/search?fixed=1",
		Query:   map[string]string{"after": "abc"},
		Headers: map[string]string{"Authorization": "Bearer t"},
		Body:    []byte(`{"q":1}`),
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusUnauthorized || string(res.Body) != `{"message":"expired"}` {
		t.Fatalf("unexpected response: %d %s", res.StatusCode, res.Body)
	}
	if res.Headers["Content-Type"] != "application/json" {
		t.Fatalf("expected flattened headers, got %#v", res.Headers)
	}
	if gotMethod != http.MethodPost || gotQuery != "after=abc&fixed=1" {
		t.Fatalf("unexpected request line: %s %s", gotMethod, gotQuery)
	}
	if gotAuth != "Bearer t" || gotAgent != defaultUserAgent || gotBody != `{"q":1}` {
		t.Fatalf("unexpected request: auth=%q agent=%q body=%q", gotAuth, gotAgent, gotBody)
	}
}

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal || rich.Code != http.StatusBadGateway {
		t.Fatalf("unexpected envelope: %q/%d", rich.Category, rich.Code)
	}
	if rich.TextCode != core.ServiceErrorExternalFailure {
		t.Fatalf("unexpected text code %q", rich.TextCode)
	}
}

func TestRESTAdapter_InvalidURL(t *testing.T) {
	adapter := NewRESTAdapter(nil)
	for _, target := range []string{"", "/relative", "::"} {
		_, err := adapter.Do(context.Background(), core.TransportRequest{URL: target})
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) || rich.Code != http.StatusBadRequest {
			t.Fatalf("expected bad request for %q, got %v", target, err)
		}
	}
}

func TestRESTAdapter_TimeoutIsExternalFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	adapter := NewRESTAdapter(server.Client())
	_, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL, Timeout: 20 * time.Millisecond})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded in chain, got %v", err)
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Metadata["url"] != server.URL {
		t.Fatalf("expected url metadata, got %v", err)
	}
}

func TestRESTAdapter_MissingClientIsInternalError(t *testing.T) {
	_, err := (&RESTAdapter{}).Do(context.Background(), core.TransportRequest{URL: "https://api.example.com"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %v", err)
	}
	if rich.Code != http.StatusInternalServerError || rich.TextCode != core.ServiceErrorInternal {
		t.Fatalf("unexpected envelope: %d/%q", rich.Code, rich.TextCode)
	}
}

func TestRESTAdapter_InvalidURLCarriesBadInputCode(t *testing.T) {
	_, err := NewRESTAdapter(nil).Do(context.Background(), core.TransportRequest{URL: "/relative"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %v", err)
	}
	if rich.TextCode != core.ServiceErrorBadInput || rich.Metadata["url"] != "/relative" {
		t.Fatalf("unexpected envelope: %q %#v", rich.TextCode, rich.Metadata)
	}
}
