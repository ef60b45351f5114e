package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

type scriptedTransport struct {
	mu        sync.Mutex
	responses []TransportResponse
	errs      []error
	requests  []TransportRequest
}

func newScriptedTransport(responses ...TransportResponse) *scriptedTransport {
	return &scriptedTransport{responses: responses}
}

func (*scriptedTransport) Kind() string { return "test" }

func (t *scriptedTransport) Do(_ context.Context, req TransportRequest) (TransportResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	index := len(t.requests) - 1
	var err error
	if index < len(t.errs) {
		err = t.errs[index]
	}
	if index < len(t.responses) {
		return t.responses[index], err
	}
	if len(t.responses) > 0 {
		return t.responses[len(t.responses)-1], err
	}
	return TransportResponse{StatusCode: 200, Body: []byte(`{}`)}, err
}

func (t *scriptedTransport) Requests() []TransportRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TransportRequest(nil), t.requests...)
}

type stubProvider struct {
	config    ProviderConfig
	raw       []RawItem
	fetchErr  error
	lastToken string
}

func (p *stubProvider) ID() string { return p.config.ID }

func (p *stubProvider) Config() ProviderConfig { return p.config }

func (p *stubProvider) FetchRawItems(_ context.Context, _ TransportAdapter, accessToken string) ([]RawItem, error) {
	p.lastToken = accessToken
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.raw, nil
}

func (p *stubProvider) Normalize(raw RawItem) (Item, error) {
	var payload struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw.Data, &payload); err != nil {
		return Item{}, fmt.Errorf("stub: decode: %w", err)
	}
	return Item{ID: payload.ID, Name: payload.Name, Type: raw.Kind}, nil
}

func testProviderConfig(id string, pkce bool, mode TokenContentMode) ProviderConfig {
	return ProviderConfig{
		ID:           id,
		ClientID:     "client-" + id,
		ClientSecret: "secret-" + id,
		RedirectURI:  "http://localhost:8000/integrations/oauth2callback?integration_type=" + id,
		AuthURL:      "https://auth.example.com/oauth/authorize",
		TokenURL:     "https://auth.example.com/oauth/token",
		Scope:        "read write",
		PKCE:         pkce,
		ContentMode:  mode,
		AuthParams:   map[string]string{"owner": "user"},
	}
}
