package devkit

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-integrations/core"
)

// TransportScript is the canned outcome of one Do call.
type TransportScript struct {
	Response core.TransportResponse
	Err      error
}

// scriptQueue hands out scripts in order and keeps repeating the last one.
type scriptQueue struct {
	scripts []TransportScript
	served  int
}

func (q *scriptQueue) next() (TransportScript, bool) {
	if len(q.scripts) == 0 {
		return TransportScript{}, false
	}
	index := min(q.served, len(q.scripts)-1)
	q.served++
	return q.scripts[index], true
}

type route struct {
	fragment string
	queue    *scriptQueue
}

// FakeTransportAdapter stands in for the provider APIs in tests. Calls whose
// URL contains a routed fragment are answered from that route, checked in
// the order routes were added. Other calls take the next unrouted script;
// with none at all the answer is an empty 200.
type FakeTransportAdapter struct {
	mu       sync.Mutex
	kind     string
	routes   []route
	fallback scriptQueue
	requests []core.TransportRequest
}

func NewFakeTransportAdapter(kind string, scripts ...TransportScript) *FakeTransportAdapter {
	return &FakeTransportAdapter{
		kind:     strings.TrimSpace(strings.ToLower(kind)),
		fallback: scriptQueue{scripts: append([]TransportScript(nil), scripts...)},
	}
}

// Route answers calls to URLs containing fragment, e.g. a token endpoint or
// a listing that pages through Pages(...).
func (a *FakeTransportAdapter) Route(fragment string, scripts ...TransportScript) *FakeTransportAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes = append(a.routes, route{
		fragment: fragment,
		queue:    &scriptQueue{scripts: append([]TransportScript(nil), scripts...)},
	})
	return a
}

func (a *FakeTransportAdapter) Kind() string {
	if a == nil {
		return ""
	}
	return a.kind
}

func (a *FakeTransportAdapter) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil {
		return core.TransportResponse{}, fmt.Errorf("devkit: fake transport adapter is nil")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests = append(a.requests, copyRequest(req))
	script, ok := a.match(req.URL)
	if !ok {
		return core.TransportResponse{StatusCode: http.StatusOK, Metadata: map[string]any{"kind": a.kind}}, nil
	}
	return copyResponse(script.Response), script.Err
}

func (a *FakeTransportAdapter) match(target string) (TransportScript, bool) {
	for _, r := range a.routes {
		if strings.Contains(target, r.fragment) {
			return r.queue.next()
		}
	}
	return a.fallback.next()
}

// Requests returns copies of every request seen, in call order.
func (a *FakeTransportAdapter) Requests() []core.TransportRequest {
	return a.RequestsTo("")
}

// RequestsTo returns the requests whose URL contains fragment.
func (a *FakeTransportAdapter) RequestsTo(fragment string) []core.TransportRequest {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []core.TransportRequest
	for _, req := range a.requests {
		if strings.Contains(req.URL, fragment) {
			out = append(out, copyRequest(req))
		}
	}
	return out
}

func copyRequest(req core.TransportRequest) core.TransportRequest {
	req.Headers = maps.Clone(req.Headers)
	req.Query = maps.Clone(req.Query)
	req.Metadata = maps.Clone(req.Metadata)
	req.Body = bytes.Clone(req.Body)
	return req
}

func copyResponse(res core.TransportResponse) core.TransportResponse {
	res.Headers = maps.Clone(res.Headers)
	res.Metadata = maps.Clone(res.Metadata)
	res.Body = bytes.Clone(res.Body)
	return res
}

var _ core.TransportAdapter = (*FakeTransportAdapter)(nil)
