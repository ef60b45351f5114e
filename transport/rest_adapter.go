package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-integrations/core"
)

const KindREST = "rest"

const defaultRESTClientTimeout = 30 * time.Second
const defaultRESTResponseBodyLimit int64 = 10 << 20 // 10 MiB
const defaultUserAgent = "go-integrations/1"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTAdapter executes provider calls over net/http. Non-2xx responses are
// returned as responses, not errors; callers decide how to surface them.
type RESTAdapter struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewRESTAdapter(client HTTPDoer) *RESTAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultRESTClientTimeout}
	}
	return &RESTAdapter{
		Client:               client,
		DefaultHeaders:       map[string]string{"User-Agent": defaultUserAgent},
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
	}
}

func (*RESTAdapter) Kind() string {
	return KindREST
}

func (a *RESTAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.Client == nil {
		return core.TransportResponse{}, misconfigured.wrap(nil, "transport: rest adapter requires an http client", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := requestURL(req)
	if err != nil {
		return core.TransportResponse{}, err
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	meta := requestMetadata(req, method, target)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return core.TransportResponse{}, badRequest.wrap(err, "transport: create http request", meta)
	}
	applyHeaders(httpReq.Header, a.DefaultHeaders)
	applyHeaders(httpReq.Header, req.Headers)

	startedAt := time.Now().UTC()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return core.TransportResponse{}, unreachable.wrap(err, "transport: execute http request", meta)
	}
	defer httpRes.Body.Close()

	limit := a.MaxResponseBodyBytes
	if req.MaxResponseBodyBytes > 0 {
		limit = req.MaxResponseBodyBytes
	}
	if limit <= 0 {
		limit = defaultRESTResponseBodyLimit
	}
	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, limit+1))
	meta["status_code"] = httpRes.StatusCode
	if err != nil {
		return core.TransportResponse{}, unreachable.wrap(err, "transport: read response body", meta)
	}
	if int64(len(payload)) > limit {
		meta["response_limit_b"] = limit
		return core.TransportResponse{}, unreachable.wrap(nil, fmt.Sprintf("transport: response body exceeds limit of %d bytes", limit), meta)
	}

	return core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       payload,
		Metadata: map[string]any{
			"duration_ms": time.Since(startedAt).Milliseconds(),
			"kind":        KindREST,
		},
	}, nil
}

func requestURL(req core.TransportRequest) (string, error) {
	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		return "", badRequest.wrap(nil, "transport: request url is required", map[string]any{"adapter": KindREST})
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		if err == nil {
			err = fmt.Errorf("transport: absolute url required")
		}
		return "", badRequest.wrap(err, "transport: invalid request url", map[string]any{"adapter": KindREST, "url": raw})
	}
	if len(req.Query) > 0 {
		query := parsed.Query()
		for key, value := range req.Query {
			if key = strings.TrimSpace(key); key != "" {
				query.Set(key, value)
			}
		}
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

// requestMetadata never includes headers or bodies; both may carry secrets.
func requestMetadata(req core.TransportRequest, method string, target string) map[string]any {
	meta := map[string]any{"adapter": KindREST, "method": method, "url": stripQuery(target)}
	if providerID, ok := req.Metadata["provider_id"]; ok {
		meta["provider_id"] = providerID
	}
	return meta
}

func stripQuery(target string) string {
	if index := strings.IndexByte(target, '?'); index >= 0 {
		return target[:index]
	}
	return target
}

func applyHeaders(dst http.Header, headers map[string]string) {
	for key, value := range headers {
		if key = strings.TrimSpace(key); key != "" {
			dst.Set(key, value)
		}
	}
}

func flattenHeaders(headers http.Header) map[string]string {
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.TransportAdapter = (*RESTAdapter)(nil)
