package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-integrations/core"
)

const defaultFetchTimeout = 30 * time.Second
const defaultFetchResponseBodyBytes int64 = 10 << 20 // 10 MiB

// FetchJSON performs an authenticated request against a provider API and
// returns the raw body of a 2xx response. Transport failures and non-2xx
// responses become UpstreamFetchFailed errors carrying the upstream status.
func FetchJSON(
	ctx context.Context,
	client core.TransportAdapter,
	providerID string,
	accessToken string,
	req core.TransportRequest,
) ([]byte, error) {
	if client == nil {
		return nil, core.UpstreamFetchFailedError(providerID, 0, nil,
			fmt.Errorf("providers: transport adapter is required"))
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, core.NoCredentialsError(providerID)
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Timeout <= 0 {
		req.Timeout = defaultFetchTimeout
	}
	if req.MaxResponseBodyBytes <= 0 {
		req.MaxResponseBodyBytes = defaultFetchResponseBodyBytes
	}
	headers := make(map[string]string, len(req.Headers)+3)
	for key, value := range req.Headers {
		headers[key] = value
	}
	headers["Authorization"] = "Bearer " + strings.TrimSpace(accessToken)
	headers["Accept"] = "application/json"
	if len(req.Body) > 0 {
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
	}
	req.Headers = headers
	metadata := make(map[string]any, len(req.Metadata)+1)
	for key, value := range req.Metadata {
		metadata[key] = value
	}
	metadata["provider_id"] = providerID
	req.Metadata = metadata

	res, err := client.Do(ctx, req)
	if err != nil {
		return nil, core.UpstreamFetchFailedError(providerID, 0, nil, err)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, core.UpstreamFetchFailedError(providerID, res.StatusCode, res.Body,
			fmt.Errorf("providers: %s %s returned status %d", req.Method, req.URL, res.StatusCode))
	}
	return res.Body, nil
}

// DecodeObject decodes a JSON object body, failing with UpstreamFetchFailed
// when the payload is not an object.
func DecodeObject(providerID string, body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return core.UpstreamFetchFailedError(providerID, 0, body,
			fmt.Errorf("providers: decode response: %w", err))
	}
	return nil
}

// StringValue renders a decoded JSON scalar as a string; absent and null
// values are empty.
func StringValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		if typed {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(typed)
	}
}
