package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	tokenExchangeTimeout       = 20 * time.Second
	tokenResponseBodyLimit     = int64(1 << 20)
	grantTypeAuthorizationCode = "authorization_code"
)

// exchangeCode trades an authorization code for the raw token response.
func exchangeCode(
	ctx context.Context,
	client TransportAdapter,
	cfg ProviderConfig,
	code string,
	verifier string,
) ([]byte, error) {
	if client == nil {
		return nil, fmt.Errorf("core: transport adapter is required for token exchange")
	}
	req, err := buildTokenRequest(cfg, code, verifier)
	if err != nil {
		return nil, err
	}

	res, err := client.Do(ctx, req)
	if err != nil {
		return nil, TokenExchangeFailedError(cfg.ID, res.StatusCode, res.Body, err)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, TokenExchangeFailedError(cfg.ID, res.StatusCode, res.Body, nil)
	}

	body := bytes.TrimSpace(res.Body)
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return nil, TokenExchangeFailedError(cfg.ID, res.StatusCode, res.Body,
			fmt.Errorf("core: token response is not a json object"))
	}
	return body, nil
}

func buildTokenRequest(cfg ProviderConfig, code string, verifier string) (TransportRequest, error) {
	req := TransportRequest{
		Method:               http.MethodPost,
		URL:                  cfg.TokenURL,
		Headers:              map[string]string{"Accept": "application/json"},
		Timeout:              tokenExchangeTimeout,
		MaxResponseBodyBytes: tokenResponseBodyLimit,
		Metadata:             map[string]any{"provider_id": cfg.ID, "operation": "token_exchange"},
	}

	switch cfg.ContentMode {
	case TokenContentJSON:
		body := map[string]string{
			"grant_type":   grantTypeAuthorizationCode,
			"code":         code,
			"redirect_uri": cfg.RedirectURI,
		}
		encoded, err := json.Marshal(body)
		if err != nil {
			return TransportRequest{}, fmt.Errorf("core: encode token request: %w", err)
		}
		req.Body = encoded
		req.Headers["Content-Type"] = "application/json"
		req.Headers["Authorization"] = basicAuthorization(cfg.ClientID, cfg.ClientSecret)
	case TokenContentForm, "":
		// only form mode carries the PKCE verifier
		form := url.Values{}
		form.Set("grant_type", grantTypeAuthorizationCode)
		form.Set("code", code)
		form.Set("redirect_uri", cfg.RedirectURI)
		form.Set("client_id", cfg.ClientID)
		form.Set("client_secret", cfg.ClientSecret)
		if cfg.PKCE && verifier != "" {
			form.Set("code_verifier", verifier)
		}
		req.Body = []byte(form.Encode())
		req.Headers["Content-Type"] = "application/x-www-form-urlencoded"
	default:
		return TransportRequest{}, fmt.Errorf("core: unsupported token content mode %q", cfg.ContentMode)
	}
	return req, nil
}

func basicAuthorization(clientID string, clientSecret string) string {
	raw := strings.TrimSpace(clientID) + ":" + strings.TrimSpace(clientSecret)
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}
