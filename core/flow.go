package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

func (c ProviderConfig) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("core: provider id is required")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("core: client id is required for provider %q", c.ID)
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return fmt.Errorf("core: client secret is required for provider %q", c.ID)
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		return fmt.Errorf("core: redirect uri is required for provider %q", c.ID)
	}
	if strings.TrimSpace(c.AuthURL) == "" {
		return fmt.Errorf("core: auth url is required for provider %q", c.ID)
	}
	if strings.TrimSpace(c.TokenURL) == "" {
		return fmt.Errorf("core: token url is required for provider %q", c.ID)
	}
	switch c.ContentMode {
	case TokenContentForm, TokenContentJSON, "":
	default:
		return fmt.Errorf("core: invalid token content mode %q for provider %q", c.ContentMode, c.ID)
	}
	return nil
}

// FlowEngine runs the authorization code grant for a single provider. It
// holds no mutable state; every secret lives in the ephemeral store.
type FlowEngine struct {
	config    ProviderConfig
	store     EphemeralStore
	transport TransportAdapter
	ttl       time.Duration
}

func NewFlowEngine(cfg ProviderConfig, store EphemeralStore, transport TransportAdapter, ttl time.Duration) (*FlowEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("core: ephemeral store is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("core: transport adapter is required")
	}
	if ttl <= 0 {
		ttl = DefaultExpirySeconds * time.Second
	}
	cfg.ID = NormalizeProviderID(cfg.ID)
	return &FlowEngine{config: cfg, store: store, transport: transport, ttl: ttl}, nil
}

func (e *FlowEngine) ProviderID() string {
	return e.config.ID
}

// Authorize persists a fresh state (and verifier when PKCE is enabled) and
// returns the URL the user agent must visit.
func (e *FlowEngine) Authorize(ctx context.Context, userID string, orgID string) (string, error) {
	state, err := NewAuthState(userID, orgID)
	if err != nil {
		return "", err
	}
	encoded, err := state.Encode()
	if err != nil {
		return "", err
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("core: encode oauth state: %w", err)
	}

	authURL, err := url.Parse(strings.TrimSpace(e.config.AuthURL))
	if err != nil {
		return "", fmt.Errorf("core: invalid auth url for provider %q: %w", e.config.ID, err)
	}
	query := authURL.Query()
	for key, value := range e.config.AuthParams {
		if strings.TrimSpace(key) == "" {
			continue
		}
		query.Set(key, value)
	}
	query.Set("client_id", e.config.ClientID)
	query.Set("redirect_uri", e.config.RedirectURI)
	query.Set("response_type", "code")
	query.Set("state", encoded)
	if scope := strings.TrimSpace(e.config.Scope); scope != "" {
		query.Set("scope", scope)
	}

	// The state is written last: a callback can only start once it exists.
	verifierKey := ""
	if e.config.PKCE {
		verifier := NewPKCEVerifier()
		verifierKey = e.key(KeyPurposeVerifier, state)
		if err := e.store.Put(ctx, verifierKey, verifier, e.ttl); err != nil {
			return "", fmt.Errorf("core: persist pkce verifier: %w", err)
		}
		query.Set("code_challenge", PKCEChallenge(verifier))
		query.Set("code_challenge_method", PKCEMethodS256)
	}
	if err := e.store.Put(ctx, e.key(KeyPurposeState, state), string(stateJSON), e.ttl); err != nil {
		if verifierKey != "" {
			_ = e.store.Delete(ctx, verifierKey)
		}
		return "", fmt.Errorf("core: persist oauth state: %w", err)
	}

	authURL.RawQuery = query.Encode()
	return authURL.String(), nil
}

// Callback validates the returned state and exchanges the code. The stored
// state is consumed atomically, so of two concurrent callbacks for the same
// state at most one reaches the token endpoint.
func (e *FlowEngine) Callback(ctx context.Context, req CallbackRequest) (CallbackCompletion, error) {
	if reason := strings.TrimSpace(req.Error); reason != "" {
		return CallbackCompletion{}, ProviderDeniedError(e.config.ID, reason, req.ErrorDescription)
	}
	incoming, err := DecodeAuthState(req.State)
	if err != nil {
		return CallbackCompletion{}, MalformedStateError(e.config.ID, err)
	}
	if strings.TrimSpace(req.Code) == "" {
		return CallbackCompletion{}, BadInputError("authorization code is required")
	}

	stored, found, err := consume(ctx, e.store, e.key(KeyPurposeState, incoming))
	if err != nil {
		return CallbackCompletion{}, fmt.Errorf("core: read oauth state: %w", err)
	}
	if !found {
		return CallbackCompletion{}, StateMismatchError(e.config.ID, "oauth state not found or expired")
	}
	expected, err := parseAuthState([]byte(stored))
	if err != nil || expected.Nonce != incoming.Nonce {
		return CallbackCompletion{}, StateMismatchError(e.config.ID, "oauth state does not match")
	}

	verifier := ""
	if e.config.PKCE {
		value, ok, consumeErr := consume(ctx, e.store, e.key(KeyPurposeVerifier, incoming))
		if consumeErr != nil {
			return CallbackCompletion{}, fmt.Errorf("core: read pkce verifier: %w", consumeErr)
		}
		if !ok {
			return CallbackCompletion{}, StateMismatchError(e.config.ID, "pkce verifier not found or expired")
		}
		verifier = value
	}

	tokens, err := exchangeCode(ctx, e.transport, e.config, req.Code, verifier)
	if err != nil {
		return CallbackCompletion{}, err
	}
	if err := e.store.Put(ctx, e.key(KeyPurposeCredentials, incoming), string(tokens), e.ttl); err != nil {
		return CallbackCompletion{}, fmt.Errorf("core: persist credentials: %w", err)
	}
	return CallbackCompletion{
		ProviderID: e.config.ID,
		UserID:     incoming.UserID,
		OrgID:      incoming.OrgID,
	}, nil
}

// GetCredentials hands out the stored credentials once.
func (e *FlowEngine) GetCredentials(ctx context.Context, userID string, orgID string) (Credentials, error) {
	key := StoreKey(KeyPurposeCredentials, e.config.ID, orgID, userID)
	raw, found, err := consume(ctx, e.store, key)
	if err != nil {
		return nil, fmt.Errorf("core: read credentials: %w", err)
	}
	if !found {
		return nil, NoCredentialsError(e.config.ID)
	}
	var credentials Credentials
	if err := json.Unmarshal([]byte(raw), &credentials); err != nil {
		return nil, fmt.Errorf("core: decode stored credentials: %w", err)
	}
	return credentials, nil
}

func (e *FlowEngine) key(purpose KeyPurpose, state AuthState) string {
	return StoreKey(purpose, e.config.ID, state.OrgID, state.UserID)
}

// consume reads and deletes key. Stores that cannot do both atomically fall
// back to get followed by delete.
func consume(ctx context.Context, store EphemeralStore, key string) (string, bool, error) {
	if consumer, ok := store.(EphemeralConsumer); ok {
		return consumer.Consume(ctx, key)
	}
	value, found, err := store.Get(ctx, key)
	if err != nil || !found {
		return "", false, err
	}
	if err := store.Delete(ctx, key); err != nil {
		return "", false, err
	}
	return value, true, nil
}
