package core

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type TokenContentMode string

const (
	// TokenContentForm posts client credentials inside a form encoded body.
	TokenContentForm TokenContentMode = "form"
	// TokenContentJSON posts a JSON body and sends client credentials as HTTP Basic auth.
	TokenContentJSON TokenContentMode = "json"
)

// ProviderConfig is the immutable OAuth2 client configuration of a provider.
// AuthParams are appended verbatim to the authorization URL.
type ProviderConfig struct {
	ID           string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	Scope        string
	PKCE         bool
	ContentMode  TokenContentMode
	AuthParams   map[string]string
}

// AuthState is the payload carried by the OAuth2 state parameter.
type AuthState struct {
	Nonce  string `json:"state"`
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
}

// Credentials is the token endpoint response, kept as an opaque JSON object.
type Credentials map[string]any

func (c Credentials) AccessToken() string {
	if c == nil {
		return ""
	}
	token, _ := c["access_token"].(string)
	return strings.TrimSpace(token)
}

// Item is the provider independent shape of a remote resource.
type Item struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type,omitempty"`
	ParentID       string `json:"parent_id,omitempty"`
	ParentName     string `json:"parent_path_or_name,omitempty"`
	Email          string `json:"email,omitempty"`
	CreatedAt      string `json:"creation_time,omitempty"`
	LastModifiedAt string `json:"last_modified_time,omitempty"`
}

// RawItem is a single provider resource as returned by the remote API.
// Parent is set when the resource was discovered through another resource.
type RawItem struct {
	Kind   string
	Data   json.RawMessage
	Parent *RawItem
}

type Provider interface {
	ID() string
	Config() ProviderConfig
	FetchRawItems(ctx context.Context, client TransportAdapter, accessToken string) ([]RawItem, error)
	Normalize(raw RawItem) (Item, error)
}

// EphemeralStore is a key value store with per key expiry. Get reports
// expired and deleted keys identically as absent.
type EphemeralStore interface {
	Put(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

// EphemeralConsumer is implemented by stores that can read and delete a key
// in a single atomic step.
type EphemeralConsumer interface {
	Consume(ctx context.Context, key string) (string, bool, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type AuthorizeRequest struct {
	ProviderID string
	UserID     string
	OrgID      string
}

type AuthorizeResponse struct {
	ProviderID string
	URL        string
}

// CallbackRequest carries the query parameters of the provider redirect.
type CallbackRequest struct {
	ProviderID       string
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type CallbackCompletion struct {
	ProviderID string
	UserID     string
	OrgID      string
}

type CredentialsRequest struct {
	ProviderID string
	UserID     string
	OrgID      string
}

type ListItemsRequest struct {
	ProviderID  string
	Credentials Credentials
}

// IntegrationService is the boundary consumed by the command, query and
// HTTP layers.
type IntegrationService interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (AuthorizeResponse, error)
	CompleteCallback(ctx context.Context, req CallbackRequest) (CallbackCompletion, error)
	GetCredentials(ctx context.Context, req CredentialsRequest) (Credentials, error)
	ListItems(ctx context.Context, req ListItemsRequest) ([]Item, error)
}
