package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/providers"
)

const (
	ProviderID = "notion"
	AuthURL    = "https://api.notion.com/v1/oauth/authorize"
	TokenURL   = "https://api.notion.com/v1/oauth/token"
	SearchURL  = "https://api.notion.com/v1/search"

	APIVersion = "2022-06-28"

	parentTypeWorkspace = "workspace"
	nameSuffix          = " multi_select"
)

// Config leaves Scope empty by default; Notion grants access per page.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	Scope        string
	SearchURL    string
	APIVersion   string
}

// Provider lists the pages and databases shared with the integration using a
// single search call.
type Provider struct {
	*providers.OAuth2Provider
	searchURL  string
	apiVersion string
}

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.AuthURL) == "" {
		cfg.AuthURL = AuthURL
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		cfg.TokenURL = TokenURL
	}
	if strings.TrimSpace(cfg.SearchURL) == "" {
		cfg.SearchURL = SearchURL
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = APIVersion
	}

	base, err := providers.NewOAuth2Provider(core.ProviderConfig{
		ID:           ProviderID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		Scope:        cfg.Scope,
		PKCE:         false,
		ContentMode:  core.TokenContentJSON,
		AuthParams:   map[string]string{"owner": "user"},
	})
	if err != nil {
		return nil, err
	}
	return &Provider{
		OAuth2Provider: base,
		searchURL:      strings.TrimSpace(cfg.SearchURL),
		apiVersion:     strings.TrimSpace(cfg.APIVersion),
	}, nil
}

func (p *Provider) FetchRawItems(ctx context.Context, client core.TransportAdapter, accessToken string) ([]core.RawItem, error) {
	body, err := providers.FetchJSON(ctx, client, p.ID(), accessToken, core.TransportRequest{
		Method:  http.MethodPost,
		URL:     p.searchURL,
		Headers: map[string]string{"Notion-Version": p.apiVersion},
		Body:    []byte(`{}`),
	})
	if err != nil {
		return nil, err
	}
	var response searchResponse
	if err := providers.DecodeObject(p.ID(), body, &response); err != nil {
		return nil, err
	}
	items := make([]core.RawItem, 0, len(response.Results))
	for _, result := range response.Results {
		var header struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(result, &header); err != nil {
			return nil, core.UpstreamFetchFailedError(p.ID(), http.StatusOK, result,
				fmt.Errorf("notion: search result is not an object: %w", err))
		}
		items = append(items, core.RawItem{Kind: header.Object, Data: result})
	}
	return items, nil
}

func (p *Provider) Normalize(raw core.RawItem) (core.Item, error) {
	root, err := parseTree(raw.Data)
	if err != nil {
		return core.Item{}, fmt.Errorf("notion: decode result: %w", err)
	}
	if root.kind != kindObject {
		return core.Item{}, fmt.Errorf("notion: result is not an object")
	}
	objectType := fieldString(root, "object")

	return core.Item{
		ID:             fieldString(root, "id"),
		Name:           resolveName(root, objectType),
		Type:           objectType,
		ParentID:       resolveParentID(root),
		CreatedAt:      fieldString(root, "created_time"),
		LastModifiedAt: fieldString(root, "last_edited_time"),
	}, nil
}

// resolveName uses the first content key found under properties. Anything
// other than a non-empty string falls back to "<object> multi_select".
func resolveName(root *value, objectType string) string {
	if properties, ok := root.get("properties"); ok {
		if found, ok := findKey(properties, "content"); ok && found.kind == kindScalar {
			if name, ok := found.scalar.(string); ok && name != "" {
				return name
			}
		}
	}
	return objectType + nameSuffix
}

// resolveParentID reads the parent field named after the parent type.
// Workspace parents have no id.
func resolveParentID(root *value) string {
	parent, ok := root.get("parent")
	if !ok || parent.kind != kindObject {
		return ""
	}
	parentType := fieldString(parent, "type")
	if parentType == "" || parentType == parentTypeWorkspace {
		return ""
	}
	return fieldString(parent, parentType)
}

func fieldString(node *value, key string) string {
	found, ok := node.get(key)
	if !ok {
		return ""
	}
	return found.str()
}

var _ core.Provider = (*Provider)(nil)
