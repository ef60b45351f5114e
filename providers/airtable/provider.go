package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/providers"
)

const (
	ProviderID = "airtable"
	AuthURL    = "https://airtable.com/oauth2/v1/authorize"
	TokenURL   = "https://airtable.com/oauth2/v1/token"
	APIBaseURL = "https://api.airtable.com/v0"

	DefaultScope = "data.records:read data.records:write data.recordComments:read data.recordComments:write schema.bases:read schema.bases:write"

	ItemTypeBase  = "Base"
	ItemTypeTable = "Table"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	Scope        string
	APIBaseURL   string
}

// Provider lists Airtable bases and, for each base, its tables.
type Provider struct {
	*providers.OAuth2Provider
	apiBaseURL string
}

type basesPage struct {
	Bases  []json.RawMessage `json:"bases"`
	Offset string            `json:"offset"`
}

type tablesPage struct {
	Tables []json.RawMessage `json:"tables"`
}

type entity struct {
	ID   any    `json:"id"`
	Name string `json:"name"`
}

func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.AuthURL) == "" {
		cfg.AuthURL = AuthURL
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		cfg.TokenURL = TokenURL
	}
	if strings.TrimSpace(cfg.Scope) == "" {
		cfg.Scope = DefaultScope
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = APIBaseURL
	}

	base, err := providers.NewOAuth2Provider(core.ProviderConfig{
		ID:           ProviderID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		Scope:        cfg.Scope,
		PKCE:         true,
		ContentMode:  core.TokenContentForm,
		AuthParams:   map[string]string{"owner": "user"},
	})
	if err != nil {
		return nil, err
	}
	return &Provider{
		OAuth2Provider: base,
		apiBaseURL:     strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/"),
	}, nil
}

// FetchBases follows the offset cursor of the bases listing until Airtable
// omits it.
func (p *Provider) FetchBases(ctx context.Context, client core.TransportAdapter, accessToken string) ([]json.RawMessage, error) {
	bases := make([]json.RawMessage, 0)
	seen := map[string]struct{}{}
	offset := ""
	for {
		var query map[string]string
		if offset != "" {
			query = map[string]string{"offset": offset}
		}
		body, err := providers.FetchJSON(ctx, client, p.ID(), accessToken, core.TransportRequest{
			URL:   p.apiBaseURL + "/meta/bases",
			Query: query,
		})
		if err != nil {
			return nil, err
		}
		var page basesPage
		if err := providers.DecodeObject(p.ID(), body, &page); err != nil {
			return nil, err
		}
		bases = append(bases, page.Bases...)

		offset = strings.TrimSpace(page.Offset)
		if offset == "" {
			return bases, nil
		}
		if _, repeated := seen[offset]; repeated {
			return nil, core.UpstreamFetchFailedError(p.ID(), 0, body,
				fmt.Errorf("airtable: pagination offset %q repeated", offset))
		}
		seen[offset] = struct{}{}
	}
}

func (p *Provider) FetchRawItems(ctx context.Context, client core.TransportAdapter, accessToken string) ([]core.RawItem, error) {
	bases, err := p.FetchBases(ctx, client, accessToken)
	if err != nil {
		return nil, err
	}
	items := make([]core.RawItem, 0, len(bases))
	for _, data := range bases {
		baseItem := core.RawItem{Kind: ItemTypeBase, Data: data}
		items = append(items, baseItem)

		var base entity
		if err := providers.DecodeObject(p.ID(), data, &base); err != nil {
			return nil, err
		}
		baseID := providers.StringValue(base.ID)
		if baseID == "" {
			return nil, core.UpstreamFetchFailedError(p.ID(), 0, data, fmt.Errorf("airtable: base id is missing"))
		}
		tables, err := p.fetchTables(ctx, client, accessToken, baseID)
		if err != nil {
			return nil, err
		}
		parent := baseItem
		for _, table := range tables {
			items = append(items, core.RawItem{Kind: ItemTypeTable, Data: table, Parent: &parent})
		}
	}
	return items, nil
}

func (p *Provider) fetchTables(ctx context.Context, client core.TransportAdapter, accessToken string, baseID string) ([]json.RawMessage, error) {
	body, err := providers.FetchJSON(ctx, client, p.ID(), accessToken, core.TransportRequest{
		URL: p.apiBaseURL + "/meta/bases/" + url.PathEscape(baseID) + "/tables",
	})
	if err != nil {
		return nil, err
	}
	var page tablesPage
	if err := providers.DecodeObject(p.ID(), body, &page); err != nil {
		return nil, err
	}
	return page.Tables, nil
}

func (p *Provider) Normalize(raw core.RawItem) (core.Item, error) {
	var record entity
	if err := json.Unmarshal(raw.Data, &record); err != nil {
		return core.Item{}, fmt.Errorf("airtable: decode %s: %w", strings.ToLower(raw.Kind), err)
	}
	switch raw.Kind {
	case ItemTypeBase, ItemTypeTable:
	default:
		return core.Item{}, fmt.Errorf("airtable: unsupported item kind %q", raw.Kind)
	}
	item := core.Item{
		ID:   providers.StringValue(record.ID) + "_" + raw.Kind,
		Name: record.Name,
		Type: raw.Kind,
	}
	if raw.Kind == ItemTypeTable && raw.Parent != nil {
		var parent entity
		if err := json.Unmarshal(raw.Parent.Data, &parent); err != nil {
			return core.Item{}, fmt.Errorf("airtable: decode parent base: %w", err)
		}
		if parentID := providers.StringValue(parent.ID); parentID != "" {
			item.ParentID = parentID + "_" + ItemTypeBase
		}
		item.ParentName = parent.Name
	}
	return item, nil
}

var _ core.Provider = (*Provider)(nil)
