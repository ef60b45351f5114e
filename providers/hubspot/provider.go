package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/providers"
)

const (
	ProviderID  = "hubspot"
	AuthURL     = "https://app.hubspot.com/oauth/authorize"
	TokenURL    = "https://api.hubapi.com/oauth/v1/token"
	ContactsURL = "https://api.hubapi.com/crm/v3/objects/contacts"

	DefaultScope    = "crm.objects.contacts.read crm.objects.contacts.write crm.schemas.deals.read crm.schemas.deals.write oauth"
	DefaultPageSize = 100

	ItemTypeContact = "Contact"
)

var DefaultProperties = []string{"firstname", "lastname", "email"}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	Scope        string
	ContactsURL  string
	PageSize     int
	Properties   []string
}

// Provider lists CRM contacts, following the after cursor until HubSpot
// stops returning one.
type Provider struct {
	*providers.OAuth2Provider
	contactsURL string
	pageSize    int
	properties  []string
}

type contactPage struct {
	Results []json.RawMessage `json:"results"`
	Paging  struct {
		Next struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

type contactRecord struct {
	ID               any            `json:"id"`
	CreatedAt        string         `json:"createdAt"`
	UpdatedAt        string         `json:"updatedAt"`
	LastModifiedDate string         `json:"lastmodifieddate"`
	Properties       map[string]any `json:"properties"`
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
	if strings.TrimSpace(cfg.ContactsURL) == "" {
		cfg.ContactsURL = ContactsURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	properties := normalizeProperties(cfg.Properties)
	if len(properties) == 0 {
		properties = append([]string(nil), DefaultProperties...)
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
	})
	if err != nil {
		return nil, err
	}
	return &Provider{
		OAuth2Provider: base,
		contactsURL:    strings.TrimSpace(cfg.ContactsURL),
		pageSize:       cfg.PageSize,
		properties:     properties,
	}, nil
}

func (p *Provider) FetchRawItems(ctx context.Context, client core.TransportAdapter, accessToken string) ([]core.RawItem, error) {
	items := make([]core.RawItem, 0)
	seen := map[string]struct{}{}
	after := ""
	for {
		query := map[string]string{
			"limit":      strconv.Itoa(p.pageSize),
			"properties": strings.Join(p.properties, ","),
		}
		if after != "" {
			query["after"] = after
		}
		body, err := providers.FetchJSON(ctx, client, p.ID(), accessToken, core.TransportRequest{
			URL:   p.contactsURL,
			Query: query,
		})
		if err != nil {
			return nil, err
		}
		var page contactPage
		if err := providers.DecodeObject(p.ID(), body, &page); err != nil {
			return nil, err
		}
		for _, result := range page.Results {
			items = append(items, core.RawItem{Kind: ItemTypeContact, Data: result})
		}

		after = strings.TrimSpace(page.Paging.Next.After)
		if after == "" {
			return items, nil
		}
		if _, repeated := seen[after]; repeated {
			return nil, core.UpstreamFetchFailedError(p.ID(), 0, body,
				fmt.Errorf("hubspot: pagination cursor %q repeated", after))
		}
		seen[after] = struct{}{}
	}
}

func (p *Provider) Normalize(raw core.RawItem) (core.Item, error) {
	var record contactRecord
	if err := json.Unmarshal(raw.Data, &record); err != nil {
		return core.Item{}, fmt.Errorf("hubspot: decode contact: %w", err)
	}
	properties := record.Properties
	name := strings.TrimSpace(
		providers.StringValue(properties["firstname"]) + " " + providers.StringValue(properties["lastname"]),
	)

	createdAt := record.CreatedAt
	if createdAt == "" {
		createdAt = providers.StringValue(properties["createdate"])
	}
	lastModified := providers.StringValue(properties["lastmodifieddate"])
	if lastModified == "" {
		lastModified = record.LastModifiedDate
	}
	if lastModified == "" {
		lastModified = record.UpdatedAt
	}

	return core.Item{
		ID:             providers.StringValue(record.ID),
		Name:           name,
		Type:           ItemTypeContact,
		Email:          providers.StringValue(properties["email"]),
		CreatedAt:      createdAt,
		LastModifiedAt: lastModified,
	}, nil
}

func normalizeProperties(input []string) []string {
	values := make([]string, 0, len(input))
	seen := map[string]struct{}{}
	for _, value := range input {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}

var _ core.Provider = (*Provider)(nil)
