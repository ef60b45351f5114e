package providers

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-integrations/core"
)

// OAuth2Provider holds the client configuration shared by every built-in
// provider. Concrete providers embed it and add resource listing.
type OAuth2Provider struct {
	cfg core.ProviderConfig
}

func NewOAuth2Provider(cfg core.ProviderConfig) (*OAuth2Provider, error) {
	cfg.ID = core.NormalizeProviderID(cfg.ID)
	if cfg.ID == "" {
		return nil, fmt.Errorf("providers: provider id is required")
	}
	cfg.AuthURL = strings.TrimSpace(cfg.AuthURL)
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.RedirectURI = strings.TrimSpace(cfg.RedirectURI)
	cfg.Scope = strings.Join(parseScopeList(cfg.Scope), " ")

	if cfg.AuthURL == "" {
		return nil, fmt.Errorf("providers: auth url is required for provider %q", cfg.ID)
	}
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("providers: token url is required for provider %q", cfg.ID)
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("providers: client id is required for provider %q", cfg.ID)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("providers: client secret is required for provider %q", cfg.ID)
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("providers: redirect uri is required for provider %q", cfg.ID)
	}
	if cfg.ContentMode == "" {
		cfg.ContentMode = core.TokenContentForm
	}
	cfg.AuthParams = cloneParams(cfg.AuthParams)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &OAuth2Provider{cfg: cfg}, nil
}

func (p *OAuth2Provider) ID() string {
	if p == nil {
		return ""
	}
	return p.cfg.ID
}

func (p *OAuth2Provider) Config() core.ProviderConfig {
	if p == nil {
		return core.ProviderConfig{}
	}
	cfg := p.cfg
	cfg.AuthParams = cloneParams(p.cfg.AuthParams)
	return cfg
}

// parseScopeList accepts space or comma separated scopes.
func parseScopeList(value string) []string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return []string{}
	}
	return strings.Fields(strings.ReplaceAll(trimmed, ",", " "))
}

func cloneParams(input map[string]string) map[string]string {
	if len(input) == 0 {
		return map[string]string{}
	}
	output := make(map[string]string, len(input))
	for key, value := range input {
		if key = strings.TrimSpace(key); key != "" {
			output[key] = value
		}
	}
	return output
}
