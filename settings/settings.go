// Package settings reads process configuration from the environment and an
// optional .env file.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/providers/airtable"
	"github.com/goliatone/go-integrations/providers/hubspot"
	"github.com/goliatone/go-integrations/providers/notion"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

const DefaultEnvFile = ".env"

type ProviderSettings struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI"`
	Scopes       string `env:"SCOPES"`
	AuthURL      string `env:"AUTH_URL"`
	TokenURL     string `env:"TOKEN_URL"`
}

// Enabled reports whether client credentials were supplied.
func (p ProviderSettings) Enabled() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.ClientSecret) != ""
}

// Settings uses the variable names the service has always read. REDIS_EXPIRY
// sets the entry lifetime for every store driver, not only Redis.
type Settings struct {
	ServiceName   string `env:"INTEGRATIONS_SERVICE_NAME" envDefault:"integrations"`
	ExpirySeconds int    `env:"REDIS_EXPIRY" envDefault:"600"`
	LogLevel      string `env:"INTEGRATIONS_LOG_LEVEL" envDefault:"info"`

	HubSpot  ProviderSettings `envPrefix:"HUBSPOT_"`
	Airtable ProviderSettings `envPrefix:"AIRTABLE_"`
	Notion   ProviderSettings `envPrefix:"NOTION_"`

	HTTPAddr    string   `env:"INTEGRATIONS_HTTP_ADDR" envDefault:":8000"`
	CORSOrigins []string `env:"INTEGRATIONS_CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	StoreDriver   string `env:"INTEGRATIONS_STORE" envDefault:"memory"`
	DatabaseDSN   string `env:"INTEGRATIONS_DATABASE_DSN"`
	DatabaseDebug bool   `env:"INTEGRATIONS_DATABASE_DEBUG"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"integrations"`
}

// Load applies the given dotenv files, then parses the environment. With no
// files it tries DefaultEnvFile and ignores it when missing. Variables already
// set in the environment win over file values.
func Load(files ...string) (Settings, error) {
	if len(files) == 0 {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("settings: load %s: %w", DefaultEnvFile, err)
		}
	} else {
		for _, file := range files {
			if err := godotenv.Load(expandHome(file)); err != nil {
				return Settings{}, fmt.Errorf("settings: load %s: %w", file, err)
			}
		}
	}
	return Parse()
}

// Parse reads Settings from the current environment only.
func Parse() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("settings: parse env: %w", err)
	}
	s.applyRedirectDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	switch s.Driver() {
	case StoreMemory, StoreRedis:
	case StoreSQLite, StorePostgres:
		if strings.TrimSpace(s.DatabaseDSN) == "" {
			return fmt.Errorf("settings: INTEGRATIONS_DATABASE_DSN is required for store %q", s.Driver())
		}
	default:
		return fmt.Errorf("settings: unsupported store driver %q", s.StoreDriver)
	}
	if s.ExpirySeconds <= 0 {
		return fmt.Errorf("settings: REDIS_EXPIRY must be positive, got %d", s.ExpirySeconds)
	}
	return nil
}

func (s Settings) Driver() string {
	return strings.ToLower(strings.TrimSpace(s.StoreDriver))
}

func (s Settings) ServiceConfig() core.Config {
	return core.Config{
		ServiceName:   s.ServiceName,
		ExpirySeconds: s.ExpirySeconds,
	}
}

// RawLoader exposes the service section as a raw map so it is built through
// the cfgx provider like any other config source.
func (s Settings) RawLoader() core.RawConfigLoader {
	return rawLoader{values: map[string]any{
		"service_name":   s.ServiceName,
		"expiry_seconds": s.ExpirySeconds,
	}}
}

// Providers builds every provider whose client credentials are set.
func (s Settings) Providers() ([]core.Provider, error) {
	var out []core.Provider
	if s.HubSpot.Enabled() {
		provider, err := hubspot.New(hubspot.Config{
			ClientID:     s.HubSpot.ClientID,
			ClientSecret: s.HubSpot.ClientSecret,
			RedirectURI:  s.HubSpot.RedirectURI,
			AuthURL:      s.HubSpot.AuthURL,
			TokenURL:     s.HubSpot.TokenURL,
			Scope:        s.HubSpot.Scopes,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, provider)
	}
	if s.Airtable.Enabled() {
		provider, err := airtable.New(airtable.Config{
			ClientID:     s.Airtable.ClientID,
			ClientSecret: s.Airtable.ClientSecret,
			RedirectURI:  s.Airtable.RedirectURI,
			AuthURL:      s.Airtable.AuthURL,
			TokenURL:     s.Airtable.TokenURL,
			Scope:        s.Airtable.Scopes,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, provider)
	}
	if s.Notion.Enabled() {
		provider, err := notion.New(notion.Config{
			ClientID:     s.Notion.ClientID,
			ClientSecret: s.Notion.ClientSecret,
			RedirectURI:  s.Notion.RedirectURI,
			AuthURL:      s.Notion.AuthURL,
			TokenURL:     s.Notion.TokenURL,
			Scope:        s.Notion.Scopes,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, provider)
	}
	return out, nil
}

// DefaultRedirectURI is the callback route served by httpapi on localhost.
func DefaultRedirectURI(providerID string) string {
	return "http://localhost:8000/integrations/oauth2callback?integration_type=" + providerID
}

func (s *Settings) applyRedirectDefaults() {
	if strings.TrimSpace(s.HubSpot.RedirectURI) == "" {
		s.HubSpot.RedirectURI = DefaultRedirectURI(hubspot.ProviderID)
	}
	if strings.TrimSpace(s.Airtable.RedirectURI) == "" {
		s.Airtable.RedirectURI = DefaultRedirectURI(airtable.ProviderID)
	}
	if strings.TrimSpace(s.Notion.RedirectURI) == "" {
		s.Notion.RedirectURI = DefaultRedirectURI(notion.ProviderID)
	}
}

type rawLoader struct {
	values map[string]any
}

func (l rawLoader) LoadRaw(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

func expandHome(file string) string {
	if !strings.HasPrefix(file, "~") {
		return file
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return file
	}
	return strings.Replace(file, "~", home, 1)
}
