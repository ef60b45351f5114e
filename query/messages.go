package query

import (
	"strings"

	"github.com/goliatone/go-integrations/core"
)

const (
	TypeListItems     = "integrations.query.items.list"
	TypeListProviders = "integrations.query.providers.list"
)

type ListItemsMessage struct {
	Request core.ListItemsRequest
}

func (ListItemsMessage) Type() string { return TypeListItems }

func (m ListItemsMessage) Validate() error {
	if strings.TrimSpace(m.Request.ProviderID) == "" {
		return queryValidationError("provider_id", "provider id is required")
	}
	if m.Request.Credentials.AccessToken() == "" {
		return queryValidationError("credentials", "credentials must carry an access_token")
	}
	return nil
}

type ListProvidersMessage struct{}

func (ListProvidersMessage) Type() string { return TypeListProviders }

func (ListProvidersMessage) Validate() error { return nil }
