package integrations

import (
	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/providers/airtable"
	"github.com/goliatone/go-integrations/providers/hubspot"
	"github.com/goliatone/go-integrations/providers/notion"
)

func HubSpotProvider(cfg hubspot.Config) (core.Provider, error) {
	return hubspot.New(cfg)
}

func AirtableProvider(cfg airtable.Config) (core.Provider, error) {
	return airtable.New(cfg)
}

func NotionProvider(cfg notion.Config) (core.Provider, error) {
	return notion.New(cfg)
}
