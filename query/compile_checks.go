package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-integrations/core"
)

var (
	_ gocmd.Querier[ListItemsMessage, []core.Item]  = (*ListItemsQuery)(nil)
	_ gocmd.Querier[ListProvidersMessage, []string] = (*ListProvidersQuery)(nil)

	_ ItemLister      = (*core.Service)(nil)
	_ ProviderCatalog = (*core.Service)(nil)
)
