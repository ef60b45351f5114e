package query

import (
	"context"

	"github.com/goliatone/go-integrations/core"
)

type ItemLister interface {
	ListItems(ctx context.Context, req core.ListItemsRequest) ([]core.Item, error)
}

type ProviderCatalog interface {
	Providers() []string
}

type ListItemsQuery struct {
	lister ItemLister
}

func NewListItemsQuery(lister ItemLister) *ListItemsQuery {
	return &ListItemsQuery{lister: lister}
}

func (q *ListItemsQuery) Query(ctx context.Context, msg ListItemsMessage) ([]core.Item, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: item lister is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.lister.ListItems(ctx, msg.Request)
}

type ListProvidersQuery struct {
	catalog ProviderCatalog
}

func NewListProvidersQuery(catalog ProviderCatalog) *ListProvidersQuery {
	return &ListProvidersQuery{catalog: catalog}
}

func (q *ListProvidersQuery) Query(_ context.Context, _ ListProvidersMessage) ([]string, error) {
	if q == nil || q.catalog == nil {
		return nil, queryDependencyError("query: provider catalog is required")
	}
	return q.catalog.Providers(), nil
}
