package integrations

import (
	"fmt"

	integrationscommand "github.com/goliatone/go-integrations/command"
	integrationsquery "github.com/goliatone/go-integrations/query"
)

type CommandQueryService interface {
	integrationscommand.MutatingService
	integrationsquery.ItemLister
	integrationsquery.ProviderCatalog
}

type Commands struct {
	Authorize        *integrationscommand.AuthorizeCommand
	CompleteCallback *integrationscommand.CompleteCallbackCommand
	GetCredentials   *integrationscommand.GetCredentialsCommand
}

type Queries struct {
	ListItems     *integrationsquery.ListItemsQuery
	ListProviders *integrationsquery.ListProvidersQuery
}

// Facade bundles the command and query handlers bound to one service so
// transports do not have to construct them individually.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("integrations: command/query service is required")
	}
	return &Facade{
		service: service,
		commands: Commands{
			Authorize:        integrationscommand.NewAuthorizeCommand(service),
			CompleteCallback: integrationscommand.NewCompleteCallbackCommand(service),
			GetCredentials:   integrationscommand.NewGetCredentialsCommand(service),
		},
		queries: Queries{
			ListItems:     integrationsquery.NewListItemsQuery(service),
			ListProviders: integrationsquery.NewListProvidersQuery(service),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
