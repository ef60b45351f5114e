// Package integrations connects users to third-party SaaS accounts through
// OAuth2 and lists the resources those accounts expose in a single,
// provider independent shape.
package integrations

import (
	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/transport"
)

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Provider = core.Provider
type ProviderConfig = core.ProviderConfig
type EphemeralStore = core.EphemeralStore
type TransportAdapter = core.TransportAdapter
type MetricsRecorder = core.MetricsRecorder

type AuthorizeRequest = core.AuthorizeRequest
type AuthorizeResponse = core.AuthorizeResponse
type CallbackRequest = core.CallbackRequest
type CallbackCompletion = core.CallbackCompletion
type CredentialsRequest = core.CredentialsRequest
type ListItemsRequest = core.ListItemsRequest
type Credentials = core.Credentials
type Item = core.Item

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorMapper     = core.WithErrorMapper
	WithConfigLoader    = core.WithConfigLoader
	WithProviders       = core.WithProviders
	WithEphemeralStore  = core.WithEphemeralStore
	WithTransport       = core.WithTransport
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// New builds a service that talks to providers over the REST transport
// unless WithTransport says otherwise.
func New(cfg Config, opts ...Option) (*Service, error) {
	defaults := []Option{WithTransport(transport.NewRESTAdapter(nil))}
	return core.NewService(cfg, append(defaults, opts...)...)
}
