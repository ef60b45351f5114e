package core

import goerrors "github.com/goliatone/go-errors"

// ErrorMapper turns any error returned by a boundary operation into the
// service envelope.
type ErrorMapper func(err error) *goerrors.Error

type serviceBuilder struct {
	runtime      Config
	logger       Logger
	loggers      LoggerProvider
	metrics      MetricsRecorder
	errorMapper  ErrorMapper
	configLoader RawConfigLoader
	providers    []Provider
	store        EphemeralStore
	transport    TransportAdapter
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

// WithLoggerProvider wins over WithLogger; the service asks it for the
// "integrations" logger.
func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggers = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metrics = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

// WithConfigLoader adds a loaded layer between the defaults and the Config
// passed to NewService.
func WithConfigLoader(loader RawConfigLoader) Option {
	return func(b *serviceBuilder) {
		b.configLoader = loader
	}
}

// WithProviders registers providers at build time. Duplicate ids fail the
// build.
func WithProviders(providers ...Provider) Option {
	return func(b *serviceBuilder) {
		b.providers = append(b.providers, providers...)
	}
}

// WithEphemeralStore replaces the in-process store.
func WithEphemeralStore(store EphemeralStore) Option {
	return func(b *serviceBuilder) {
		b.store = store
	}
}

// WithTransport is required.
func WithTransport(transport TransportAdapter) Option {
	return func(b *serviceBuilder) {
		b.transport = transport
	}
}
