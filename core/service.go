package core

import (
	"context"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// Service dispatches boundary operations to a flow engine bound to the
// requested provider.
type Service struct {
	config      Config
	logger      Logger
	loggers     LoggerProvider
	metrics     MetricsRecorder
	errorMapper ErrorMapper
	registry    *ProviderRegistry
	store       EphemeralStore
	transport   TransportAdapter
}

// ServiceDependencies exposes what NewService resolved, after defaults.
type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	Registry        *ProviderRegistry
	Store           EphemeralStore
	Transport       TransportAdapter
}

// NewService resolves the config layers and fills defaults: a nop metrics
// recorder, the service error mapper and an in-process store. A transport is
// required.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := serviceBuilder{runtime: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(&builder)
		}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = serviceErrorMapper
	}
	fail := func(err error) (*Service, error) {
		if mapped := builder.errorMapper(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	if builder.transport == nil {
		return fail(fmt.Errorf("core: transport adapter is required"))
	}

	loggers, logger := glog.Resolve("integrations", builder.loggers, builder.logger)
	logger = glog.Ensure(logger)
	if loggers != nil {
		if named := loggers.GetLogger("integrations"); named != nil {
			logger = glog.Ensure(named)
		}
	}
	if builder.metrics == nil {
		builder.metrics = NopMetricsRecorder{}
	}

	resolved, err := ResolveConfig(context.Background(), builder.configLoader, builder.runtime)
	if err != nil {
		return fail(err)
	}
	registry, err := NewProviderRegistry(builder.providers...)
	if err != nil {
		return fail(err)
	}
	if builder.store == nil {
		builder.store = NewMemoryEphemeralStore(resolved.TTL())
	}

	return &Service{
		config:      resolved,
		logger:      logger,
		loggers:     loggers,
		metrics:     builder.metrics,
		errorMapper: builder.errorMapper,
		registry:    registry,
		store:       builder.store,
		transport:   builder.transport,
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggers,
		MetricsRecorder: s.metrics,
		ErrorMapper:     s.errorMapper,
		Registry:        s.registry,
		Store:           s.store,
		Transport:       s.transport,
	}
}

// Providers lists registered provider ids in sorted order.
func (s *Service) Providers() []string {
	if s == nil || s.registry == nil {
		return nil
	}
	list := s.registry.List()
	ids := make([]string, 0, len(list))
	for _, provider := range list {
		ids = append(ids, NormalizeProviderID(provider.ID()))
	}
	return ids
}

func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (response AuthorizeResponse, err error) {
	event := beginOperation(OperationAuthorize, req.ProviderID, req.OrgID, req.UserID)
	defer func() { s.finish(ctx, event, err) }()

	if err = validateTuple(req.UserID, req.OrgID); err != nil {
		err = s.mapError(err)
		return AuthorizeResponse{}, err
	}
	engine, err := s.engine(req.ProviderID)
	if err != nil {
		return AuthorizeResponse{}, err
	}
	authURL, err := engine.Authorize(ctx, strings.TrimSpace(req.UserID), strings.TrimSpace(req.OrgID))
	if err != nil {
		err = s.mapError(err)
		return AuthorizeResponse{}, err
	}
	return AuthorizeResponse{ProviderID: engine.ProviderID(), URL: authURL}, nil
}

func (s *Service) CompleteCallback(ctx context.Context, req CallbackRequest) (completion CallbackCompletion, err error) {
	event := beginOperation(OperationCallback, req.ProviderID, "", "")
	defer func() {
		event.orgID, event.userID = completion.OrgID, completion.UserID
		s.finish(ctx, event, err)
	}()

	engine, err := s.engine(req.ProviderID)
	if err != nil {
		return CallbackCompletion{}, err
	}
	completion, err = engine.Callback(ctx, req)
	if err != nil {
		err = s.mapError(err)
		return CallbackCompletion{}, err
	}
	return completion, nil
}

func (s *Service) GetCredentials(ctx context.Context, req CredentialsRequest) (credentials Credentials, err error) {
	event := beginOperation(OperationGetCredentials, req.ProviderID, req.OrgID, req.UserID)
	defer func() { s.finish(ctx, event, err) }()

	if err = validateTuple(req.UserID, req.OrgID); err != nil {
		err = s.mapError(err)
		return nil, err
	}
	engine, err := s.engine(req.ProviderID)
	if err != nil {
		return nil, err
	}
	credentials, err = engine.GetCredentials(ctx, strings.TrimSpace(req.UserID), strings.TrimSpace(req.OrgID))
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return credentials, nil
}

// ListItems fetches and normalizes the provider resources visible to the
// access token. Any failing step fails the whole call.
func (s *Service) ListItems(ctx context.Context, req ListItemsRequest) (items []Item, err error) {
	providerID := NormalizeProviderID(req.ProviderID)
	event := beginOperation(OperationListItems, providerID, "", "")
	defer func() {
		event.itemCount, event.countItems = len(items), true
		s.finish(ctx, event, err)
	}()

	provider, err := s.resolveProvider(providerID)
	if err != nil {
		return nil, err
	}
	accessToken := req.Credentials.AccessToken()
	if accessToken == "" {
		err = s.mapError(NoCredentialsError(providerID))
		return nil, err
	}

	raw, err := provider.FetchRawItems(ctx, s.transport, accessToken)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	items = make([]Item, 0, len(raw))
	for _, entry := range raw {
		item, normalizeErr := provider.Normalize(entry)
		if normalizeErr != nil {
			err = s.mapError(UpstreamFetchFailedError(providerID, 0, entry.Data, normalizeErr))
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) engine(providerID string) (*FlowEngine, error) {
	provider, err := s.resolveProvider(providerID)
	if err != nil {
		return nil, err
	}
	engine, err := NewFlowEngine(provider.Config(), s.store, s.transport, s.config.TTL())
	if err != nil {
		return nil, s.mapError(err)
	}
	return engine, nil
}

func (s *Service) resolveProvider(providerID string) (Provider, error) {
	if s == nil || s.registry == nil {
		return nil, s.mapError(fmt.Errorf("core: registry unavailable"))
	}
	providerID = NormalizeProviderID(providerID)
	if providerID == "" {
		return nil, s.mapError(BadInputError("provider id is required"))
	}
	provider, ok := s.registry.Get(providerID)
	if ok {
		return provider, nil
	}
	return nil, s.mapError(ProviderNotFoundError(providerID))
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func validateTuple(userID string, orgID string) error {
	if strings.TrimSpace(userID) == "" {
		return BadInputError("user id is required")
	}
	if strings.TrimSpace(orgID) == "" {
		return BadInputError("org id is required")
	}
	return nil
}
