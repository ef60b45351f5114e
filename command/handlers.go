package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-integrations/core"
)

// MutatingService is the slice of the integration service that changes
// ephemeral state.
type MutatingService interface {
	Authorize(ctx context.Context, req core.AuthorizeRequest) (core.AuthorizeResponse, error)
	CompleteCallback(ctx context.Context, req core.CallbackRequest) (core.CallbackCompletion, error)
	GetCredentials(ctx context.Context, req core.CredentialsRequest) (core.Credentials, error)
}

type AuthorizeCommand struct {
	service MutatingService
}

func NewAuthorizeCommand(service MutatingService) *AuthorizeCommand {
	return &AuthorizeCommand{service: service}
}

func (c *AuthorizeCommand) Execute(ctx context.Context, msg AuthorizeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: authorize service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.Authorize(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteCallbackCommand struct {
	service MutatingService
}

func NewCompleteCallbackCommand(service MutatingService) *CompleteCallbackCommand {
	return &CompleteCallbackCommand{service: service}
}

func (c *CompleteCallbackCommand) Execute(ctx context.Context, msg CompleteCallbackMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: callback service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.CompleteCallback(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type GetCredentialsCommand struct {
	service MutatingService
}

func NewGetCredentialsCommand(service MutatingService) *GetCredentialsCommand {
	return &GetCredentialsCommand{service: service}
}

func (c *GetCredentialsCommand) Execute(ctx context.Context, msg GetCredentialsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credentials service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.GetCredentials(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
