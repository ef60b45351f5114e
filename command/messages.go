package command

import (
	"strings"

	"github.com/goliatone/go-integrations/core"
)

const (
	TypeAuthorize        = "integrations.command.authorize"
	TypeCompleteCallback = "integrations.command.callback.complete"
	TypeGetCredentials   = "integrations.command.credentials.get"
)

type AuthorizeMessage struct {
	Request core.AuthorizeRequest
}

func (AuthorizeMessage) Type() string { return TypeAuthorize }

func (m AuthorizeMessage) Validate() error {
	if strings.TrimSpace(m.Request.ProviderID) == "" {
		return commandValidationError("provider_id", "provider id is required")
	}
	return validateTuple(m.Request.UserID, m.Request.OrgID)
}

type CompleteCallbackMessage struct {
	Request core.CallbackRequest
}

func (CompleteCallbackMessage) Type() string { return TypeCompleteCallback }

// Validate lets a provider error through without state or code; the service
// reports it as a denial.
func (m CompleteCallbackMessage) Validate() error {
	if strings.TrimSpace(m.Request.ProviderID) == "" {
		return commandValidationError("provider_id", "provider id is required")
	}
	if strings.TrimSpace(m.Request.Error) != "" {
		return nil
	}
	if strings.TrimSpace(m.Request.State) == "" {
		return commandValidationError("state", "state is required")
	}
	if strings.TrimSpace(m.Request.Code) == "" {
		return commandValidationError("code", "code is required")
	}
	return nil
}

// GetCredentialsMessage is a command rather than a query because reading the
// credentials removes them from the store.
type GetCredentialsMessage struct {
	Request core.CredentialsRequest
}

func (GetCredentialsMessage) Type() string { return TypeGetCredentials }

func (m GetCredentialsMessage) Validate() error {
	if strings.TrimSpace(m.Request.ProviderID) == "" {
		return commandValidationError("provider_id", "provider id is required")
	}
	return validateTuple(m.Request.UserID, m.Request.OrgID)
}

func validateTuple(userID string, orgID string) error {
	if strings.TrimSpace(userID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	if strings.TrimSpace(orgID) == "" {
		return commandValidationError("org_id", "org id is required")
	}
	return nil
}
