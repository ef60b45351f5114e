package core

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ServiceErrorBadInput            = "SERVICE_BAD_INPUT"
	ServiceErrorProviderNotFound    = "SERVICE_PROVIDER_NOT_FOUND"
	ServiceErrorProviderDenied      = "SERVICE_PROVIDER_DENIED"
	ServiceErrorStateMalformed      = "SERVICE_OAUTH_STATE_MALFORMED"
	ServiceErrorStateMismatch       = "SERVICE_OAUTH_STATE_MISMATCH"
	ServiceErrorTokenExchangeFailed = "SERVICE_TOKEN_EXCHANGE_FAILED"
	ServiceErrorNoCredentials       = "SERVICE_NO_CREDENTIALS"
	ServiceErrorUpstreamFetchFailed = "SERVICE_UPSTREAM_FETCH_FAILED"
	ServiceErrorExternalFailure     = "SERVICE_EXTERNAL_FAILURE"
	ServiceErrorInternal            = "SERVICE_INTERNAL_ERROR"
)

var (
	ErrProviderNotFound    = errors.New("core: provider not found")
	ErrProviderDenied      = errors.New("core: provider denied authorization")
	ErrMalformedState      = errors.New("core: malformed oauth state")
	ErrStateMismatch       = errors.New("core: oauth state mismatch")
	ErrTokenExchangeFailed = errors.New("core: token exchange failed")
	ErrNoCredentials       = errors.New("core: no credentials found")
	ErrUpstreamFetchFailed = errors.New("core: upstream fetch failed")
)

const maxErrorBodyBytes = 4 << 10

func ProviderDeniedError(providerID string, reason string, description string) *goerrors.Error {
	message := "provider denied authorization"
	if description = strings.TrimSpace(description); description != "" {
		message = message + ": " + description
	}
	return newSentinelError(ErrProviderDenied, goerrors.CategoryBadInput, ServiceErrorProviderDenied, message, map[string]any{
		"provider_id":       providerID,
		"error":             strings.TrimSpace(reason),
		"error_description": description,
	})
}

func MalformedStateError(providerID string, cause error) *goerrors.Error {
	metadata := map[string]any{"provider_id": providerID}
	if cause != nil {
		metadata["cause"] = cause.Error()
	}
	return newSentinelError(ErrMalformedState, goerrors.CategoryBadInput, ServiceErrorStateMalformed, "oauth state could not be decoded", metadata)
}

func StateMismatchError(providerID string, message string) *goerrors.Error {
	if strings.TrimSpace(message) == "" {
		message = "oauth state does not match"
	}
	return newSentinelError(ErrStateMismatch, goerrors.CategoryBadInput, ServiceErrorStateMismatch, message, map[string]any{
		"provider_id": providerID,
	})
}

// TokenExchangeFailedError reports a failed code exchange. A status of zero
// means the token endpoint could not be reached.
func TokenExchangeFailedError(providerID string, status int, body []byte, cause error) *goerrors.Error {
	return upstreamError(ErrTokenExchangeFailed, ServiceErrorTokenExchangeFailed, "token exchange failed", providerID, status, body, cause)
}

func UpstreamFetchFailedError(providerID string, status int, body []byte, cause error) *goerrors.Error {
	return upstreamError(ErrUpstreamFetchFailed, ServiceErrorUpstreamFetchFailed, "upstream fetch failed", providerID, status, body, cause)
}

func NoCredentialsError(providerID string) *goerrors.Error {
	return newSentinelError(ErrNoCredentials, goerrors.CategoryBadInput, ServiceErrorNoCredentials, "no credentials found", map[string]any{
		"provider_id": providerID,
	})
}

func ProviderNotFoundError(providerID string) *goerrors.Error {
	return newSentinelError(ErrProviderNotFound, goerrors.CategoryNotFound, ServiceErrorProviderNotFound, "provider \""+providerID+"\" is not registered", map[string]any{
		"provider_id": providerID,
	})
}

func BadInputError(message string) *goerrors.Error {
	return newServiceError(message, goerrors.CategoryBadInput, ServiceErrorBadInput)
}

func upstreamError(sentinel error, textCode string, message string, providerID string, status int, body []byte, cause error) *goerrors.Error {
	metadata := map[string]any{
		"provider_id": providerID,
		"status_code": status,
	}
	if len(body) > 0 {
		metadata["body"] = truncateBody(body)
	}
	if cause != nil {
		metadata["cause"] = cause.Error()
	}
	if status > 0 {
		message = message + " (" + http.StatusText(status) + ")"
	}
	err := newSentinelError(sentinel, goerrors.CategoryExternal, textCode, message, metadata)
	err.Code = upstreamHTTPStatus(status)
	return err
}

func newSentinelError(sentinel error, category goerrors.Category, textCode string, message string, metadata map[string]any) *goerrors.Error {
	err := goerrors.Wrap(sentinel, category, message).WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return ensureServiceErrorEnvelope(err)
}

func upstreamHTTPStatus(status int) int {
	if status >= http.StatusBadRequest && status <= 599 {
		return status
	}
	return http.StatusBadGateway
}

func truncateBody(body []byte) string {
	if len(body) <= maxErrorBodyBytes {
		return string(body)
	}
	cut := body[:maxErrorBodyBytes]
	for len(cut) > 0 && !utf8.Valid(cut) {
		cut = cut[:len(cut)-1]
	}
	return string(cut) + "..."
}

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrProviderNotFound):
		return newSentinelError(err, goerrors.CategoryNotFound, ServiceErrorProviderNotFound, err.Error(), nil)
	case errors.Is(err, ErrStateMismatch):
		return newSentinelError(err, goerrors.CategoryBadInput, ServiceErrorStateMismatch, err.Error(), nil)
	case errors.Is(err, ErrNoCredentials):
		return newSentinelError(err, goerrors.CategoryBadInput, ServiceErrorNoCredentials, err.Error(), nil)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "provider") && strings.Contains(msg, "not registered"):
		return newServiceError(err.Error(), goerrors.CategoryNotFound, ServiceErrorProviderNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, ServiceErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func newServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryNotFound:
		return ServiceErrorProviderNotFound
	case goerrors.CategoryExternal:
		return ServiceErrorExternalFailure
	default:
		return ServiceErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
