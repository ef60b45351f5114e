package transport

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-integrations/core"
)

// failure classifies what went wrong before a provider response could be
// handed back. Non-2xx responses are not failures here.
type failure struct {
	category goerrors.Category
	code     int
	textCode string
}

var (
	// badRequest: the request could not be built (missing or relative URL).
	badRequest = failure{goerrors.CategoryBadInput, http.StatusBadRequest, core.ServiceErrorBadInput}
	// unreachable: dial, timeout, read or body limit errors.
	unreachable = failure{goerrors.CategoryExternal, http.StatusBadGateway, core.ServiceErrorExternalFailure}
	// misconfigured: the adapter itself is unusable.
	misconfigured = failure{goerrors.CategoryInternal, http.StatusInternalServerError, core.ServiceErrorInternal}
)

func (f failure) wrap(cause error, message string, meta map[string]any) error {
	var err *goerrors.Error
	if cause == nil {
		err = goerrors.New(message, f.category)
	} else {
		err = goerrors.Wrap(cause, f.category, message)
	}
	err = err.WithCode(f.code).WithTextCode(f.textCode)
	if len(meta) > 0 {
		err = err.WithMetadata(meta)
	}
	return err
}
