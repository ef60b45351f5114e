package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-integrations/core"
)

const invalidIntegrationType = "Invalid integration type"

type errorResponse struct {
	Detail    string         `json:"detail"`
	TextCode  string         `json:"text_code,omitempty"`
	Category  string         `json:"category,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders the go-errors envelope. An unknown provider is reported
// as a bad request with the fixed detail the front-end matches on.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := errorResponse{
		Detail:    "An unexpected error occurred",
		TextCode:  core.ServiceErrorInternal,
		RequestID: middleware.GetReqID(r.Context()),
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if rich.Code > 0 {
			status = rich.Code
		}
		body.Detail = rich.Message
		body.TextCode = rich.TextCode
		body.Category = string(rich.Category)
		body.Metadata = rich.Metadata
	}
	if errors.Is(err, core.ErrProviderNotFound) {
		status = http.StatusBadRequest
		body.Detail = invalidIntegrationType
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("integration request failed",
			"path", r.URL.Path,
			"status", status,
			"request_id", body.RequestID,
			"error", err.Error(),
		)
	}
	writeJSON(w, status, body)
}
