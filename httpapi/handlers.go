package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	gocmd "github.com/goliatone/go-command"
	integrationscommand "github.com/goliatone/go-integrations/command"
	"github.com/goliatone/go-integrations/core"
	integrationsquery "github.com/goliatone/go-integrations/query"
)

func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"Ping": "Pong"})
}

// authorize answers with the provider URL as a bare JSON string.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	collector := gocmd.NewResult[core.AuthorizeResponse]()
	err := s.facade.Commands().Authorize.Execute(gocmd.ContextWithResult(r.Context(), collector), integrationscommand.AuthorizeMessage{
		Request: core.AuthorizeRequest{
			ProviderID: r.PostFormValue("integration_type"),
			UserID:     r.PostFormValue("user_id"),
			OrgID:      r.PostFormValue("org_id"),
		},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	response, _ := collector.Load()
	writeJSON(w, http.StatusOK, response.URL)
}

func (s *Server) oauth2Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	err := s.facade.Commands().CompleteCallback.Execute(r.Context(), integrationscommand.CompleteCallbackMessage{
		Request: core.CallbackRequest{
			ProviderID:       query.Get("integration_type"),
			Code:             query.Get("code"),
			State:            query.Get("state"),
			Error:            query.Get("error"),
			ErrorDescription: query.Get("error_description"),
		},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(callbackClosePage))
}

func (s *Server) credentials(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	collector := gocmd.NewResult[core.Credentials]()
	err := s.facade.Commands().GetCredentials.Execute(gocmd.ContextWithResult(r.Context(), collector), integrationscommand.GetCredentialsMessage{
		Request: core.CredentialsRequest{
			ProviderID: r.PostFormValue("integration_type"),
			UserID:     r.PostFormValue("user_id"),
			OrgID:      r.PostFormValue("org_id"),
		},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	credentials, _ := collector.Load()
	writeJSON(w, http.StatusOK, credentials)
}

// loadItems takes the credentials object returned by /credentials as a
// JSON encoded form field.
func (s *Server) loadItems(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	var credentials core.Credentials
	raw := strings.TrimSpace(r.PostFormValue("credentials"))
	if raw == "" {
		s.writeError(w, r, core.BadInputError("credentials are required"))
		return
	}
	if err := json.Unmarshal([]byte(raw), &credentials); err != nil {
		s.writeError(w, r, core.BadInputError("credentials must be a JSON object"))
		return
	}

	items, err := s.facade.Queries().ListItems.Query(r.Context(), integrationsquery.ListItemsMessage{
		Request: core.ListItemsRequest{
			ProviderID:  r.PostFormValue("integration_type"),
			Credentials: credentials,
		},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []core.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) providers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.facade.Queries().ListProviders.Query(r.Context(), integrationsquery.ListProvidersMessage{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"providers": ids})
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, core.BadInputError("invalid form body"))
		return false
	}
	return true
}
