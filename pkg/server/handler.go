package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/phuslu/log"

	"github.com/toolfront/openapi-bridge/pkg/auth"
	"github.com/toolfront/openapi-bridge/pkg/models"
	"github.com/toolfront/openapi-bridge/pkg/services"
)

// ReloadResponse is the /reload endpoint's result shape.
type ReloadResponse struct {
	Success      bool     `json:"success"`
	ReloadedAPIs []string `json:"reloaded_apis,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// SpecRequest is the create/update body of the /specs endpoints.
type SpecRequest struct {
	Name         string `json:"name"`
	EndpointPath string `json:"endpoint_path"`
	SpecContent  string `json:"spec_content"`
	FileFormat   string `json:"file_format,omitempty"`
	APIKeyToken  string `json:"api_key_token,omitempty"`
	Active       *bool  `json:"active,omitempty"`
}

// TokenRequest carries a per-spec credential update. An empty token
// clears the stored credential.
type TokenRequest struct {
	APIKeyToken string `json:"api_key_token"`
}

// SecureAuthContextFunc builds the per-request context enricher used by
// the streamable HTTP mounts: it resolves the caller's credential
// material against the mounted spec and stores it on the context, with
// no shared state mutated.
func SecureAuthContextFunc(doc *openapi3.T, states *auth.StateManager) func(context.Context, *http.Request) context.Context {
	return func(ctx context.Context, r *http.Request) context.Context {
		var row *models.APISpec
		if states != nil {
			endpoint := strings.ToLower(strings.Trim(r.URL.Path, "/"))
			if idx := strings.Index(endpoint, "/"); idx != -1 {
				endpoint = endpoint[:idx]
			}
			if found, ok := states.GetSpec(endpoint); ok {
				row = found
			}
		}
		return auth.WithRequestAuth(ctx, auth.FromRequest(r, doc, row))
	}
}

// ManagementHandler serves the spec-store REST API.
type ManagementHandler struct {
	specs  *services.SpecService
	reload func() ([]string, error)
}

func NewManagementHandler(specs *services.SpecService, reload func() ([]string, error)) *ManagementHandler {
	return &ManagementHandler{specs: specs, reload: reload}
}

// Register mounts every management route on mux.
func (h *ManagementHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /reload", h.handleReload)
	mux.HandleFunc("GET /specs", h.handleList)
	mux.HandleFunc("POST /specs", h.handleCreate)
	mux.HandleFunc("GET /specs/{id}", h.handleGet)
	mux.HandleFunc("PUT /specs/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /specs/{id}", h.handleDelete)
	mux.HandleFunc("POST /specs/{id}/activate", h.handleSetActive(true))
	mux.HandleFunc("POST /specs/{id}/deactivate", h.handleSetActive(false))
	mux.HandleFunc("PUT /specs/{id}/token", h.handleToken)
}

func (h *ManagementHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "openapi-bridge",
	})
}

func (h *ManagementHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	reloaded, err := h.reload()
	response := ReloadResponse{Success: err == nil, ReloadedAPIs: reloaded}
	if err != nil {
		response.Error = err.Error()
		log.Warn().Err(err).Msg("reload failed")
	} else {
		log.Info().Int("count", len(reloaded)).Msg("specs reloaded")
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *ManagementHandler) handleList(w http.ResponseWriter, r *http.Request) {
	specs, err := h.specs.GetAllSpecs()
	if err != nil {
		WriteError(w, Wrap(err, ErrorTypeDatabase, "failed to list specs"))
		return
	}
	writeJSON(w, http.StatusOK, specs)
}

func (h *ManagementHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req SpecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, Wrap(err, ErrorTypeValidation, "invalid request body"))
		return
	}
	if req.Name == "" || req.EndpointPath == "" || req.SpecContent == "" {
		WriteError(w, NewError(ErrorTypeValidation, "name, endpoint_path, and spec_content are required", ""))
		return
	}

	format := req.FileFormat
	if format == "" {
		format = "yaml"
		if strings.HasPrefix(strings.TrimSpace(req.SpecContent), "{") {
			format = "json"
		}
	}
	var token *string
	if req.APIKeyToken != "" {
		token = &req.APIKeyToken
	}

	created, err := h.specs.CreateFromContent(r.Context(), req.Name, req.EndpointPath, req.SpecContent, format, token)
	if err != nil {
		WriteError(w, Wrap(err, ErrorTypeValidation, "failed to store spec"))
		return
	}
	if req.Active != nil && !*req.Active {
		if err := h.specs.DeactivateSpec(created.ID); err != nil {
			WriteError(w, Wrap(err, ErrorTypeDatabase, "failed to deactivate spec"))
			return
		}
		created.IsActive = false
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ManagementHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	spec, err := h.specs.GetSpecByID(id)
	if err != nil {
		WriteError(w, Wrap(err, ErrorTypeNotFound, "spec not found"))
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (h *ManagementHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	spec, err := h.specs.GetSpecByID(id)
	if err != nil {
		WriteError(w, Wrap(err, ErrorTypeNotFound, "spec not found"))
		return
	}

	var req SpecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, Wrap(err, ErrorTypeValidation, "invalid request body"))
		return
	}
	if req.Name != "" {
		spec.Name = req.Name
	}
	if req.EndpointPath != "" {
		spec.EndpointPath = req.EndpointPath
	}
	if req.SpecContent != "" {
		spec.SpecContent = req.SpecContent
		size := len(req.SpecContent)
		spec.FileSize = &size
	}
	if req.FileFormat != "" {
		spec.FileFormat = &req.FileFormat
	}
	if req.APIKeyToken != "" {
		spec.APIKeyToken = &req.APIKeyToken
	}
	if req.Active != nil {
		spec.IsActive = *req.Active
	}

	updated, err := h.specs.Update(spec)
	if err != nil {
		WriteError(w, Wrap(err, ErrorTypeDatabase, "failed to update spec"))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ManagementHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.specs.DeleteSpec(id); err != nil {
		WriteError(w, Wrap(err, ErrorTypeNotFound, "failed to delete spec"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *ManagementHandler) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var err error
		if active {
			err = h.specs.ActivateSpec(id)
		} else {
			err = h.specs.DeactivateSpec(id)
		}
		if err != nil {
			WriteError(w, Wrap(err, ErrorTypeNotFound, "failed to change spec state"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "active": active})
	}
}

func (h *ManagementHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, Wrap(err, ErrorTypeValidation, "invalid request body"))
		return
	}
	var token *string
	if req.APIKeyToken != "" {
		token = &req.APIKeyToken
	}
	if err := h.specs.SetAPIKeyToken(id, token); err != nil {
		WriteError(w, Wrap(err, ErrorTypeNotFound, "failed to update token"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		WriteError(w, NewError(ErrorTypeValidation, "spec id must be an integer", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// CORS wraps a handler with permissive cross-origin headers so browser
// clients can reach the management API and the mounted MCP endpoints.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
