package handler

import (
	"certo/internal/model"
	"certo/internal/service"
	"certo/internal/transport/rest/middleware"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
)

// AuthHandler handles researcher login and participant sessions
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authSvc.Login(req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// StartSessionRequest optionally carries a World ID token to verify right away
type StartSessionRequest struct {
	WorldIDToken string `json:"worldIdToken,omitempty"`
}

// StartParticipant handles POST /v1/auth/participant
func (h *AuthHandler) StartParticipant(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	resp, err := h.authSvc.StartParticipantSession(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if req.WorldIDToken != "" {
		p, err := h.authSvc.AttachCredential(r.Context(), resp.Participant, service.ProviderWorldID, req.WorldIDToken)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp.Participant = p
	}

	writeJSON(w, http.StatusCreated, resp)
}

// CredentialRequest carries a provider token
type CredentialRequest struct {
	Token string `json:"token"`
}

// AttachCredential handles POST /v1/participant/credentials/{provider}
func (h *AuthHandler) AttachCredential(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetParticipant(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	var req CredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.authSvc.AttachCredential(r.Context(), p, mux.Vars(r)["provider"], req.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
