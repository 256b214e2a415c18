package middleware

import (
	"certo/internal/model"
	"certo/internal/service"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

const (
	ResearcherIDKey contextKey = "researcherId"
	ParticipantKey  contextKey = "participant"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireResearcher validates researcher JWT from Authorization header
func (m *AuthMiddleware) RequireResearcher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			unauthorized(w, "missing authorization header")
			return
		}

		claims, err := m.authSvc.ValidateResearcherToken(token)
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ResearcherIDKey, claims.ResearcherID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireParticipant validates a participant JWT and loads its session
func (m *AuthMiddleware) RequireParticipant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			unauthorized(w, "missing authorization header")
			return
		}

		p, err := m.authSvc.ValidateParticipantToken(r.Context(), token)
		switch {
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrSessionExpired):
			unauthorized(w, err.Error())
			return
		case err != nil:
			writeJSONError(w, http.StatusServiceUnavailable, "session store unavailable", "unavailable")
			return
		}

		ctx := context.WithValue(r.Context(), ParticipantKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetResearcherID extracts researcher ID from context
func GetResearcherID(ctx context.Context) string {
	if v, ok := ctx.Value(ResearcherIDKey).(string); ok {
		return v
	}
	return ""
}

// GetParticipant extracts the participant from context
func GetParticipant(ctx context.Context) *model.Participant {
	if v, ok := ctx.Value(ParticipantKey).(*model.Participant); ok {
		return v
	}
	return nil
}

// WithParticipant returns a context carrying p
func WithParticipant(ctx context.Context, p *model.Participant) context.Context {
	return context.WithValue(ctx, ParticipantKey, p)
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func unauthorized(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusUnauthorized, message, "unauthorized")
}

func writeJSONError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
