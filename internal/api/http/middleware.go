package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"vehicle-checkpoint-backend/internal/config"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/security"
)

type contextKey int

const claimsKey contextKey = iota

// AuthMiddleware checks the bearer token against the security level of the matched route.
type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		level := config.GetSecurityLevel(name)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authorization token is not provided"})
			return
		}
		claims, err := m.tokenManager.ValidateToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token: " + err.Error()})
			return
		}
		if level == config.SecuritySupervisor && !claims.HasRole(security.RoleSupervisor) {
			logger.Warn("Supervisor route denied", "route", name, "operator_id", claims.OperatorID)
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "supervisor role required"})
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	// Remove Bearer prefix if present
	if len(h) > 7 && strings.ToUpper(h[0:7]) == "BEARER " {
		return h[7:]
	}
	return h
}

// OperatorFromContext returns the authenticated operator's claims.
func OperatorFromContext(ctx context.Context) (*security.OperatorClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*security.OperatorClaims)
	return claims, ok
}

func operatorID(r *http.Request) string {
	if claims, ok := OperatorFromContext(r.Context()); ok {
		return claims.OperatorID
	}
	return ""
}
