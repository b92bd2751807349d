package middleware

import (
	"context"
	"net/http"
	"strings"

	"mintgate-api/internal/model"
	"mintgate-api/internal/service"
	"mintgate-api/pkg/apierror"
)

// OperatorKey is the key for storing operator session data in request context.
const OperatorKey contextKey = "operator"

// AuthConfig holds configuration for the operator auth middleware.
type AuthConfig struct {
	TokenService *service.TokenService
	APIKeys      []string
}

// NewOperatorAuth creates the authentication middleware guarding the
// operator surface (catalog and window mutation). Dependencies are injected
// via closure; there is no global state. A session token (X-Token) is tried
// first, then a static API key (X-API-Key or bearer).
func NewOperatorAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Token")
			if token != "" && cfg.TokenService != nil {
				data, err := cfg.TokenService.ValidateToken(r.Context(), token)
				if err != nil {
					writeError(w, apierror.Unauthorized("Invalid or expired session token"))
					return
				}
				ctx := context.WithValue(r.Context(), OperatorKey, data)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					apiKey = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if apiKey == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Use X-Token or X-API-Key header."))
				return
			}

			for _, valid := range cfg.APIKeys {
				if valid != "" && apiKey == valid {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, apierror.Unauthorized("Invalid API key"))
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// OperatorFromContext retrieves the operator session from request context.
func OperatorFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(OperatorKey).(*model.TokenData); ok {
		return data
	}
	return nil
}
