package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
)

const APIKeyHeader = "X-API-Key"

// APIKeyValidator checks an API key presented by a client.
type APIKeyValidator interface {
	IsValid(ctx context.Context, key string) (bool, error)
}

// StaticKeys accepts a fixed set of keys.
type StaticKeys []string

// IsValid compares key against every configured key in constant time.
func (s StaticKeys) IsValid(_ context.Context, key string) (bool, error) {
	valid := false
	for _, k := range s {
		if k != "" && subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			valid = true
		}
	}
	return valid, nil
}

// Auth is a middleware factory that returns a new authentication middleware.
// It checks for a valid API key in the X-API-Key header.
func Auth(validator APIKeyValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				logger.Warn("API key missing from request", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: API key required", http.StatusUnauthorized)
				return
			}

			isValid, err := validator.IsValid(r.Context(), apiKey)
			if err != nil {
				logger.Error("failed to validate API key", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			if !isValid {
				logger.Warn("invalid API key provided", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
