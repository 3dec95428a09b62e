package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
)

// HeaderAPIKey carries a client API key.  "Authorization: Bearer <key>" is
// accepted as well.
const HeaderAPIKey = "X-API-Key"

type contextKey int

const apiKeyIDContextKey contextKey = iota

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// Keys are the accepted API keys.  An empty list disables authentication.
	Keys []string

	// SkipPaths bypass authentication, including their sub-paths.
	SkipPaths []string
}

// APIKeyAuth checks callers against a static key list.
type APIKeyAuth struct {
	keys   [][]byte
	config AuthConfig
	logger logging.Logger
}

// NewAPIKeyAuth builds the middleware.  Blank keys are ignored.
func NewAPIKeyAuth(config AuthConfig, logger logging.Logger) *APIKeyAuth {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a := &APIKeyAuth{config: config, logger: logger}
	for _, k := range config.Keys {
		if k = strings.TrimSpace(k); k != "" {
			a.keys = append(a.keys, []byte(k))
		}
	}
	return a
}

// Enabled reports whether any key is configured.
func (a *APIKeyAuth) Enabled() bool { return len(a.keys) > 0 }

// Authenticate rejects requests without a valid key with 401.  It passes
// everything through when no key is configured.
func (a *APIKeyAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() || a.shouldSkip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := extractAPIKey(r)
		if key == "" {
			writeUnauthorized(w, r, "authentication required")
			return
		}
		if !a.valid(key) {
			logging.ForContext(r.Context(), a.logger).Warn("rejected API key",
				logging.String("path", r.URL.Path),
				logging.String("key_id", KeyID(key)))
			writeUnauthorized(w, r, "invalid API key")
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyIDContextKey, KeyID(key))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// valid compares against every key so timing does not reveal a match
// position.
func (a *APIKeyAuth) valid(key string) bool {
	candidate := []byte(key)
	match := 0
	for _, k := range a.keys {
		match |= subtle.ConstantTimeCompare(candidate, k)
	}
	return match == 1
}

func (a *APIKeyAuth) shouldSkip(path string) bool {
	for _, skip := range a.config.SkipPaths {
		if path == skip || strings.HasPrefix(path, strings.TrimSuffix(skip, "/")+"/") {
			return true
		}
	}
	return false
}

// KeyID is a short non-reversible identifier of key, safe to log and to use
// as a rate limit bucket.
func KeyID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}

// ContextGetKeyID returns the authenticated key's id, or "".
func ContextGetKeyID(ctx context.Context) string {
	id, _ := ctx.Value(apiKeyIDContextKey).(string)
	return id
}

func extractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="massing-sim"`)
	writeError(w, r, http.StatusUnauthorized, string(errors.ErrCodeUnauthorized), message)
}

//Personal.AI order the ending
