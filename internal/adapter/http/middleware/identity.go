package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/infrastructure/auth"
	"github.com/iho/goauction/internal/infrastructure/metrics"
)

// UserIDHeader carries the caller identity when token auth is disabled.
const UserIDHeader = "X-User-ID"

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// IdentityMiddleware resolves the caller and stores it on the request context.
// Requests without credentials pass through anonymously; use cases reject
// anonymous callers where identity is required.
type IdentityMiddleware struct {
	verifier TokenVerifier
	metrics  *metrics.Metrics
}

// NewIdentityMiddleware creates an IdentityMiddleware. A nil verifier trusts
// the X-User-ID header, which is only meant for development.
func NewIdentityMiddleware(verifier TokenVerifier, m *metrics.Metrics) *IdentityMiddleware {
	return &IdentityMiddleware{verifier: verifier, metrics: m}
}

// Wrap wraps an http.Handler with identity resolution.
func (m *IdentityMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.verifier == nil {
			if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
				r = r.WithContext(domain.ContextWithCaller(r.Context(), domain.Caller{UserID: id}))
			}
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.fail(w, "malformed_header", "invalid authorization header format")
			return
		}

		claims, err := m.verifier.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, auth.ErrTokenExpired) {
				reason = "expired_token"
			}
			m.fail(w, reason, err.Error())
			return
		}

		ctx := domain.ContextWithCaller(r.Context(), domain.Caller{UserID: claims.UserID, Email: claims.Email})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *IdentityMiddleware) fail(w http.ResponseWriter, reason, message string) {
	if m.metrics != nil {
		m.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
	writeError(w, http.StatusUnauthorized, string(domain.KindUnauthenticated), message)
}
