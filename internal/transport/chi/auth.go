package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/imgdex/internal/logger"
)

// authenticator checks bearer tokens against a fixed key set.
type authenticator struct {
	keys   [][]byte
	exempt map[string]struct{}
}

// BearerAuthMiddleware returns a middleware that requires "Authorization: Bearer <key>"
// on every path except exempt ones. Empty keys are ignored; with no keys left the
// middleware is a pass-through.
func BearerAuthMiddleware(apiKeys []string, exempt ...string) func(http.Handler) http.Handler {
	a := &authenticator{exempt: make(map[string]struct{}, len(exempt))}
	for _, k := range apiKeys {
		if k != "" {
			a.keys = append(a.keys, []byte(k))
		}
	}
	for _, p := range exempt {
		a.exempt[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		if len(a.keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := a.exempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if reason := a.reject(r.Header.Get("Authorization")); reason != "" {
				logpkg.FromContext(r.Context()).Warn("Request rejected",
					zap.String("path", r.URL.Path), zap.String("reason", reason))
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// reject returns why header does not authenticate, or "" when it does.
func (a *authenticator) reject(header string) string {
	if header == "" {
		return "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "authorization header must use Bearer scheme"
	}
	if !a.matches([]byte(strings.TrimSpace(token))) {
		return "invalid api key"
	}
	return ""
}

// matches compares token with every key in constant time.
func (a *authenticator) matches(token []byte) bool {
	match := 0
	for _, k := range a.keys {
		match |= subtle.ConstantTimeCompare(k, token)
	}
	return match == 1
}
