package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Principal is the authenticated caller attached to request contexts.
type Principal struct {
	UserID string
	Tier   string // "free" or "pro"
}

// Verifier checks a bearer token and resolves the caller.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok && p.UserID != ""
}

func ParseBearer(r *http.Request) (string, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

// TokenFromRequest accepts the Authorization header or, for WebSocket
// clients that cannot set headers, a token query parameter.
func TokenFromRequest(r *http.Request) (string, bool) {
	if token, ok := ParseBearer(r); ok {
		return token, true
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		return "", false
	}
	return token, true
}
