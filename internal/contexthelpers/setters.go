package contexthelpers

import (
	"context"
	"net/http"
)

// AuthenticateContext marks the request as backed by a live platform session.
// The values are constructed at turn start in the session middleware and
// discarded with the request context at turn end.
func AuthenticateContext(r *http.Request, platformUserID string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, IsAuthenticatedContextKey, true)
	ctx = context.WithValue(ctx, PlatformUserIDContextKey, platformUserID)
	return r.WithContext(ctx)
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CurrentPathContextKey, currentPath)
	return r.WithContext(ctx)
}

func SetCSPNonce(r *http.Request, cspNonce string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CspNonceContextKey, cspNonce)
	return r.WithContext(ctx)
}
