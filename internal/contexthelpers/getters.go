package contexthelpers

import (
	"context"
)

// IsAuthenticated reports whether the request carries an authenticated
// platform session.
func IsAuthenticated(ctx context.Context) bool {
	isAuthenticated, ok := ctx.Value(IsAuthenticatedContextKey).(bool)
	if !ok {
		return false
	}

	return isAuthenticated
}

// PlatformUserID returns the fitness-platform user id established at login.
// It returns the empty string when the session is not authenticated.
func PlatformUserID(ctx context.Context) string {
	userID, ok := ctx.Value(PlatformUserIDContextKey).(string)
	if !ok {
		return ""
	}

	return userID
}

func CurrentPath(ctx context.Context) string {
	currentPath, ok := ctx.Value(CurrentPathContextKey).(string)
	if !ok {
		return ""
	}

	return currentPath
}

func CSPNonce(ctx context.Context) string {
	cspNonce, ok := ctx.Value(CspNonceContextKey).(string)
	if !ok {
		return ""
	}

	return cspNonce
}
