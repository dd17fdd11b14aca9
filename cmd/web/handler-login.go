package main

import (
	"fmt"
	"log/slog"
	"net/http"
)

// loginPOST authenticates against the fitness platform with the member's
// credentials and stores the resulting session. Credentials are never
// persisted; only the platform session token and user id live in the web
// session.
func (app *application) loginPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	sess, err := app.platformClient.Authenticate(r.Context(), username, password)
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "platform login failed", slog.Any("error", err))
		http.Error(w, "login failed", http.StatusUnauthorized)
		return
	}

	// Rotate the session token on privilege change.
	if err = app.sessionManager.RenewToken(r.Context()); err != nil {
		app.serverError(w, r, fmt.Errorf("renew session token: %w", err))
		return
	}
	app.sessionManager.Put(r.Context(), sessionKeyPlatformUserID, sess.UserID)
	app.sessionManager.Put(r.Context(), sessionKeyPlatformToken, sess.Token)

	redirect(w, r, "/")
}

// logoutPOST drops the platform session.
func (app *application) logoutPOST(w http.ResponseWriter, r *http.Request) {
	if err := app.sessionManager.Destroy(r.Context()); err != nil {
		app.serverError(w, r, fmt.Errorf("destroy session: %w", err))
		return
	}
	redirect(w, r, "/")
}
