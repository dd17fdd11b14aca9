package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/pelocoach/internal/platform"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", slog.Any("error", err))
	app.render(w, r, http.StatusInternalServerError, "error", newBaseTemplateData(r))
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusNotFound, "not-found", newBaseTemplateData(r))
}

// redirect detects if the request is originating from a fetch API call or a top-level navigation and points the user
// to the correct URL.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("Sec-Fetch-Dest") == "empty" {
		w.Header().Set("Content-Location", path)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, path, http.StatusSeeOther)
}

// platformSession reconstructs the platform session stored at login.
func (app *application) platformSession(r *http.Request) platform.Session {
	ctx := r.Context()
	return platform.Session{
		UserID: app.sessionManager.GetString(ctx, sessionKeyPlatformUserID),
		Token:  app.sessionManager.GetString(ctx, sessionKeyPlatformToken),
	}
}
