package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/myrjola/pelocoach/internal/prefs"
)

type preferencesTemplateData struct {
	BaseTemplateData
	Preferences prefs.Preferences
	Saved       bool
}

func (app *application) preferencesGET(w http.ResponseWriter, r *http.Request) {
	preferences, err := app.prefsService.Get(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := preferencesTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Preferences:      preferences,
		Saved:            false,
	}
	app.render(w, r, http.StatusOK, "preferences", data)
}

// preferencesPOST saves the member's preferences wholesale. Saved preferences
// change the candidate pool, so the trainer caches are invalidated afterwards.
func (app *application) preferencesPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	duration, err := strconv.Atoi(r.PostForm.Get("preferred_duration_minutes"))
	if err != nil || duration <= 0 {
		http.Error(w, "preferred duration must be a positive number of minutes", http.StatusBadRequest)
		return
	}

	preferences := prefs.Preferences{
		FitnessGoals:             splitLines(r.PostForm.Get("fitness_goals")),
		PreferredDurationMinutes: duration,
		ExcludedDisciplines:      splitLines(r.PostForm.Get("excluded_disciplines")),
		FavoriteInstructors:      splitLines(r.PostForm.Get("favorite_instructors")),
		PreferredIntensity:       r.PostForm.Get("preferred_intensity"),
	}
	if err = app.prefsService.Set(r.Context(), preferences); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.trainerService.InvalidateCaches()

	data := preferencesTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Preferences:      preferences,
		Saved:            true,
	}
	app.render(w, r, http.StatusOK, "preferences", data)
}

// splitLines parses a textarea into a list, one entry per line.
func splitLines(value string) []string {
	var entries []string
	for line := range strings.Lines(value) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			entries = append(entries, trimmed)
		}
	}
	return entries
}
