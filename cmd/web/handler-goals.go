package main

import (
	"fmt"
	"net/http"

	"github.com/myrjola/pelocoach/internal/prefs"
)

type goalsTemplateData struct {
	BaseTemplateData
	Goals []prefs.Goal
}

func (app *application) goalsGET(w http.ResponseWriter, r *http.Request) {
	goals, err := app.prefsService.Goals(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := goalsTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Goals:            goals,
	}
	app.render(w, r, http.StatusOK, "goals", data)
}

// goalSavePOST creates or replaces a goal definition by name.
func (app *application) goalSavePOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	goal := prefs.Goal{
		Name:       r.PostForm.Get("name"),
		Goal:       r.PostForm.Get("goal"),
		ClassTypes: splitLines(r.PostForm.Get("class_types")),
	}
	if goal.Name == "" || goal.Goal == "" {
		http.Error(w, "goal name and description are required", http.StatusBadRequest)
		return
	}
	if len(goal.ClassTypes) == 0 {
		http.Error(w, "at least one class type is required", http.StatusBadRequest)
		return
	}

	if err := app.prefsService.SetGoal(r.Context(), goal); err != nil {
		app.serverError(w, r, err)
		return
	}

	redirect(w, r, "/goals")
}

func (app *application) goalDeletePOST(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		app.notFound(w, r)
		return
	}

	if err := app.prefsService.DeleteGoal(r.Context(), name); err != nil {
		app.serverError(w, r, err)
		return
	}

	redirect(w, r, "/goals")
}
