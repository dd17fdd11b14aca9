package main

import (
	"net/http"

	"github.com/myrjola/pelocoach/internal/platform"
)

type stackTemplateData struct {
	BaseTemplateData
	Entries []platform.StackEntry
}

// stackGET shows the classes queued on the member's platform stack.
func (app *application) stackGET(w http.ResponseWriter, r *http.Request) {
	entries, err := app.trainerService.Stack(r.Context(), app.platformSession(r))
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := stackTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Entries:          entries,
	}
	app.render(w, r, http.StatusOK, "stack", data)
}

func (app *application) stackClearPOST(w http.ResponseWriter, r *http.Request) {
	if err := app.trainerService.ClearStack(r.Context(), app.platformSession(r)); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/stack")
}
