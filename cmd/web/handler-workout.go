package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/myrjola/pelocoach/internal/trainer"
)

type workoutTemplateData struct {
	BaseTemplateData
	Workout trainer.ProposedWorkout
	Problem string
}

// generateWorkoutPOST produces a one-shot workout recommendation from the
// member's message and shows it with a queue form.
func (app *application) generateWorkoutPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}
	message := r.PostForm.Get("message")
	if message == "" {
		message = "Pick me a workout for today."
	}

	workout, err := app.trainerService.GenerateWorkout(r.Context(), app.platformSession(r), message)
	if err != nil {
		data := workoutTemplateData{
			BaseTemplateData: newBaseTemplateData(r),
			Workout:          trainer.ProposedWorkout{},
			Problem:          workoutProblem(err),
		}
		if data.Problem == "" {
			app.serverError(w, r, err)
			return
		}
		app.render(w, r, http.StatusOK, "workout", data)
		return
	}

	proposedIDs := make([]string, 0, len(workout.Classes))
	for _, class := range workout.Classes {
		proposedIDs = append(proposedIDs, class.ID)
	}
	encoded, err := json.Marshal(proposedIDs)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("encode proposal: %w", err))
		return
	}
	app.sessionManager.Put(r.Context(), sessionKeyProposedClassIDs, string(encoded))

	data := workoutTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Workout:          workout,
		Problem:          "",
	}
	app.render(w, r, http.StatusOK, "workout", data)
}

// queueWorkoutPOST queues the selected classes on the member's stack. Only
// classes from the recommendation stored in the session can be queued; the
// reconciler's guarantees would be worthless if the form could smuggle in
// arbitrary ids.
func (app *application) queueWorkoutPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	proposalJSON := app.sessionManager.GetString(r.Context(), sessionKeyProposedClassIDs)
	req, err := queueRequestFromProposal(proposalJSON,
		r.PostForm["class_id"], r.PostForm.Get("replace") == "true")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := app.trainerService.QueueWorkout(r.Context(), app.platformSession(r), req); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.sessionManager.Remove(r.Context(), sessionKeyProposedClassIDs)

	redirect(w, r, "/stack")
}

// queueRequestFromProposal builds a stack mutation from the submitted ids,
// admitting only ids from the proposal the member was shown.
func queueRequestFromProposal(proposalJSON string, formIDs []string, replace bool) (trainer.StackMutationRequest, error) {
	if proposalJSON == "" {
		return trainer.StackMutationRequest{}, errors.New("no workout proposal pending")
	}
	var proposed []string
	if err := json.Unmarshal([]byte(proposalJSON), &proposed); err != nil {
		return trainer.StackMutationRequest{}, fmt.Errorf("decode proposal: %w", err)
	}
	allowed := make(map[string]struct{}, len(proposed))
	for _, id := range proposed {
		allowed[id] = struct{}{}
	}

	if len(formIDs) == 0 {
		return trainer.StackMutationRequest{}, errors.New("no classes selected")
	}
	for _, id := range formIDs {
		if _, ok := allowed[id]; !ok {
			return trainer.StackMutationRequest{}, fmt.Errorf("class %s is not part of the proposed workout", id)
		}
	}
	return trainer.StackMutationRequest{ClassIDs: formIDs, Replace: replace}, nil
}

// workoutProblem maps recommendation failures the member can act on to a
// message; infrastructure failures return "" and get the error page.
func workoutProblem(err error) string {
	switch {
	case errors.Is(err, trainer.ErrComposition):
		return "I could not put together a workout matching your preferred duration. " +
			"Try a different duration or relax your excluded disciplines."
	case errors.Is(err, trainer.ErrValidation), errors.Is(err, trainer.ErrParse):
		return "The recommendation came back garbled. Please try again."
	default:
		return ""
	}
}
