package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/pelocoach/internal/catalog"
	"github.com/myrjola/pelocoach/internal/errors"
	"github.com/myrjola/pelocoach/internal/prefs"
)

// validationError reports ids the model picked outside the candidate set.
type validationError struct {
	unknownIDs []string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("unknown class ids: %s", strings.Join(e.unknownIDs, ", "))
}

func (e *validationError) Unwrap() error { return ErrValidation }

// compositionError reports a selection whose durations do not sum to the
// target.
type compositionError struct {
	selectedMinutes int
	targetMinutes   int
}

func (e *compositionError) Error() string {
	return fmt.Sprintf("selection totals %d minutes, want %d", e.selectedMinutes, e.targetMinutes)
}

func (e *compositionError) Unwrap() error { return ErrComposition }

// compose asks the model for a class selection and reconciles the reply
// against the candidate set and the duration constraint. An off-list id or a
// wrong duration sum earns exactly one corrective re-prompt.
func (s *Service) compose(
	ctx context.Context,
	candidates []catalog.Class,
	recentActivity []catalog.ActivityEntry,
	preferences prefs.Preferences,
	goal prefs.Goal,
	targetMinutes int,
) (ProposedWorkout, error) {
	if len(candidates) == 0 {
		return ProposedWorkout{}, errors.Wrap(ErrComposition, "no candidate classes")
	}

	userPrompt, err := recommendationPrompt(candidates, recentActivity, preferences, goal, targetMinutes)
	if err != nil {
		return ProposedWorkout{}, errors.Wrap(err, "build recommendation prompt")
	}

	reply, err := s.llm.complete(ctx, trainerSystemPrompt, userPrompt)
	if err != nil {
		return ProposedWorkout{}, errors.Wrap(err, "recommendation request")
	}

	workout, reconcileErr := reconcile(reply, candidates, targetMinutes)
	if reconcileErr == nil {
		return workout, nil
	}

	followUp, retryable := retryPromptFor(reconcileErr)
	if !retryable {
		return ProposedWorkout{}, reconcileErr
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "re-prompting after failed reconciliation",
		slog.Any("error", reconcileErr))

	retryReply, err := s.llm.continueExchange(ctx, trainerSystemPrompt, userPrompt, reply, followUp)
	if err != nil {
		return ProposedWorkout{}, errors.Wrap(err, "recommendation retry request")
	}

	workout, reconcileErr = reconcile(retryReply, candidates, targetMinutes)
	if reconcileErr != nil {
		return ProposedWorkout{}, reconcileErr
	}
	return workout, nil
}

// reconcile turns a raw model reply into a validated workout. Every class id
// must come from the candidate set and the durations must sum exactly to the
// target. Duplicate ids collapse to a single pick.
func reconcile(reply string, candidates []catalog.Class, targetMinutes int) (ProposedWorkout, error) {
	sel, err := parseSelection(reply)
	if err != nil {
		return ProposedWorkout{}, err
	}

	byID := make(map[string]catalog.Class, len(candidates))
	for _, class := range candidates {
		byID[class.ID] = class
	}

	var (
		classes    []catalog.Class
		unknownIDs []string
		seen       = make(map[string]bool, len(sel.ClassIDs))
		total      int
	)
	for _, id := range sel.ClassIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		class, ok := byID[id]
		if !ok {
			unknownIDs = append(unknownIDs, id)
			continue
		}
		classes = append(classes, class)
		total += class.DurationMinutes
	}
	if len(unknownIDs) > 0 {
		return ProposedWorkout{}, &validationError{unknownIDs: unknownIDs}
	}
	if total != targetMinutes {
		return ProposedWorkout{}, &compositionError{selectedMinutes: total, targetMinutes: targetMinutes}
	}

	return ProposedWorkout{
		Classes:              classes,
		Rationale:            sel.Rationale,
		TotalDurationMinutes: total,
	}, nil
}

// retryPromptFor maps a reconciliation failure to its corrective follow-up.
// Parse failures are not retried; a reply without JSON means the exchange
// has gone off the rails.
func retryPromptFor(err error) (string, bool) {
	var (
		valErr  *validationError
		compErr *compositionError
	)
	switch {
	case errors.As(err, &valErr):
		return validationRetryPrompt(valErr.unknownIDs), true
	case errors.As(err, &compErr):
		return compositionRetryPrompt(compErr.selectedMinutes, compErr.targetMinutes), true
	default:
		return "", false
	}
}
