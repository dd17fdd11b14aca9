// Package trainer turns the user's preferences and the platform catalog into
// concrete workout recommendations with an LLM in the loop. Model output is
// never trusted: every recommendation is parsed, validated against the
// candidate set and checked for the duration constraint before it reaches
// the user or the platform.
package trainer

import (
	"github.com/myrjola/pelocoach/internal/catalog"
	"github.com/myrjola/pelocoach/internal/errors"
)

var (
	// ErrParse is returned when no JSON payload can be extracted from the
	// model's reply.
	ErrParse = errors.NewSentinel("unparseable model reply")
	// ErrValidation is returned when the model references a class id outside
	// the candidate set.
	ErrValidation = errors.NewSentinel("model selected unknown class")
	// ErrComposition is returned when the model cannot produce a selection
	// matching the requested duration even after a corrective re-prompt.
	ErrComposition = errors.NewSentinel("no duration-matching composition")
)

// ProposedWorkout is a validated recommendation ready to show to the user.
type ProposedWorkout struct {
	Classes              []catalog.Class
	Rationale            string
	TotalDurationMinutes int
}

// StackMutationRequest queues the proposed classes on the user's platform
// stack. Replace clears the stack first.
type StackMutationRequest struct {
	ClassIDs []string
	Replace  bool
}
