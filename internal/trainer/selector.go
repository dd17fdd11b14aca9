package trainer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/myrjola/pelocoach/internal/catalog"
	"github.com/myrjola/pelocoach/internal/errors"
	"github.com/myrjola/pelocoach/internal/prefs"
)

// selectGoal matches the user's message to one of their named goals. The
// prompt carries the member's recent activity and preference text so the
// model can steer away from what they just did. The model must answer from
// the closed vocabulary of goal names; an off-list reply gets one corrective
// retry, after which fallbackGoal picks one so a flaky model never blocks a
// recommendation.
func (s *Service) selectGoal(
	ctx context.Context,
	goals []prefs.Goal,
	preferences prefs.Preferences,
	recentActivity []catalog.ActivityEntry,
	userMessage string,
) (prefs.Goal, error) {
	if len(goals) == 0 {
		return prefs.Goal{}, errors.New("no goals defined")
	}

	userPrompt := goalSelectionPrompt(goals, preferences, recentActivity, userMessage)
	reply, err := s.llm.complete(ctx, goalSelectionSystemPrompt, userPrompt)
	if err != nil {
		return prefs.Goal{}, errors.Wrap(err, "goal selection")
	}
	if goal, ok := matchGoal(goals, reply); ok {
		return goal, nil
	}

	retryReply, err := s.llm.continueExchange(ctx,
		goalSelectionSystemPrompt, userPrompt, reply, goalSelectionRetryPrompt(goals))
	if err != nil {
		return prefs.Goal{}, errors.Wrap(err, "goal selection retry")
	}
	if goal, ok := matchGoal(goals, retryReply); ok {
		return goal, nil
	}

	fallback := fallbackGoal(goals, preferences)
	s.logger.LogAttrs(ctx, slog.LevelWarn, "goal selection fell back",
		slog.String("reply", retryReply), slog.String("goal", fallback.Name))
	return fallback, nil
}

// fallbackGoal is the selection of last resort: the member's first stored
// fitness goal when it names a known goal definition, otherwise the first
// definition.
func fallbackGoal(goals []prefs.Goal, preferences prefs.Preferences) prefs.Goal {
	if len(preferences.FitnessGoals) > 0 {
		if goal, ok := matchGoal(goals, preferences.FitnessGoals[0]); ok {
			return goal
		}
	}
	return goals[0]
}

// matchGoal matches a reply to a goal name, tolerating case and surrounding
// punctuation but nothing looser.
func matchGoal(goals []prefs.Goal, reply string) (prefs.Goal, bool) {
	cleaned := strings.ToLower(strings.Trim(strings.TrimSpace(reply), `"'.`))
	for _, goal := range goals {
		if strings.ToLower(goal.Name) == cleaned {
			return goal, true
		}
	}
	return prefs.Goal{}, false
}
