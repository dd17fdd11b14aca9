package trainer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/myrjola/pelocoach/internal/catalog"
	"github.com/myrjola/pelocoach/internal/prefs"
)

const trainerSystemPrompt = `You are a personal trainer who recommends workout classes from a fitness platform catalog. You only ever recommend classes from the candidate list you are given. You never invent classes or class ids.`

const goalSelectionSystemPrompt = `You are a personal trainer matching a member's request to one of their named training goals. Reply with exactly one goal name from the list, nothing else.`

// goalSelectionPrompt asks the model to pick one goal name from the closed
// vocabulary, given what the member said, what they have trained lately and
// the priorities they wrote down.
func goalSelectionPrompt(
	goals []prefs.Goal,
	preferences prefs.Preferences,
	recentActivity []catalog.ActivityEntry,
	userMessage string,
) string {
	var b strings.Builder
	b.WriteString("The member said:\n\n")
	b.WriteString(userMessage)
	b.WriteString("\n\nTheir named goals are:\n")
	for _, goal := range goals {
		fmt.Fprintf(&b, "- %s: %s\n", goal.Name, goal.Goal)
	}
	if len(preferences.FitnessGoals) > 0 {
		fmt.Fprintf(&b, "\nTheir stated priorities, most important first: %s.\n",
			strings.Join(preferences.FitnessGoals, ", "))
	}
	if preferences.PreferredIntensity != "" {
		fmt.Fprintf(&b, "They like %s intensity.\n", preferences.PreferredIntensity)
	}
	if len(recentActivity) > 0 {
		b.WriteString("\nWorkouts they took recently:\n")
		for _, entry := range recentActivity {
			fmt.Fprintf(&b, "- %s (%s) on %s\n", entry.Title, entry.Discipline, entry.Date.Format("2006-01-02"))
		}
	}
	b.WriteString("\nReply with exactly one goal name from the list above.")
	return b.String()
}

func goalSelectionRetryPrompt(goals []prefs.Goal) string {
	names := make([]string, 0, len(goals))
	for _, goal := range goals {
		names = append(names, goal.Name)
	}
	return fmt.Sprintf(
		"That was not one of the goal names. Reply with exactly one of: %s. No other text.",
		strings.Join(names, ", "))
}

// recommendationPrompt asks the model to compose a workout from the
// candidates whose durations sum exactly to the target.
func recommendationPrompt(
	candidates []catalog.Class,
	recentActivity []catalog.ActivityEntry,
	preferences prefs.Preferences,
	goal prefs.Goal,
	targetMinutes int,
) (string, error) {
	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The member's goal: %s\n\n", goal.Goal)
	fmt.Fprintf(&b, "Compose a workout of one or more classes whose durations sum to exactly %d minutes.\n\n",
		targetMinutes)

	if len(preferences.FavoriteInstructors) > 0 {
		fmt.Fprintf(&b, "They prefer classes by: %s.\n", strings.Join(preferences.FavoriteInstructors, ", "))
	}
	if preferences.PreferredIntensity != "" {
		fmt.Fprintf(&b, "They like %s intensity.\n", preferences.PreferredIntensity)
	}
	if len(recentActivity) > 0 {
		b.WriteString("Avoid repeating classes they took recently:\n")
		for _, entry := range recentActivity {
			fmt.Fprintf(&b, "- %s (%s) on %s\n", entry.Title, entry.Discipline, entry.Date.Format("2006-01-02"))
		}
	}

	b.WriteString("\nCandidate classes (JSON):\n")
	b.Write(candidatesJSON)
	b.WriteString("\n\nReply with JSON only, in this shape:\n")
	b.WriteString(`{"class_ids": ["<id from the candidate list>", ...], "rationale": "<one short paragraph>"}`)
	return b.String(), nil
}

// compositionRetryPrompt tells the model what its last selection summed to
// and restates the constraint.
func compositionRetryPrompt(selectedMinutes, targetMinutes int) string {
	return fmt.Sprintf(
		"Your selection totals %d minutes but the workout must total exactly %d minutes. "+
			"Pick a different combination from the same candidate list and reply with the same JSON shape.",
		selectedMinutes, targetMinutes)
}

// validationRetryPrompt is used when the model referenced ids outside the
// candidate list.
func validationRetryPrompt(unknownIDs []string) string {
	return fmt.Sprintf(
		"These ids are not in the candidate list: %s. "+
			"Only use ids from the candidate list and reply with the same JSON shape.",
		strings.Join(unknownIDs, ", "))
}
