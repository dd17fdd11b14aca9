// Package prefs stores the user's training preferences and the named goal
// definitions the recommendation prompts are built from.
package prefs

// Preferences holds everything the user has told us about how they like to
// train. Saved wholesale; there is no per-field update.
type Preferences struct {
	FitnessGoals             []string
	PreferredDurationMinutes int
	ExcludedDisciplines      []string
	FavoriteInstructors      []string
	PreferredIntensity       string
}

// DefaultDurationMinutes is used until the user picks a duration.
const DefaultDurationMinutes = 30

// Goal is a named training goal with the class types that serve it. The goal
// text goes verbatim into the recommendation prompt.
type Goal struct {
	Name       string
	Goal       string
	ClassTypes []string
}
