// Package catalog normalizes the fitness platform's heterogeneous class and
// workout records into a single shape and applies recency and exclusion
// filters before anything else touches them.
package catalog

import (
	"time"
)

// Class is the normalized representation of a platform class. It is
// constructed fresh on every catalog fetch and never persisted; only the ID
// is carried forward into stack mutation calls.
type Class struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Discipline      string  `json:"discipline"`
	DurationMinutes int     `json:"duration"`
	Difficulty      float64 `json:"difficulty"`
	Instructor      string  `json:"instructor"`
	AiredAt         time.Time
}

// ActivityEntry is one historical workout taken by the user. Day granularity
// is enough for the recency window.
type ActivityEntry struct {
	ClassID    string
	Title      string
	Discipline string
	Date       time.Time
	Instructor string
}

// InstructorLookup maps platform instructor ids to display names.
type InstructorLookup map[string]string
