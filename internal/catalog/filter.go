package catalog

import (
	"strings"
	"time"
)

const hoursPerDay = 24

// FilterOptions bounds the candidate set produced from a catalog page.
type FilterOptions struct {
	// Now anchors the recency window. Tests pin it; production passes time.Now().
	Now time.Time
	// RecencyDays keeps only records aired or taken within the window.
	RecencyDays int
	// ExcludedDisciplines drops records the user never wants recommended.
	// Comparison is case-insensitive.
	ExcludedDisciplines []string
}

// NormalizeAndFilter turns a raw catalog page into an ordered candidate set.
// Malformed records are skipped and collected for logging rather than
// failing the batch. The upstream claims the page is sorted descending by
// air time; we filter the whole page anyway instead of stopping at the first
// stale record, because that claim is not verified for every account.
func NormalizeAndFilter(raws []RawRecord, instructors InstructorLookup, opts FilterOptions) ([]Class, []error) {
	var (
		classes []Class
		skipped []error
	)
	for _, raw := range raws {
		class, err := Normalize(raw, instructors)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if daysBetween(class.AiredAt, opts.Now) > opts.RecencyDays {
			continue
		}
		if disciplineExcluded(class.Discipline, opts.ExcludedDisciplines) {
			continue
		}
		classes = append(classes, class)
	}
	return classes, skipped
}

// RecentActivity turns a raw workout-history page into the bounded recency
// window of activity entries. Same full-page policy as NormalizeAndFilter.
func RecentActivity(raws []RawRecord, instructors InstructorLookup, opts FilterOptions) ([]ActivityEntry, []error) {
	var (
		entries []ActivityEntry
		skipped []error
	)
	for _, raw := range raws {
		entry, err := NormalizeActivity(raw, instructors)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if daysBetween(entry.Date, opts.Now) > opts.RecencyDays {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, skipped
}

func disciplineExcluded(discipline string, excluded []string) bool {
	for _, e := range excluded {
		if strings.EqualFold(discipline, e) {
			return true
		}
	}
	return false
}

// daysBetween counts whole calendar days from t to now.
func daysBetween(t, now time.Time) int {
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	truncated := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	nowTruncated := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(nowTruncated.Sub(truncated).Hours() / hoursPerDay)
}
