package catalog

import (
	"log/slog"
	"time"

	"github.com/myrjola/pelocoach/internal/errors"
)

// ErrMalformedRecord is returned when none of the known record shapes match.
// Callers log the record and skip it; a malformed record never fails a batch.
var ErrMalformedRecord = errors.NewSentinel("malformed catalog record")

const secondsPerMinute = 60

// RawRecord mirrors the upstream JSON for both catalog and workout feeds.
// The platform serves three shapes: flat ride fields at the top level, a
// ride nested under "ride", and a ride nested under "peloton"."ride". The
// shape is resolved explicitly instead of probing individual fields.
type RawRecord struct {
	ID                 string      `json:"id"`
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	DurationSeconds    int         `json:"duration"`
	DifficultyEstimate float64     `json:"difficulty_estimate"`
	FitnessDiscipline  string      `json:"fitness_discipline"`
	InstructorID       string      `json:"instructor_id"`
	OriginalAirTime    int64       `json:"original_air_time"`
	CreatedAt          int64       `json:"created_at"`
	Ride               *RawRecord  `json:"ride"`
	Peloton            *rawPeloton `json:"peloton"`
}

type rawPeloton struct {
	Ride *RawRecord `json:"ride"`
}

// recordShape identifies which of the known upstream shapes a record uses.
type recordShape int

const (
	shapeUnknown recordShape = iota
	shapeFlat
	shapeRide
	shapePelotonRide
)

// resolve picks the record variant in fixed priority order: flat, "ride",
// "peloton"."ride". It returns the ride payload holding the class fields.
func (r *RawRecord) resolve() (*RawRecord, recordShape) {
	if r.Title != "" || r.Description != "" || r.DurationSeconds > 0 {
		return r, shapeFlat
	}
	if r.Ride != nil {
		return r.Ride, shapeRide
	}
	if r.Peloton != nil && r.Peloton.Ride != nil {
		return r.Peloton.Ride, shapePelotonRide
	}
	return nil, shapeUnknown
}

// Normalize converts a raw catalog record into a Class. The upstream reports
// duration in seconds; it is converted to minutes at ingestion. It returns an
// error wrapping ErrMalformedRecord when the shape is unrecognized or the
// class invariants (positive duration, difficulty within 0-10) do not hold.
func Normalize(raw RawRecord, instructors InstructorLookup) (Class, error) {
	ride, shape := raw.resolve()
	if shape == shapeUnknown {
		return Class{}, errors.Wrap(ErrMalformedRecord, "unrecognized record shape",
			slog.String("id", raw.ID))
	}

	id := ride.ID
	if id == "" {
		// Workout feed variants carry the class id on the envelope.
		id = raw.ID
	}

	durationMinutes := ride.DurationSeconds / secondsPerMinute
	if durationMinutes <= 0 {
		return Class{}, errors.Wrap(ErrMalformedRecord, "non-positive duration",
			slog.String("id", id), slog.Int("duration_seconds", ride.DurationSeconds))
	}
	if ride.DifficultyEstimate < 0 || ride.DifficultyEstimate > 10 {
		return Class{}, errors.Wrap(ErrMalformedRecord, "difficulty out of range",
			slog.String("id", id), slog.Float64("difficulty", ride.DifficultyEstimate))
	}

	return Class{
		ID:              id,
		Title:           ride.Title,
		Description:     ride.Description,
		Discipline:      ride.FitnessDiscipline,
		DurationMinutes: durationMinutes,
		Difficulty:      ride.DifficultyEstimate,
		Instructor:      instructors[ride.InstructorID],
		AiredAt:         time.Unix(ride.OriginalAirTime, 0),
	}, nil
}

// NormalizeActivity converts a raw workout-history record into an
// ActivityEntry using the envelope's creation time as the workout date.
func NormalizeActivity(raw RawRecord, instructors InstructorLookup) (ActivityEntry, error) {
	ride, shape := raw.resolve()
	if shape == shapeUnknown {
		return ActivityEntry{}, errors.Wrap(ErrMalformedRecord, "unrecognized record shape",
			slog.String("id", raw.ID))
	}

	classID := ride.ID
	if classID == "" {
		classID = raw.ID
	}

	return ActivityEntry{
		ClassID:    classID,
		Title:      ride.Title,
		Discipline: ride.FitnessDiscipline,
		Date:       time.Unix(raw.CreatedAt, 0),
		Instructor: instructors[ride.InstructorID],
	}, nil
}
