package prefs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myrjola/pelocoach/internal/contexthelpers"
	"github.com/myrjola/pelocoach/internal/sqlite"
)

// Service reads and writes preferences and goals. The platform user id comes
// from the request context.
type Service struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewService(db *sqlite.Database, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Get retrieves the current user's preferences, falling back to defaults when
// nothing has been saved yet.
func (s *Service) Get(ctx context.Context) (Preferences, error) {
	userID := contexthelpers.PlatformUserID(ctx)

	var (
		prefs               Preferences
		goalsJSON           string
		excludedJSON        string
		favoriteInstructors string
	)
	err := s.db.ReadOnly.QueryRowContext(ctx, `
		SELECT fitness_goals, preferred_duration_minutes, excluded_disciplines,
		       favorite_instructors, preferred_intensity
		FROM preferences
		WHERE platform_user_id = ?`, userID).Scan(
		&goalsJSON, &prefs.PreferredDurationMinutes, &excludedJSON,
		&favoriteInstructors, &prefs.PreferredIntensity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{
			FitnessGoals:             nil,
			PreferredDurationMinutes: DefaultDurationMinutes,
			ExcludedDisciplines:      nil,
			FavoriteInstructors:      nil,
			PreferredIntensity:       "",
		}, nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("query preferences: %w", err)
	}

	if prefs.FitnessGoals, err = decodeStrings(goalsJSON); err != nil {
		return Preferences{}, fmt.Errorf("decode fitness goals: %w", err)
	}
	if prefs.ExcludedDisciplines, err = decodeStrings(excludedJSON); err != nil {
		return Preferences{}, fmt.Errorf("decode excluded disciplines: %w", err)
	}
	if prefs.FavoriteInstructors, err = decodeStrings(favoriteInstructors); err != nil {
		return Preferences{}, fmt.Errorf("decode favorite instructors: %w", err)
	}
	return prefs, nil
}

// Set saves the current user's preferences wholesale.
func (s *Service) Set(ctx context.Context, prefs Preferences) error {
	userID := contexthelpers.PlatformUserID(ctx)

	goalsJSON, err := encodeStrings(prefs.FitnessGoals)
	if err != nil {
		return fmt.Errorf("encode fitness goals: %w", err)
	}
	excludedJSON, err := encodeStrings(prefs.ExcludedDisciplines)
	if err != nil {
		return fmt.Errorf("encode excluded disciplines: %w", err)
	}
	favoritesJSON, err := encodeStrings(prefs.FavoriteInstructors)
	if err != nil {
		return fmt.Errorf("encode favorite instructors: %w", err)
	}

	_, err = s.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO preferences (
			platform_user_id, fitness_goals, preferred_duration_minutes,
			excluded_disciplines, favorite_instructors, preferred_intensity
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (platform_user_id) DO UPDATE SET
			fitness_goals = excluded.fitness_goals,
			preferred_duration_minutes = excluded.preferred_duration_minutes,
			excluded_disciplines = excluded.excluded_disciplines,
			favorite_instructors = excluded.favorite_instructors,
			preferred_intensity = excluded.preferred_intensity,
			updated_at = CURRENT_TIMESTAMP`,
		userID, goalsJSON, prefs.PreferredDurationMinutes,
		excludedJSON, favoritesJSON, prefs.PreferredIntensity,
	)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// Goals lists every goal definition ordered by name.
func (s *Service) Goals(ctx context.Context) ([]Goal, error) {
	rows, err := s.db.ReadOnly.QueryContext(ctx, `
		SELECT name, goal, class_types
		FROM goals
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var goals []Goal
	for rows.Next() {
		var (
			goal           Goal
			classTypesJSON string
		)
		if err = rows.Scan(&goal.Name, &goal.Goal, &classTypesJSON); err != nil {
			return nil, fmt.Errorf("scan goal row: %w", err)
		}
		if goal.ClassTypes, err = decodeStrings(classTypesJSON); err != nil {
			return nil, fmt.Errorf("decode class types: %w", err)
		}
		goals = append(goals, goal)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goal rows: %w", err)
	}
	return goals, nil
}

// SetGoal creates or replaces a goal definition by name.
func (s *Service) SetGoal(ctx context.Context, goal Goal) error {
	classTypesJSON, err := encodeStrings(goal.ClassTypes)
	if err != nil {
		return fmt.Errorf("encode class types: %w", err)
	}

	_, err = s.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO goals (name, goal, class_types)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			goal = excluded.goal,
			class_types = excluded.class_types,
			updated_at = CURRENT_TIMESTAMP`,
		goal.Name, goal.Goal, classTypesJSON)
	if err != nil {
		return fmt.Errorf("save goal: %w", err)
	}
	return nil
}

// DeleteGoal removes a goal definition. Deleting an unknown goal is not an
// error.
func (s *Service) DeleteGoal(ctx context.Context, name string) error {
	if _, err := s.db.ReadWrite.ExecContext(ctx, `DELETE FROM goals WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshal string list: %w", err)
	}
	return string(encoded), nil
}

func decodeStrings(encoded string) ([]string, error) {
	if encoded == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(encoded), &values); err != nil {
		return nil, fmt.Errorf("unmarshal string list: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}
