package trainer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/myrjola/pelocoach/internal/catalog"
	"github.com/myrjola/pelocoach/internal/chat"
	"github.com/myrjola/pelocoach/internal/errors"
	"github.com/myrjola/pelocoach/internal/memo"
	"github.com/myrjola/pelocoach/internal/platform"
	"github.com/myrjola/pelocoach/internal/prefs"
)

const (
	classRecencyDays    = 14
	activityRecencyDays = 7
	catalogCacheTTL     = 15 * time.Minute
	instructorCacheTTL  = 24 * time.Hour
	maxToolRounds       = 5
)

// Service orchestrates recommendations: preferences and goals from the
// store, candidates from the platform, selection and composition from the
// LLM, stack mutations back to the platform.
type Service struct {
	llm      *llmClient
	platform *platform.Client
	prefs    *prefs.Service
	chats    *chat.Service
	registry *toolRegistry
	logger   *slog.Logger
	now      func() time.Time

	instructorCache *memo.Table[string, catalog.InstructorLookup]
	classCache      *memo.Table[string, []catalog.RawRecord]
	activityCache   *memo.Table[string, []catalog.RawRecord]
}

// NewService wires the trainer together. The OpenAI key comes from
// configuration; everything else is shared application state.
func NewService(
	openaiAPIKey string,
	platformClient *platform.Client,
	prefsService *prefs.Service,
	chatService *chat.Service,
	logger *slog.Logger,
) *Service {
	s := &Service{
		llm:             newLLMClient(openaiAPIKey, logger),
		platform:        platformClient,
		prefs:           prefsService,
		chats:           chatService,
		registry:        newToolRegistry(),
		logger:          logger,
		now:             time.Now,
		instructorCache: memo.New[string, catalog.InstructorLookup](instructorCacheTTL),
		classCache:      memo.New[string, []catalog.RawRecord](catalogCacheTTL),
		activityCache:   memo.New[string, []catalog.RawRecord](catalogCacheTTL),
	}
	s.registerTools()
	return s
}

// InvalidateCaches drops every memoized platform fetch. Called after the
// user saves preferences so the next recommendation sees fresh inputs.
func (s *Service) InvalidateCaches() {
	s.instructorCache.Invalidate()
	s.classCache.Invalidate()
	s.activityCache.Invalidate()
}

// GenerateWorkout produces a duration-matched workout recommendation for the
// user's message.
func (s *Service) GenerateWorkout(
	ctx context.Context,
	sess platform.Session,
	userMessage string,
) (ProposedWorkout, error) {
	preferences, err := s.prefs.Get(ctx)
	if err != nil {
		return ProposedWorkout{}, errors.Wrap(err, "load preferences")
	}
	goals, err := s.prefs.Goals(ctx)
	if err != nil {
		return ProposedWorkout{}, errors.Wrap(err, "load goals")
	}

	recentActivity, err := s.recentActivity(ctx, sess)
	if err != nil {
		return ProposedWorkout{}, errors.Wrap(err, "gather recent activity")
	}

	goal, err := s.selectGoal(ctx, goals, preferences, recentActivity, userMessage)
	if err != nil {
		return ProposedWorkout{}, errors.Wrap(err, "select goal")
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "goal selected", slog.String("goal", goal.Name))

	candidates, err := s.candidates(ctx, sess, goal, preferences)
	if err != nil {
		return ProposedWorkout{}, errors.Wrap(err, "gather candidates")
	}

	workout, err := s.compose(ctx, candidates, recentActivity, preferences, goal,
		preferences.PreferredDurationMinutes)
	if err != nil {
		return ProposedWorkout{}, err
	}
	return workout, nil
}

// QueueWorkout pushes the selected classes onto the user's platform stack in
// order. With Replace set the stack is cleared first.
func (s *Service) QueueWorkout(ctx context.Context, sess platform.Session, req StackMutationRequest) error {
	if req.Replace {
		if err := s.platform.ClearStack(ctx, sess); err != nil {
			return errors.Wrap(err, "clear stack")
		}
	}
	for _, classID := range req.ClassIDs {
		joinToken, err := s.platform.JoinToken(ctx, sess, classID)
		if err != nil {
			return errors.Wrap(err, "resolve join token", slog.String("class_id", classID))
		}
		if err = s.platform.AddToStack(ctx, sess, joinToken); err != nil {
			return errors.Wrap(err, "add class to stack", slog.String("class_id", classID))
		}
	}
	return nil
}

// Stack returns the classes currently queued on the user's platform stack.
func (s *Service) Stack(ctx context.Context, sess platform.Session) ([]platform.StackEntry, error) {
	entries, err := s.platform.ViewStack(ctx, sess)
	if err != nil {
		return nil, errors.Wrap(err, "view stack")
	}
	return entries, nil
}

// ClearStack empties the user's platform stack.
func (s *Service) ClearStack(ctx context.Context, sess platform.Session) error {
	if err := s.platform.ClearStack(ctx, sess); err != nil {
		return errors.Wrap(err, "clear stack")
	}
	return nil
}

// candidates builds the filtered candidate set for a goal from the class
// types it names.
func (s *Service) candidates(
	ctx context.Context,
	sess platform.Session,
	goal prefs.Goal,
	preferences prefs.Preferences,
) ([]catalog.Class, error) {
	instructors, err := s.instructors(ctx)
	if err != nil {
		return nil, err
	}

	opts := catalog.FilterOptions{
		Now:                 s.now(),
		RecencyDays:         classRecencyDays,
		ExcludedDisciplines: preferences.ExcludedDisciplines,
	}

	var candidates []catalog.Class
	for _, classType := range goal.ClassTypes {
		raws, err := s.classCache.Do(ctx, classType, func(ctx context.Context) ([]catalog.RawRecord, error) {
			return s.platform.RecentClasses(ctx, sess, classType)
		})
		if err != nil {
			return nil, errors.Wrap(err, "fetch classes", slog.String("class_type", classType))
		}

		classes, skipped := catalog.NormalizeAndFilter(raws, instructors, opts)
		s.logSkipped(ctx, skipped)
		candidates = append(candidates, classes...)
	}
	return candidates, nil
}

// recentActivity returns the user's workouts inside the recency window.
func (s *Service) recentActivity(ctx context.Context, sess platform.Session) ([]catalog.ActivityEntry, error) {
	instructors, err := s.instructors(ctx)
	if err != nil {
		return nil, err
	}

	raws, err := s.activityCache.Do(ctx, sess.UserID, func(ctx context.Context) ([]catalog.RawRecord, error) {
		return s.platform.UserWorkouts(ctx, sess)
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch user workouts")
	}

	entries, skipped := catalog.RecentActivity(raws, instructors, catalog.FilterOptions{
		Now:         s.now(),
		RecencyDays: activityRecencyDays,
	})
	s.logSkipped(ctx, skipped)
	return entries, nil
}

func (s *Service) instructors(ctx context.Context) (catalog.InstructorLookup, error) {
	lookup, err := s.instructorCache.Do(ctx, "all",
		func(ctx context.Context) (catalog.InstructorLookup, error) {
			return s.platform.Instructors(ctx)
		})
	if err != nil {
		return nil, errors.Wrap(err, "fetch instructors")
	}
	return lookup, nil
}

func (s *Service) logSkipped(ctx context.Context, skipped []error) {
	for _, err := range skipped {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "skipped malformed record", slog.Any("error", err))
	}
}

// registerTools wires the tools the conversational turn loop may call.
func (s *Service) registerTools() {
	s.registry.register(openai.FunctionDefinitionParam{
		Name:        "get_recent_classes",
		Description: openai.String("List recently aired classes for a discipline, newest first."),
		Parameters: openai.FunctionParameters{
			"type": "object",
			"properties": map[string]any{
				"browse_category": map[string]any{
					"type":        "string",
					"description": "Discipline to browse, for example cycling, strength or yoga.",
				},
			},
			"required": []string{"browse_category"},
		},
	}, s.runGetRecentClasses)

	s.registry.register(openai.FunctionDefinitionParam{
		Name:        "get_recent_workouts",
		Description: openai.String("List the workouts the member took recently."),
		Parameters: openai.FunctionParameters{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, s.runGetRecentWorkouts)
}

func (s *Service) runGetRecentClasses(
	ctx context.Context,
	sess platform.Session,
	args json.RawMessage,
) (string, error) {
	var params struct {
		BrowseCategory string `json:"browse_category"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", errors.Wrap(err, "decode get_recent_classes arguments")
	}

	preferences, err := s.prefs.Get(ctx)
	if err != nil {
		return "", errors.Wrap(err, "load preferences")
	}
	classes, err := s.candidates(ctx, sess, prefs.Goal{
		Name:       params.BrowseCategory,
		ClassTypes: []string{params.BrowseCategory},
	}, preferences)
	if err != nil {
		return "", err
	}

	encoded, err := json.Marshal(classes)
	if err != nil {
		return "", errors.Wrap(err, "encode classes")
	}
	return string(encoded), nil
}

func (s *Service) runGetRecentWorkouts(
	ctx context.Context,
	sess platform.Session,
	_ json.RawMessage,
) (string, error) {
	entries, err := s.recentActivity(ctx, sess)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(entries)
	if err != nil {
		return "", errors.Wrap(err, "encode workouts")
	}
	return string(encoded), nil
}
