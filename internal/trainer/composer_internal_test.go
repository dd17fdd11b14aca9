package trainer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/myrjola/pelocoach/internal/catalog"
	"github.com/myrjola/pelocoach/internal/errors"
	"github.com/myrjola/pelocoach/internal/prefs"
	"github.com/myrjola/pelocoach/internal/testhelpers"
)

// fakeCompletions replays scripted replies and records every request. Plain
// text replies go in replies; replies with tool calls go in messages and are
// consumed first.
type fakeCompletions struct {
	replies  []string
	messages []openai.ChatCompletionMessage
	requests []openai.ChatCompletionNewParams
}

func (f *fakeCompletions) New(
	_ context.Context,
	body openai.ChatCompletionNewParams,
	_ ...option.RequestOption,
) (*openai.ChatCompletion, error) {
	f.requests = append(f.requests, body)
	if len(f.messages) > 0 {
		message := f.messages[0]
		f.messages = f.messages[1:]
		return &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{{Message: message}},
		}, nil
	}
	if len(f.replies) == 0 {
		return nil, errors.New("fakeCompletions: out of scripted replies")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: reply}},
		},
	}, nil
}

func newTestService(t *testing.T, fake *fakeCompletions) *Service {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	return &Service{
		llm:    &llmClient{completions: fake, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

func testCandidates() []catalog.Class {
	return []catalog.Class{
		{ID: "a", Title: "15 min Core", DurationMinutes: 15, Discipline: "strength"},
		{ID: "b", Title: "30 min Ride", DurationMinutes: 30, Discipline: "cycling"},
		{ID: "c", Title: "20 min Run", DurationMinutes: 20, Discipline: "running"},
	}
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	candidates := testCandidates()

	tests := []struct {
		name        string
		reply       string
		wantErr     error
		wantMinutes int
	}{
		{
			name:        "exact sum accepted",
			reply:       `{"class_ids": ["a", "b"], "rationale": "core then ride"}`,
			wantErr:     nil,
			wantMinutes: 45,
		},
		{
			name:    "overshooting sum rejected",
			reply:   `{"class_ids": ["a", "b", "c"], "rationale": "everything"}`,
			wantErr: ErrComposition,
		},
		{
			name:    "undershooting sum rejected",
			reply:   `{"class_ids": ["b"], "rationale": "just the ride"}`,
			wantErr: ErrComposition,
		},
		{
			name:        "duplicate ids collapse",
			reply:       `{"class_ids": ["a", "a", "b"], "rationale": "double-listed the core class"}`,
			wantErr:     nil,
			wantMinutes: 45,
		},
		{
			name:    "unknown id rejected",
			reply:   `{"class_ids": ["a", "z"], "rationale": "made one up"}`,
			wantErr: ErrValidation,
		},
		{
			name:    "prose rejected",
			reply:   "Take the 45 minute climb ride!",
			wantErr: ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			workout, err := reconcile(tt.reply, candidates, 45)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("reconcile() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("reconcile() unexpected error: %v", err)
			}
			if workout.TotalDurationMinutes != tt.wantMinutes {
				t.Errorf("TotalDurationMinutes = %d, want %d", workout.TotalDurationMinutes, tt.wantMinutes)
			}
		})
	}
}

func TestComposeRetriesOnDurationMismatch(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletions{replies: []string{
		`{"class_ids": ["a", "b", "c"], "rationale": "too much"}`,
		`{"class_ids": ["a", "b"], "rationale": "fits now"}`,
	}}
	service := newTestService(t, fake)

	workout, err := service.compose(t.Context(), testCandidates(), nil,
		prefs.Preferences{}, prefs.Goal{Name: "Build strength"}, 45)
	if err != nil {
		t.Fatalf("compose() unexpected error: %v", err)
	}
	if workout.TotalDurationMinutes != 45 {
		t.Errorf("TotalDurationMinutes = %d, want 45", workout.TotalDurationMinutes)
	}

	if len(fake.requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(fake.requests))
	}
	// The corrective re-prompt states the wrong total and the requirement.
	retry := fake.requests[1]
	followUp := retry.Messages[len(retry.Messages)-1].OfUser.Content.OfString.Value
	if !strings.Contains(followUp, "65") || !strings.Contains(followUp, "45") {
		t.Errorf("corrective prompt missing totals: %q", followUp)
	}
}

func TestComposeGivesUpAfterOneRetry(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletions{replies: []string{
		`{"class_ids": ["b"], "rationale": "short"}`,
		`{"class_ids": ["c"], "rationale": "still short"}`,
	}}
	service := newTestService(t, fake)

	_, err := service.compose(t.Context(), testCandidates(), nil,
		prefs.Preferences{}, prefs.Goal{Name: "Build strength"}, 45)
	if !errors.Is(err, ErrComposition) {
		t.Fatalf("compose() error = %v, want ErrComposition", err)
	}
	if len(fake.requests) != 2 {
		t.Errorf("got %d requests, want exactly 2", len(fake.requests))
	}
}

func TestComposeRetriesOnUnknownID(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletions{replies: []string{
		`{"class_ids": ["z"], "rationale": "imaginary"}`,
		`{"class_ids": ["a", "b"], "rationale": "real ones"}`,
	}}
	service := newTestService(t, fake)

	workout, err := service.compose(t.Context(), testCandidates(), nil,
		prefs.Preferences{}, prefs.Goal{Name: "Build strength"}, 45)
	if err != nil {
		t.Fatalf("compose() unexpected error: %v", err)
	}
	if len(workout.Classes) != 2 {
		t.Errorf("got %d classes, want 2", len(workout.Classes))
	}

	retry := fake.requests[1]
	followUp := retry.Messages[len(retry.Messages)-1].OfUser.Content.OfString.Value
	if !strings.Contains(followUp, "z") {
		t.Errorf("corrective prompt does not name the unknown id: %q", followUp)
	}
}

func TestComposeDoesNotRetryParseFailures(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletions{replies: []string{
		"Just take whatever feels good today!",
	}}
	service := newTestService(t, fake)

	_, err := service.compose(t.Context(), testCandidates(), nil,
		prefs.Preferences{}, prefs.Goal{Name: "Build strength"}, 45)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("compose() error = %v, want ErrParse", err)
	}
	if len(fake.requests) != 1 {
		t.Errorf("got %d requests, want exactly 1", len(fake.requests))
	}
}

func TestComposeWithNoCandidates(t *testing.T) {
	t.Parallel()

	service := newTestService(t, &fakeCompletions{})

	_, err := service.compose(t.Context(), nil, nil,
		prefs.Preferences{}, prefs.Goal{Name: "Build strength"}, 45)
	if !errors.Is(err, ErrComposition) {
		t.Fatalf("compose() error = %v, want ErrComposition", err)
	}
}
