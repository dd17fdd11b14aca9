package memo_test

import (
	"context"
	"testing"
	"time"

	"github.com/myrjola/pelocoach/internal/errors"
	"github.com/myrjola/pelocoach/internal/memo"
)

func TestTableDo(t *testing.T) {
	t.Parallel()

	table := memo.New[string, int](time.Hour)
	calls := 0
	fetch := func(_ context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for range 3 {
		got, err := table.Do(t.Context(), "key", fetch)
		if err != nil {
			t.Fatalf("Do() unexpected error: %v", err)
		}
		if got != 42 {
			t.Fatalf("Do() = %d, want 42", got)
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}

	table.Invalidate()
	if _, err := table.Do(t.Context(), "key", fetch); err != nil {
		t.Fatalf("Do() after Invalidate: %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times after invalidation, want 2", calls)
	}
}

func TestTableDoError(t *testing.T) {
	t.Parallel()

	table := memo.New[string, int](time.Hour)
	sentinel := errors.NewSentinel("upstream down")
	calls := 0
	fetch := func(_ context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, sentinel
		}
		return 7, nil
	}

	if _, err := table.Do(t.Context(), "key", fetch); !errors.Is(err, sentinel) {
		t.Fatalf("Do() error = %v, want %v", err, sentinel)
	}

	// A failed fetch must not be cached.
	got, err := table.Do(t.Context(), "key", fetch)
	if err != nil {
		t.Fatalf("Do() unexpected error: %v", err)
	}
	if got != 7 {
		t.Errorf("Do() = %d, want 7", got)
	}
}
