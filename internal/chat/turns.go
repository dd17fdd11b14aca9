package chat

import (
	"context"
	"sync"
)

// turnGuard grants each user one in-flight turn at a time. Beginning a new
// turn cancels the previous one so a user who resubmits quickly never gets
// two interleaved assistant replies.
type turnGuard struct {
	mu       sync.Mutex
	inFlight map[string]*turn
}

type turn struct {
	cancel context.CancelFunc
}

func newTurnGuard() *turnGuard {
	return &turnGuard{
		inFlight: make(map[string]*turn),
	}
}

func (g *turnGuard) begin(ctx context.Context, userID string) (context.Context, context.CancelFunc) {
	turnCtx, cancel := context.WithCancel(ctx)
	current := &turn{cancel: cancel}

	g.mu.Lock()
	if prior, ok := g.inFlight[userID]; ok {
		prior.cancel()
	}
	g.inFlight[userID] = current
	g.mu.Unlock()

	return turnCtx, func() {
		g.mu.Lock()
		// Leave the slot alone if a newer turn has replaced it.
		if g.inFlight[userID] == current {
			delete(g.inFlight, userID)
		}
		g.mu.Unlock()
		cancel()
	}
}
