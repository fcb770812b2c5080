package bridge

import (
	"context"
	"sync"

	"github.com/mrsinham/importctx/internal/resolver"
)

type completion struct {
	entity    any
	cancelled bool
}

// Settlement is how a request ended.
type Settlement struct {
	// Merged is false when the sub-workflow cancelled or returned nothing.
	Merged  bool
	Outcome resolver.Outcome
}

// Handle is a suspended creation request. It accepts exactly one
// completion.
type Handle struct {
	req Request

	mu      sync.Mutex
	claimed bool
	inbox   chan completion

	done   chan struct{}
	result Settlement
	err    error
}

// Request returns the request the handle was created for.
func (h *Handle) Request() Request { return h.req }

func (h *Handle) claim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.claimed {
		return false
	}
	h.claimed = true
	return true
}

// Complete reports the created entity. A nil entity is treated as a
// cancellation.
func (h *Handle) Complete(entity any) error {
	if !h.claim() {
		return ErrSettled
	}
	h.inbox <- completion{entity: entity}
	return nil
}

// Cancel reports that nothing was created. Cancelling a settled handle does
// nothing.
func (h *Handle) Cancel() {
	if h.claim() {
		h.inbox <- completion{cancelled: true}
	}
}

// Done is closed once the request has settled or been disposed.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the request settles.
func (h *Handle) Wait(ctx context.Context) (Settlement, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return Settlement{}, ctx.Err()
	}
}
