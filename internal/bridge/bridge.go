// Package bridge hands entity creation off to an external sub-workflow and
// merges the created entity back into the cascade.
//
// Each branch emits a Request on the bridge's outbound channel and listens
// for exactly one completion on an inbox scoped to that request. Closing
// the bridge disposes every listener still waiting.
package bridge

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mrsinham/importctx/internal/importmode"
	"github.com/mrsinham/importctx/internal/model"
	"github.com/mrsinham/importctx/internal/resolver"
	"github.com/mrsinham/importctx/internal/scan"
)

var (
	// ErrClosed is returned once the bridge has been closed, and by Wait
	// for handles disposed by Close.
	ErrClosed = eris.New("bridge: closed")
	// ErrUnsupportedLevel is returned for levels the sub-workflow cannot
	// create.
	ErrUnsupportedLevel = eris.New("bridge: level cannot be created")
	// ErrParentUnset is returned when the level a draft hangs off is unset.
	ErrParentUnset = eris.New("bridge: parent level is unset")
	// ErrSettled is returned when a handle is completed twice.
	ErrSettled = eris.New("bridge: request already settled")
)

// Merger is the part of the resolver the bridge drives.
type Merger interface {
	Snapshot() model.Snapshot
	Merge(ctx context.Context, level model.Level, entity any) (resolver.Outcome, error)
}

// Request is handed to the creation sub-workflow.
type Request struct {
	ID    uuid.UUID
	Level model.Level
	// Draft is the prefilled entity, a value of the model type created at
	// Level.
	Draft any
	// Context is the import context captured when the branch was taken.
	Context model.ImportContext
}

// Bridge tracks the creation requests of one session.
type Bridge struct {
	merger   Merger
	info     scan.Info
	behavior importmode.Behavior
	logger   *zap.Logger

	out chan Request

	mu      sync.Mutex
	closed  bool
	pending map[uuid.UUID]*Handle
	closing chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithBuffer sets the capacity of the outbound request channel.
func WithBuffer(n int) Option {
	return func(b *Bridge) { b.out = make(chan Request, n) }
}

// New creates a bridge for a scan arriving through mode.
func New(m Merger, info scan.Info, mode importmode.Mode, opts ...Option) *Bridge {
	b := &Bridge{
		merger:   m,
		info:     info,
		behavior: mode.Behavior(),
		logger:   zap.NewNop(),
		out:      make(chan Request, 8),
		pending:  make(map[uuid.UUID]*Handle),
		closing:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Requests is the outbound channel the sub-workflow reads from. It is never
// closed; consumers should stop reading once the session ends.
func (b *Bridge) Requests() <-chan Request {
	return b.out
}

// Branch captures the current context, builds the draft for level and
// emits the request. ctx bounds both the emission and the lifetime of the
// completion listener.
func (b *Bridge) Branch(ctx context.Context, level model.Level) (*Handle, error) {
	return b.branch(ctx, level, true)
}

// Begin is Branch for a caller that serves the request itself: the request
// is registered and listened for but not emitted on Requests.
func (b *Bridge) Begin(ctx context.Context, level model.Level) (*Handle, error) {
	return b.branch(ctx, level, false)
}

func (b *Bridge) branch(ctx context.Context, level model.Level, emit bool) (*Handle, error) {
	if !Creatable(level) {
		return nil, eris.Wrapf(ErrUnsupportedLevel, "create %s", level)
	}
	snap := b.merger.Snapshot()
	if parent, ok := model.Parent(level); ok && snap.Context.Get(parent).IsZero() {
		return nil, eris.Wrapf(ErrParentUnset, "create %s", level)
	}
	d, err := draft(level, snap, b.info, b.behavior)
	if err != nil {
		return nil, eris.Wrapf(err, "create %s", level)
	}

	h := &Handle{
		req: Request{
			ID:      uuid.New(),
			Level:   level,
			Draft:   d,
			Context: snap.Context,
		},
		inbox: make(chan completion, 1),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.pending[h.req.ID] = h
	b.wg.Add(1)
	b.mu.Unlock()

	log := b.logger.With(zap.Stringer("request", h.req.ID), zap.Stringer("level", level))
	go b.listen(ctx, h, log)

	if !emit {
		log.Info("creation begun")
		return h, nil
	}
	select {
	case b.out <- h.req:
	case <-ctx.Done():
		h.Cancel()
		return nil, ctx.Err()
	case <-b.closing:
		return nil, ErrClosed
	}
	log.Info("creation requested")
	return h, nil
}

func (b *Bridge) listen(ctx context.Context, h *Handle, log *zap.Logger) {
	defer b.wg.Done()
	defer b.forget(h.req.ID)
	defer close(h.done)

	select {
	case c := <-h.inbox:
		if c.cancelled || c.entity == nil {
			log.Info("creation cancelled, context left unchanged")
			return
		}
		out, err := b.merger.Merge(ctx, h.req.Level, c.entity)
		if err != nil {
			log.Warn("merge failed", zap.Error(err))
			h.err = err
			return
		}
		h.result = Settlement{Merged: true, Outcome: out}
	case <-b.closing:
		log.Debug("listener disposed")
		h.err = ErrClosed
	case <-ctx.Done():
		log.Debug("listener cancelled", zap.Error(ctx.Err()))
		h.err = ctx.Err()
	}
}

func (b *Bridge) forget(id uuid.UUID) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// Pending returns the IDs of requests still waiting for completion.
func (b *Bridge) Pending() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	return ids
}

// Lookup returns the pending handle of a request.
func (b *Bridge) Lookup(id uuid.UUID) (*Handle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.pending[id]
	return h, ok
}

// Close disposes every pending listener and waits for them to exit. It is
// safe to call more than once.
func (b *Bridge) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.closing)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
