// Package backup keeps the context of a wizard session: the most recent
// attempted context, valid or not, and the last context that passed the
// completeness gate.
//
// A Store is bound to one session. It is created empty, optionally seeded
// with a context backed up by a previous session, written after every
// cascade transition, and closed when the session ends.
package backup

import (
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mrsinham/importctx/internal/model"
	"github.com/mrsinham/importctx/internal/validation"
)

var (
	// ErrIncomplete is returned by Commit when the gate rejects the context.
	ErrIncomplete = eris.New("backup: context is incomplete")
	// ErrClosed is returned when the store is used after Close.
	ErrClosed = eris.New("backup: store is closed")
)

// Store holds the in-progress and committed contexts of a session.
type Store struct {
	mu sync.Mutex

	gate   validation.Gate
	logger *zap.Logger

	inProgress    model.ImportContext
	hasInProgress bool
	committed     model.ImportContext
	hasCommitted  bool

	previous    model.ImportContext
	hasPrevious bool

	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithGate replaces the completeness gate.
func WithGate(g validation.Gate) Option {
	return func(s *Store) { s.gate = g }
}

// WithPrevious seeds the store with a context backed up by an earlier
// session. It is handed out once by TakePrevious.
func WithPrevious(c model.ImportContext) Option {
	return func(s *Store) {
		s.previous = c
		s.hasPrevious = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		gate:   validation.Default,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write overwrites the in-progress context. Last write wins.
func (s *Store) Write(c model.ImportContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.inProgress = c
	s.hasInProgress = true
	return nil
}

// ReadInProgress returns the most recently written context.
func (s *Store) ReadInProgress() (model.ImportContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inProgress, s.hasInProgress
}

// Commit exposes c to the next wizard phase. It fails with ErrIncomplete
// unless the gate accepts c.
func (s *Store) Commit(c model.ImportContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.gate(c) {
		return ErrIncomplete
	}
	s.committed = c
	s.hasCommitted = true
	s.logger.Debug("context committed", zap.Int64("study", int64(c.StudyID)))
	return nil
}

// Committed returns the last committed context.
func (s *Store) Committed() (model.ImportContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed, s.hasCommitted
}

// TakePrevious returns the context seeded with WithPrevious the first time
// it is called, and nothing afterwards.
func (s *Store) TakePrevious() (model.ImportContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPrevious {
		return model.ImportContext{}, false
	}
	s.hasPrevious = false
	return s.previous, true
}

// Close tears the store down. Reads keep returning the last state; writes
// and commits fail.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.hasPrevious = false
}
