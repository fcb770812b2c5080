// Package session wires the components of one import wizard session: the
// backup store, the cascade resolver and the entity creation bridge.
package session

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mrsinham/importctx/internal/backup"
	"github.com/mrsinham/importctx/internal/bridge"
	"github.com/mrsinham/importctx/internal/importmode"
	"github.com/mrsinham/importctx/internal/model"
	"github.com/mrsinham/importctx/internal/resolver"
	"github.com/mrsinham/importctx/internal/scan"
)

// ErrIncomplete is returned by Proceed while the context is incomplete.
var ErrIncomplete = backup.ErrIncomplete

// Settings describe the session being opened.
type Settings struct {
	Mode         importmode.Mode
	Scan         scan.Info
	UseStudyCard bool
	FillSole     bool
	Principal    resolver.Principal
	// Previous is a context backed up by an earlier session. When set, the
	// session replays it after loading the registry.
	Previous *model.ImportContext
}

// Session is one run of the import wizard.
type Session struct {
	resolver *resolver.Resolver
	bridge   *bridge.Bridge
	store    *backup.Store
	logger   *zap.Logger

	closeOnce sync.Once
}

type options struct {
	logger  *zap.Logger
	metrics resolver.Recorder
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the cascade event recorder.
func WithMetrics(m resolver.Recorder) Option {
	return func(o *options) { o.metrics = m }
}

// Open builds the session, loads the registry and rehydrates the previous
// context if there is one.
func Open(ctx context.Context, collab resolver.Collaborators, s Settings, opts ...Option) (*Session, resolver.Outcome, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.Named("session")

	storeOpts := []backup.Option{backup.WithLogger(o.logger.Named("backup"))}
	if s.Previous != nil {
		storeOpts = append(storeOpts, backup.WithPrevious(*s.Previous))
	}
	store := backup.New(storeOpts...)

	resOpts := []resolver.Option{
		resolver.WithLogger(o.logger.Named("resolver")),
		resolver.WithFillSoleCandidates(s.FillSole),
		resolver.WithPrincipal(s.Principal),
		resolver.WithUseStudyCard(s.UseStudyCard),
		resolver.WithScanModality(string(s.Scan.Modality)),
	}
	if o.metrics != nil {
		resOpts = append(resOpts, resolver.WithMetrics(o.metrics))
	}
	r := resolver.New(collab, store, s.Mode, s.Scan.Fingerprint, resOpts...)

	out, err := r.Load(ctx)
	if err != nil {
		store.Close()
		return nil, out, eris.Wrap(err, "load registry")
	}
	if prev, ok := store.TakePrevious(); ok {
		log.Info("rehydrating backed-up context", zap.Int64("study", int64(prev.StudyID)))
		replayed, err := r.Replay(ctx, prev)
		if err != nil {
			store.Close()
			return nil, replayed, eris.Wrap(err, "replay backed-up context")
		}
		replayed.Notices = append(out.Notices, replayed.Notices...)
		out = replayed
	}

	sess := &Session{
		resolver: r,
		bridge:   bridge.New(r, s.Scan, s.Mode, bridge.WithLogger(o.logger.Named("bridge"))),
		store:    store,
		logger:   log,
	}
	log.Info("session opened", zap.String("mode", string(s.Mode)), zap.Bool("complete", out.Complete))
	return sess, out, nil
}

// Resolver returns the cascade of the session.
func (s *Session) Resolver() *resolver.Resolver { return s.resolver }

// Bridge returns the creation bridge of the session.
func (s *Session) Bridge() *bridge.Bridge { return s.bridge }

// Store returns the backup store of the session.
func (s *Session) Store() *backup.Store { return s.store }

// Proceed commits the current context and returns it resolved for the
// next wizard phase.
func (s *Session) Proceed() (model.Snapshot, error) {
	c := s.resolver.Context()
	if err := s.store.Commit(c); err != nil {
		if eris.Is(err, backup.ErrIncomplete) {
			return model.Snapshot{}, eris.Wrapf(err, "missing %v", missingNames(c))
		}
		return model.Snapshot{}, err
	}
	s.logger.Info("context committed")
	return s.resolver.Snapshot(), nil
}

// Close disposes pending creation requests and tears the backup store
// down. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.bridge.Close()
		s.store.Close()
		s.logger.Info("session closed")
	})
}
