// Package resolver drives the selection cascade that binds an incoming scan
// to a study, study card, center, equipment, subject, examination and
// converter.
//
// Each selection clears every downstream level, lists the candidates of the
// next level from the collaborators and fills that level by itself when the
// choice is unambiguous. Every transition is written to the backup store.
//
// Collaborator calls run without the resolver lock held. Each selection
// stamps the levels it invalidates with a new generation, and a fetch is
// discarded when its target level, or any level after it, was stamped again
// while it was in flight.
package resolver

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mrsinham/importctx/internal/backup"
	"github.com/mrsinham/importctx/internal/compat"
	"github.com/mrsinham/importctx/internal/importmode"
	"github.com/mrsinham/importctx/internal/model"
	"github.com/mrsinham/importctx/internal/validation"
)

var (
	// ErrOrphanSelection is returned when a level is selected while its
	// parent level is unset.
	ErrOrphanSelection = eris.New("resolver: parent level is unset")
	// ErrUnknownCandidate is returned when the selected ID is not in the
	// level's candidate list.
	ErrUnknownCandidate = eris.New("resolver: not a candidate")
	// ErrStudyCardDisabled is returned when a study card is selected while
	// study cards are not in use.
	ErrStudyCardDisabled = eris.New("resolver: study cards are disabled")
	// ErrEntityMismatch is returned when a merged entity does not belong to
	// the level it is merged at.
	ErrEntityMismatch = eris.New("resolver: entity does not match level")
	// ErrUnknownLevel is returned for levels outside the cascade.
	ErrUnknownLevel = model.ErrUnknownLevel
)

// Principal is what the resolver knows about the operator.
type Principal struct {
	Admin  bool
	Expert bool
}

// Resolver is the cascade state machine of one wizard session.
type Resolver struct {
	mu sync.Mutex

	collab   Collaborators
	store    *backup.Store
	arena    *model.Arena
	behavior importmode.Behavior
	tagger   compat.Tagger

	fillSole     bool
	principal    Principal
	scanModality string

	logger  *zap.Logger
	metrics Recorder

	ctx        model.ImportContext
	candidates [model.NumLevels][]Candidate

	// seq numbers selection passes; gen holds, per level, the pass that
	// last invalidated it.
	seq uint64
	gen [model.NumLevels]uint64
	// failed marks levels whose last candidate listing failed.
	failed [model.NumLevels]bool

	admins map[model.ID]bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithMetrics sets the event recorder.
func WithMetrics(m Recorder) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithFillSoleCandidates makes import modes without equipment matching
// fill a level whose candidate list holds exactly one entry.
func WithFillSoleCandidates(on bool) Option {
	return func(r *Resolver) { r.fillSole = on }
}

// WithPrincipal sets the operator used by AdminOfStudy.
func WithPrincipal(p Principal) Option {
	return func(r *Resolver) { r.principal = p }
}

// WithUseStudyCard sets the initial study-card switch.
func WithUseStudyCard(on bool) Option {
	return func(r *Resolver) { r.ctx.UseStudyCard = on }
}

// WithScanModality sets the modality used for study card warnings.
func WithScanModality(m string) Option {
	return func(r *Resolver) { r.scanModality = m }
}

// WithArena shares an arena with the caller.
func WithArena(a *model.Arena) Option {
	return func(r *Resolver) { r.arena = a }
}

// New creates a resolver for a scan arriving through mode with the given
// equipment fingerprint.
func New(collab Collaborators, store *backup.Store, mode importmode.Mode, fp model.EquipmentFingerprint, opts ...Option) *Resolver {
	b := mode.Behavior()
	r := &Resolver{
		collab:   collab,
		store:    store,
		arena:    model.NewArena(),
		behavior: b,
		tagger:   compat.Tagger{Enabled: b.MatchEquipment, Fingerprint: fp},
		logger:   zap.NewNop(),
		metrics:  nopRecorder{},
		admins:   make(map[model.ID]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("mode", string(mode)))
	return r
}

// Context returns the current context.
func (r *Resolver) Context() model.ImportContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}

// Snapshot resolves the current context against the known entities.
func (r *Resolver) Snapshot() model.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.arena.Resolve(r.ctx)
}

// Candidates returns a copy of a level's candidate list.
func (r *Resolver) Candidates(level model.Level) []Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !level.Valid() {
		return nil
	}
	return append([]Candidate(nil), r.candidates[level]...)
}

// Select sets level to id and cascades downstream. Selecting the value a
// level already holds changes nothing, unless listing the candidates of
// the next level failed: that listing is retried.
func (r *Resolver) Select(ctx context.Context, level model.Level, id model.ID) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out Outcome
	if err := r.checkSelectable(level, id); err != nil {
		return r.finish(&out), err
	}
	if r.ctx.Get(level) == id {
		if next := level + 1; next.Valid() && r.failed[next] {
			r.logger.Debug("retrying candidate listing", zap.Stringer("level", next))
			r.cascade(ctx, level, r.begin(next), &out)
		}
		return r.finish(&out), nil
	}
	r.apply(ctx, level, id, &out)
	return r.finish(&out), nil
}

// Clear unsets level and everything downstream of it. The level keeps its
// candidate list so it can be picked again.
func (r *Resolver) Clear(level model.Level) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out Outcome
	if !level.Valid() {
		return r.finish(&out), eris.Wrapf(ErrUnknownLevel, "clear level %d", level)
	}
	r.begin(level)
	r.ctx.Set(level, 0)
	r.ctx.ClearAfter(level)
	r.dropCandidatesAfter(level)
	r.metrics.Transition(level)
	r.persist()
	return r.finish(&out), nil
}

// SetUseStudyCard flips the study-card switch.
//
// Turning it on lists the study's cards and selects the only compatible
// one. Turning it off clears the study card but keeps the center, and
// what follows it, as long as one of the study's cards uses equipment of
// that center; otherwise the cascade restarts at the center.
func (r *Resolver) SetUseStudyCard(ctx context.Context, on bool) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out Outcome
	if r.ctx.UseStudyCard == on {
		return r.finish(&out), nil
	}
	r.ctx.UseStudyCard = on
	r.seq++
	pass := r.seq
	r.gen[model.LevelStudyCard] = pass

	if on {
		r.stamp(model.LevelStudyCard, pass)
		r.metrics.Transition(model.LevelStudyCard)
		r.persist()
		if r.ctx.StudyID.IsZero() {
			return r.finish(&out), nil
		}
		if next, ok := r.listStudyCards(ctx, pass, &out); ok {
			r.cascade(ctx, next, pass, &out)
		}
		return r.finish(&out), nil
	}

	cards := r.candidates[model.LevelStudyCard]
	r.candidates[model.LevelStudyCard] = nil
	r.ctx.StudyCardID = 0
	r.metrics.Transition(model.LevelStudyCard)

	if r.ctx.StudyID.IsZero() {
		r.persist()
		return r.finish(&out), nil
	}
	if !r.ctx.CenterID.IsZero() && r.centerBackedByCard(cards) {
		r.persist()
		return r.finish(&out), nil
	}

	r.stamp(model.LevelStudyCard, pass)
	r.ctx.ClearAfter(model.LevelStudyCard)
	r.dropCandidatesAfter(model.LevelCenter)
	r.persist()
	r.logger.Debug("study cards off, cascade restarts at center")
	if next, ok := r.fillCenters(pass, &out); ok {
		r.cascade(ctx, next, pass, &out)
	}
	return r.finish(&out), nil
}

func (r *Resolver) centerBackedByCard(cards []Candidate) bool {
	for _, cand := range cards {
		card, ok := r.arena.StudyCard(cand.ID)
		if !ok || card.EquipmentID.IsZero() {
			continue
		}
		if c, ok := r.arena.OwningCenter(r.ctx.StudyID, card.EquipmentID); ok && c.ID == r.ctx.CenterID {
			return true
		}
	}
	return false
}

func (r *Resolver) checkSelectable(level model.Level, id model.ID) error {
	if !level.Valid() {
		return eris.Wrapf(ErrUnknownLevel, "select level %d", level)
	}
	if parent, ok := model.Parent(level); ok && r.ctx.Get(parent).IsZero() {
		return eris.Wrapf(ErrOrphanSelection, "select %s while %s is unset", level, parent)
	}
	if level == model.LevelStudyCard && !r.ctx.UseStudyCard {
		return ErrStudyCardDisabled
	}
	if !r.hasCandidate(level, id) {
		return eris.Wrapf(ErrUnknownCandidate, "select %s %d", level, id)
	}
	return nil
}

func (r *Resolver) hasCandidate(level model.Level, id model.ID) bool {
	if id.IsZero() {
		return false
	}
	for _, c := range r.candidates[level] {
		if c.ID == id {
			return true
		}
	}
	return false
}

// begin starts a selection pass invalidating level and everything after it.
func (r *Resolver) begin(level model.Level) uint64 {
	r.seq++
	for l := level; l <= model.LevelConverter; l++ {
		r.gen[l] = r.seq
	}
	return r.seq
}

// stamp marks every level after level as invalidated by pass.
func (r *Resolver) stamp(level model.Level, pass uint64) {
	for l := level + 1; l <= model.LevelConverter; l++ {
		r.gen[l] = pass
	}
}

// apply runs a full selection pass.
func (r *Resolver) apply(ctx context.Context, level model.Level, id model.ID, out *Outcome) {
	pass := r.begin(level)
	r.choose(level, id, pass, out, false)
	r.cascade(ctx, level, pass, out)
}

// choose sets a level inside pass and clears what follows it.
func (r *Resolver) choose(level model.Level, id model.ID, pass uint64, out *Outcome, auto bool) {
	r.stamp(level, pass)
	r.ctx.Set(level, id)
	r.ctx.ClearAfter(level)
	r.dropCandidatesAfter(level)
	r.metrics.Transition(level)
	log := r.logger.With(zap.Stringer("level", level), zap.Int64("id", int64(id)))
	if auto {
		out.AutoSelected = append(out.AutoSelected, level)
		r.metrics.AutoSelected(level)
		log.Debug("auto-selected")
	} else {
		log.Debug("selected")
	}
	r.persist()
}

func (r *Resolver) dropCandidatesAfter(level model.Level) {
	for l := level + 1; l <= model.LevelConverter; l++ {
		r.candidates[l] = nil
		r.failed[l] = false
	}
}

func (r *Resolver) persist() {
	if err := r.store.Write(r.ctx); err != nil {
		r.logger.Warn("backup write failed", zap.Error(err))
		return
	}
	if err := r.store.Commit(r.ctx); err != nil && !eris.Is(err, backup.ErrIncomplete) {
		r.logger.Warn("backup commit failed", zap.Error(err))
	}
}

func (r *Resolver) finish(out *Outcome) Outcome {
	out.Context = r.ctx
	out.Missing = validation.Missing(r.ctx)
	out.Complete = len(out.Missing) == 0
	return *out
}
