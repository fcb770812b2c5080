package resolver

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mrsinham/importctx/internal/model"
)

// Merge brings an entity created or edited outside the cascade into it. The
// entity is registered at level, added to the level's candidates and
// selected, and the cascade continues downstream of it.
//
// A merge whose parent level has been unset in the meantime is ignored.
func (r *Resolver) Merge(ctx context.Context, level model.Level, entity any) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out Outcome
	log := r.logger.With(zap.Stringer("level", level))
	if parent, ok := model.Parent(level); ok && r.ctx.Get(parent).IsZero() {
		log.Warn("merge ignored, parent level is unset", zap.Stringer("parent", parent))
		return r.finish(&out), nil
	}

	var cand Candidate
	switch e := entity.(type) {
	case model.Center:
		if level != model.LevelCenter {
			return r.finish(&out), eris.Wrapf(ErrEntityMismatch, "center merged at %s", level)
		}
		r.arena.PutCenter(e)
		r.arena.AddStudyCenter(r.ctx.StudyID, e.ID)
		c, _ := r.arena.Center(e.ID)
		cand = r.centerCandidate(c)

	case model.AcquisitionEquipment:
		if level != model.LevelEquipment {
			return r.finish(&out), eris.Wrapf(ErrEntityMismatch, "equipment merged at %s", level)
		}
		switch {
		case e.CenterID.IsZero():
			e.CenterID = r.ctx.CenterID
		case e.CenterID != r.ctx.CenterID:
			return r.finish(&out), eris.Wrapf(ErrEntityMismatch, "equipment of center %d merged under center %d", e.CenterID, r.ctx.CenterID)
		}
		if !r.arena.PutEquipment(e) {
			return r.finish(&out), eris.Wrapf(ErrUnknownCandidate, "equipment %d: center %d", e.ID, e.CenterID)
		}
		cand = r.equipmentCandidate(e)

	case model.Subject:
		if level != model.LevelSubject {
			return r.finish(&out), eris.Wrapf(ErrEntityMismatch, "subject merged at %s", level)
		}
		r.arena.PutSubject(e)
		cand = subjectCandidate(e)

	case model.Examination:
		if level != model.LevelExamination {
			return r.finish(&out), eris.Wrapf(ErrEntityMismatch, "examination merged at %s", level)
		}
		r.arena.PutExamination(e)
		cand = examinationCandidate(e)

	case model.StudyCard:
		if level != model.LevelStudyCard {
			return r.finish(&out), eris.Wrapf(ErrEntityMismatch, "study card merged at %s", level)
		}
		if !r.ctx.UseStudyCard {
			return r.finish(&out), ErrStudyCardDisabled
		}
		r.arena.PutStudyCard(e)
		cand = r.studyCardCandidate(e)

	default:
		return r.finish(&out), eris.Wrapf(ErrEntityMismatch, "%T merged at %s", entity, level)
	}

	r.upsertCandidate(level, cand)
	r.retag()
	r.metrics.Merged(level)
	log.Info("entity merged", zap.Int64("id", int64(cand.ID)))

	r.apply(ctx, level, cand.ID, &out)
	return r.finish(&out), nil
}

func (r *Resolver) upsertCandidate(level model.Level, cand Candidate) {
	for i, c := range r.candidates[level] {
		if c.ID == cand.ID {
			r.candidates[level][i] = cand
			return
		}
	}
	r.candidates[level] = append(r.candidates[level], cand)
}

// Replay restores a context backed up earlier by selecting each of its
// levels in cascade order. Levels that already hold the saved value are
// skipped. Replay stops at the first saved value that is no longer a
// candidate and returns the context reached so far.
func (r *Resolver) Replay(ctx context.Context, saved model.ImportContext) (Outcome, error) {
	var acc Outcome
	gather := func(o Outcome) {
		acc.AutoSelected = append(acc.AutoSelected, o.AutoSelected...)
		acc.Notices = append(acc.Notices, o.Notices...)
		acc.Stale = acc.Stale || o.Stale
		acc.Context, acc.Complete, acc.Missing = o.Context, o.Complete, o.Missing
	}

	o, err := r.SetUseStudyCard(ctx, saved.UseStudyCard)
	gather(o)
	if err != nil {
		return acc, err
	}

	for _, l := range model.Levels() {
		id := saved.Get(l)
		if id.IsZero() || (l == model.LevelStudyCard && !saved.UseStudyCard) {
			continue
		}
		if r.Context().Get(l) == id {
			continue
		}
		o, err := r.Select(ctx, l, id)
		gather(o)
		if eris.Is(err, ErrUnknownCandidate) || eris.Is(err, ErrOrphanSelection) {
			r.logger.Info("replay stopped", zap.Stringer("level", l), zap.Int64("id", int64(id)))
			break
		}
		if err != nil {
			return acc, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finish(&acc), nil
}
