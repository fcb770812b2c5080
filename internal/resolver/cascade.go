package resolver

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mrsinham/importctx/internal/compat"
	"github.com/mrsinham/importctx/internal/model"
)

// Load lists the studies and centers of the registry, tags every study
// against the fingerprint and selects the study when it is the only
// compatible one. The context is reset.
func (r *Resolver) Load(ctx context.Context) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out Outcome
	pass := r.begin(model.LevelStudy)

	type registry struct {
		studies []model.Study
		centers []model.Center
	}
	reg, ok := fetch(ctx, r, model.LevelStudy, pass, &out, func(ctx context.Context) (registry, error) {
		var reg registry
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			studies, err := r.collab.ListStudiesWithCenters(gctx)
			if err != nil {
				return eris.Wrap(err, "list studies")
			}
			reg.studies = studies
			return nil
		})
		g.Go(func() error {
			centers, err := r.collab.ListCenters(gctx)
			if err != nil {
				return eris.Wrap(err, "list centers")
			}
			reg.centers = centers
			return nil
		})
		err := g.Wait()
		return reg, err
	})
	if !ok {
		return r.finish(&out), nil
	}

	for _, c := range reg.centers {
		r.arena.PutCenter(c)
	}
	cands := make([]Candidate, 0, len(reg.studies))
	for _, s := range reg.studies {
		r.arena.PutStudy(s)
		cands = append(cands, r.studyCandidate(s))
	}
	r.ctx = model.ImportContext{UseStudyCard: r.ctx.UseStudyCard}
	r.candidates[model.LevelStudy] = cands
	r.dropCandidatesAfter(model.LevelStudy)
	r.persist()
	r.logger.Debug("registry loaded", zap.Int("studies", len(reg.studies)), zap.Int("centers", len(reg.centers)))

	if id, ok := r.pick(cands); ok {
		r.choose(model.LevelStudy, id, pass, &out, true)
		r.cascade(ctx, model.LevelStudy, pass, &out)
	}
	return r.finish(&out), nil
}

// cascade advances level by level from a freshly set level until a level
// cannot be filled by the resolver. A level is never filled twice in the
// same pass.
func (r *Resolver) cascade(ctx context.Context, from model.Level, pass uint64, out *Outcome) {
	var visited [model.NumLevels]bool
	visited[from] = true
	cur := from
	for {
		next, ok := r.advance(ctx, cur, pass, out)
		if !ok || visited[next] {
			return
		}
		visited[next] = true
		cur = next
	}
}

// advance lists the candidates that follow cur and returns the level it
// filled, if any.
func (r *Resolver) advance(ctx context.Context, cur model.Level, pass uint64, out *Outcome) (model.Level, bool) {
	switch cur {
	case model.LevelStudy:
		if r.ctx.UseStudyCard {
			r.candidates[model.LevelCenter] = r.centerCandidates(r.ctx.StudyID)
			return r.listStudyCards(ctx, pass, out)
		}
		return r.fillCenters(pass, out)

	case model.LevelStudyCard:
		return r.deriveFromCard(pass, out)

	case model.LevelCenter:
		c, ok := r.arena.Center(r.ctx.CenterID)
		if !ok {
			return 0, false
		}
		return r.offer(model.LevelEquipment, r.equipmentCandidates(c), pass, out)

	case model.LevelEquipment:
		studyID, preclinical := r.ctx.StudyID, r.behavior.Preclinical
		subjects, ok := fetch(ctx, r, model.LevelSubject, pass, out, func(ctx context.Context) ([]model.Subject, error) {
			return r.collab.ListSubjectsForStudy(ctx, studyID, preclinical)
		})
		if !ok {
			return 0, false
		}
		cands := make([]Candidate, 0, len(subjects))
		for _, s := range subjects {
			r.arena.PutSubject(s)
			cands = append(cands, subjectCandidate(s))
		}
		return r.offer(model.LevelSubject, cands, pass, out)

	case model.LevelSubject:
		subjectID, studyID := r.ctx.SubjectID, r.ctx.StudyID
		exams, ok := fetch(ctx, r, model.LevelExamination, pass, out, func(ctx context.Context) ([]model.Examination, error) {
			return r.collab.ListExaminationsForSubjectAndStudy(ctx, subjectID, studyID)
		})
		if !ok {
			return 0, false
		}
		cands := make([]Candidate, 0, len(exams))
		for _, e := range exams {
			r.arena.PutExamination(e)
			cands = append(cands, examinationCandidate(e))
		}
		return r.offer(model.LevelExamination, cands, pass, out)

	case model.LevelExamination:
		converters, ok := fetch(ctx, r, model.LevelConverter, pass, out, r.collab.ListConverters)
		if !ok {
			return 0, false
		}
		cands := make([]Candidate, 0, len(converters))
		for _, c := range converters {
			r.arena.PutConverter(c)
			cands = append(cands, converterCandidate(c))
		}
		if id, ok := r.cardConverter(cands); ok {
			r.candidates[model.LevelConverter] = cands
			r.choose(model.LevelConverter, id, pass, out, true)
			return model.LevelConverter, true
		}
		return r.offer(model.LevelConverter, cands, pass, out)
	}
	return 0, false
}

// fetch calls a collaborator without the lock held. The result is dropped
// when target, or any level after it, was touched by a newer pass in the
// meantime, or when the call failed; a failure is reported as a notice.
func fetch[T any](ctx context.Context, r *Resolver, target model.Level, pass uint64, out *Outcome, call func(context.Context) (T, error)) (T, bool) {
	r.mu.Unlock()
	res, err := call(ctx)
	r.mu.Lock()

	var zero T
	log := r.logger.With(zap.Stringer("level", target))
	if current, ok := r.supersededAfter(target, pass); ok {
		out.Stale = true
		r.metrics.StaleDiscarded(target)
		log.Debug("discarded superseded candidates", zap.Uint64("pass", pass), zap.Uint64("current", current))
		return zero, false
	}
	if err != nil {
		r.failed[target] = true
		out.Notices = append(out.Notices, Notice{Level: target, Err: err})
		r.metrics.FetchFailed(target)
		log.Warn("listing candidates failed", zap.Error(err))
		return zero, false
	}
	r.failed[target] = false
	return res, true
}

// supersededAfter returns the newest pass that stamped target or a later
// level, if it is not pass. Applying a result rewrites every level after
// target, so a newer selection on any of them wins.
func (r *Resolver) supersededAfter(target model.Level, pass uint64) (uint64, bool) {
	for l := target; l <= model.LevelConverter; l++ {
		if r.gen[l] != pass {
			return r.gen[l], true
		}
	}
	return 0, false
}

// offer installs a level's candidates and fills the level when the choice
// is unambiguous.
func (r *Resolver) offer(level model.Level, cands []Candidate, pass uint64, out *Outcome) (model.Level, bool) {
	r.candidates[level] = cands
	id, ok := r.pick(cands)
	if !ok {
		return 0, false
	}
	r.choose(level, id, pass, out, true)
	return level, true
}

// pick returns the candidate the resolver may select by itself. With
// equipment matching, that is the only compatible candidate. Without it,
// nothing is picked unless sole candidates are filled.
func (r *Resolver) pick(cands []Candidate) (model.ID, bool) {
	if r.behavior.MatchEquipment {
		var id model.ID
		n := 0
		for _, c := range cands {
			if c.Compat == compat.Compatible {
				id = c.ID
				n++
			}
		}
		return id, n == 1
	}
	if r.fillSole && len(cands) == 1 {
		return cands[0].ID, true
	}
	return 0, false
}

func (r *Resolver) fillCenters(pass uint64, out *Outcome) (model.Level, bool) {
	return r.offer(model.LevelCenter, r.centerCandidates(r.ctx.StudyID), pass, out)
}

func (r *Resolver) listStudyCards(ctx context.Context, pass uint64, out *Outcome) (model.Level, bool) {
	studyID := r.ctx.StudyID
	cards, ok := fetch(ctx, r, model.LevelStudyCard, pass, out, func(ctx context.Context) ([]model.StudyCard, error) {
		return r.collab.ListStudyCardsForStudy(ctx, studyID)
	})
	if !ok {
		return 0, false
	}
	cands := make([]Candidate, 0, len(cards))
	for _, c := range cards {
		r.arena.PutStudyCard(c)
		cands = append(cands, r.studyCardCandidate(c))
	}
	return r.offer(model.LevelStudyCard, cands, pass, out)
}

// deriveFromCard fills center and equipment from the selected study card.
// The center is the first center of the study owning the card's equipment.
// When nothing can be derived the operator picks the center.
func (r *Resolver) deriveFromCard(pass uint64, out *Outcome) (model.Level, bool) {
	r.candidates[model.LevelCenter] = r.centerCandidates(r.ctx.StudyID)
	card, ok := r.arena.StudyCard(r.ctx.StudyCardID)
	if !ok || card.EquipmentID.IsZero() {
		return 0, false
	}
	log := r.logger.With(zap.Int64("studycard", int64(card.ID)))
	if r.tagger.StudyCard(card, r.arena) == compat.Incompatible {
		log.Debug("study card equipment does not match the scan")
		return 0, false
	}
	center, ok := r.arena.OwningCenter(r.ctx.StudyID, card.EquipmentID)
	if !ok {
		log.Debug("study card equipment is not in any center of the study")
		return 0, false
	}
	r.choose(model.LevelCenter, center.ID, pass, out, true)
	r.candidates[model.LevelEquipment] = r.equipmentCandidates(center)
	r.choose(model.LevelEquipment, card.EquipmentID, pass, out, true)
	return model.LevelEquipment, true
}

// cardConverter returns the converter stored on the active study card when
// it is one of the candidates.
func (r *Resolver) cardConverter(cands []Candidate) (model.ID, bool) {
	if !r.ctx.UseStudyCard {
		return 0, false
	}
	card, ok := r.arena.StudyCard(r.ctx.StudyCardID)
	if !ok || card.ConverterID.IsZero() {
		return 0, false
	}
	for _, c := range cands {
		if c.ID == card.ConverterID {
			return c.ID, true
		}
	}
	return 0, false
}

func (r *Resolver) studyCandidate(s model.Study) Candidate {
	return Candidate{ID: s.ID, Label: s.Name, Compat: r.tagger.Study(s, r.arena)}
}

func (r *Resolver) studyCardCandidate(c model.StudyCard) Candidate {
	return Candidate{ID: c.ID, Label: c.Name, Compat: r.tagger.StudyCard(c, r.arena)}
}

func (r *Resolver) centerCandidate(c model.Center) Candidate {
	return Candidate{ID: c.ID, Label: c.Name, Compat: r.tagger.Center(c)}
}

func (r *Resolver) equipmentCandidate(eq model.AcquisitionEquipment) Candidate {
	return Candidate{ID: eq.ID, Label: eq.Label(), Compat: r.tagger.Equipment(eq)}
}

func (r *Resolver) centerCandidates(studyID model.ID) []Candidate {
	centers := r.arena.StudyCenters(studyID)
	cands := make([]Candidate, 0, len(centers))
	for _, c := range centers {
		cands = append(cands, r.centerCandidate(c))
	}
	return cands
}

func (r *Resolver) equipmentCandidates(c model.Center) []Candidate {
	cands := make([]Candidate, 0, len(c.Equipment))
	for _, eq := range c.Equipment {
		cands = append(cands, r.equipmentCandidate(eq))
	}
	return cands
}

func subjectCandidate(s model.Subject) Candidate {
	return Candidate{ID: s.ID, Label: s.Name}
}

func examinationCandidate(e model.Examination) Candidate {
	return Candidate{ID: e.ID, Label: e.Label()}
}

func converterCandidate(c model.Converter) Candidate {
	return Candidate{ID: c.ID, Label: c.Identifier}
}

// retag recomputes the compatibility of the registry-backed candidate
// lists after the registry changed.
func (r *Resolver) retag() {
	for i, c := range r.candidates[model.LevelStudy] {
		if s, ok := r.arena.Study(c.ID); ok {
			r.candidates[model.LevelStudy][i] = r.studyCandidate(s)
		}
	}
	for i, c := range r.candidates[model.LevelStudyCard] {
		if card, ok := r.arena.StudyCard(c.ID); ok {
			r.candidates[model.LevelStudyCard][i] = r.studyCardCandidate(card)
		}
	}
	for i, c := range r.candidates[model.LevelCenter] {
		if center, ok := r.arena.Center(c.ID); ok {
			r.candidates[model.LevelCenter][i] = r.centerCandidate(center)
		}
	}
	for i, c := range r.candidates[model.LevelEquipment] {
		if eq, ok := r.arena.Equipment(c.ID); ok {
			r.candidates[model.LevelEquipment][i] = r.equipmentCandidate(eq)
		}
	}
}
