package registry

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mrsinham/importctx/internal/model"
)

func (s *Store) allocate() model.ID {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) studyIndex(id model.ID) int {
	return slices.IndexFunc(s.data.Studies, func(st model.Study) bool { return st.ID == id })
}

func (s *Store) centerIndex(id model.ID) int {
	return slices.IndexFunc(s.data.Centers, func(c model.Center) bool { return c.ID == id })
}

// CreateCenter registers a center and associates it with a study.
func (s *Store) CreateCenter(ctx context.Context, studyID model.ID, c model.Center) (model.Center, error) {
	if err := ctx.Err(); err != nil {
		return model.Center{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	si := s.studyIndex(studyID)
	if si < 0 {
		return model.Center{}, eris.Wrapf(ErrNotFound, "study %d", studyID)
	}
	c.ID = s.allocate()
	c.Equipment = nil
	s.data.Centers = append(s.data.Centers, c)
	s.data.Studies[si].Centers = append(s.data.Studies[si].Centers, model.StudyCenter{CenterID: c.ID})
	s.logger.Info("center created", zap.Int64("id", int64(c.ID)), zap.Int64("study", int64(studyID)))
	return c, nil
}

// CreateEquipment registers an equipment under its CenterID.
func (s *Store) CreateEquipment(ctx context.Context, eq model.AcquisitionEquipment) (model.AcquisitionEquipment, error) {
	if err := ctx.Err(); err != nil {
		return model.AcquisitionEquipment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ci := s.centerIndex(eq.CenterID)
	if ci < 0 {
		return model.AcquisitionEquipment{}, eris.Wrapf(ErrNotFound, "center %d", eq.CenterID)
	}
	eq.ID = s.allocate()
	s.data.Centers[ci].Equipment = append(s.data.Centers[ci].Equipment, eq)
	s.logger.Info("equipment created", zap.Int64("id", int64(eq.ID)), zap.Int64("center", int64(eq.CenterID)))
	return eq, nil
}

// CreateSubject registers a subject. Every subject-study association must
// reference a known study.
func (s *Store) CreateSubject(ctx context.Context, sub model.Subject) (model.Subject, error) {
	if err := ctx.Err(); err != nil {
		return model.Subject{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ss := range sub.SubjectStudies {
		if s.studyIndex(ss.StudyID) < 0 {
			return model.Subject{}, eris.Wrapf(ErrNotFound, "study %d", ss.StudyID)
		}
	}
	sub.ID = s.allocate()
	sub.SubjectStudies = slices.Clone(sub.SubjectStudies)
	for i := range sub.SubjectStudies {
		sub.SubjectStudies[i].SubjectID = sub.ID
	}
	s.data.Subjects = append(s.data.Subjects, sub)
	s.logger.Info("subject created", zap.Int64("id", int64(sub.ID)))
	return sub, nil
}

// CreateExamination registers an examination.
func (s *Store) CreateExamination(ctx context.Context, e model.Examination) (model.Examination, error) {
	if err := ctx.Err(); err != nil {
		return model.Examination{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.studyIndex(e.StudyID) < 0 {
		return model.Examination{}, eris.Wrapf(ErrNotFound, "study %d", e.StudyID)
	}
	if s.centerIndex(e.CenterID) < 0 {
		return model.Examination{}, eris.Wrapf(ErrNotFound, "center %d", e.CenterID)
	}
	if !slices.ContainsFunc(s.data.Subjects, func(sub model.Subject) bool { return sub.ID == e.SubjectID }) {
		return model.Examination{}, eris.Wrapf(ErrNotFound, "subject %d", e.SubjectID)
	}
	e.ID = s.allocate()
	s.data.Examinations = append(s.data.Examinations, e)
	s.logger.Info("examination created", zap.Int64("id", int64(e.ID)))
	return e, nil
}

// UpdateStudyCard replaces an existing study card.
func (s *Store) UpdateStudyCard(ctx context.Context, card model.StudyCard) (model.StudyCard, error) {
	if err := ctx.Err(); err != nil {
		return model.StudyCard{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.data.StudyCards, func(c model.StudyCard) bool { return c.ID == card.ID })
	if i < 0 {
		return model.StudyCard{}, eris.Wrapf(ErrNotFound, "study card %d", card.ID)
	}
	s.data.StudyCards[i] = card
	s.logger.Info("study card updated", zap.Int64("id", int64(card.ID)))
	return card, nil
}
