package registry

import (
	"context"
	"slices"

	"github.com/mrsinham/importctx/internal/model"
)

// ListStudiesWithCenters lists every study with its center associations.
func (s *Store) ListStudiesWithCenters(ctx context.Context) ([]model.Study, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Study, len(s.data.Studies))
	for i, st := range s.data.Studies {
		st.Centers = slices.Clone(st.Centers)
		out[i] = st
	}
	return out, nil
}

// ListCenters lists every center with its acquisition equipment.
func (s *Store) ListCenters(ctx context.Context) ([]model.Center, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Center, len(s.data.Centers))
	for i, c := range s.data.Centers {
		c.Equipment = slices.Clone(c.Equipment)
		out[i] = c
	}
	return out, nil
}

// ListStudyCardsForStudy lists the study cards of a study.
func (s *Store) ListStudyCardsForStudy(ctx context.Context, studyID model.ID) ([]model.StudyCard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.StudyCard
	for _, c := range s.data.StudyCards {
		if c.StudyID == studyID {
			c.Rules = slices.Clone(c.Rules)
			out = append(out, c)
		}
	}
	return out, nil
}

// ListSubjectsForStudy lists the subjects associated with a study whose
// preclinical flag equals preclinical.
func (s *Store) ListSubjectsForStudy(ctx context.Context, studyID model.ID, preclinical bool) ([]model.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Subject
	for _, sub := range s.data.Subjects {
		if sub.InStudy(studyID) && sub.Preclinical == preclinical {
			sub.SubjectStudies = slices.Clone(sub.SubjectStudies)
			out = append(out, sub)
		}
	}
	return out, nil
}

// ListExaminationsForSubjectAndStudy lists the examinations of a subject
// within a study.
func (s *Store) ListExaminationsForSubjectAndStudy(ctx context.Context, subjectID, studyID model.ID) ([]model.Examination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Examination
	for _, e := range s.data.Examinations {
		if e.SubjectID == subjectID && e.StudyID == studyID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListConverters lists the available NIfTI converters.
func (s *Store) ListConverters(ctx context.Context) ([]model.Converter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.Converters), nil
}

// GetMyRightsForStudy returns the rights the operator holds on a study.
func (s *Store) GetMyRightsForStudy(ctx context.Context, studyID model.ID) ([]model.Right, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.Rights[studyID]), nil
}
