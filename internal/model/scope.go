package model

import "github.com/rotisserie/eris"

// ListScope says which side of a subject-study association list is fixed.
type ListScope int

const (
	// ScopeSubject lists the studies of one subject.
	ScopeSubject ListScope = iota + 1
	// ScopeStudy lists the subjects of one study.
	ScopeStudy
)

var (
	// ErrAmbiguousScope means both a subject and a study were given.
	ErrAmbiguousScope = eris.New("subject-study list: cannot set both subject and study")
	// ErrMissingScope means neither a subject nor a study was given.
	ErrMissingScope = eris.New("subject-study list: either subject or study is required")
)

// ScopeOf determines the scope of a shared subject-study list. Giving both
// or neither is a programming error.
func ScopeOf(subject *Subject, study *Study) (ListScope, error) {
	switch {
	case subject != nil && study != nil:
		return 0, ErrAmbiguousScope
	case subject != nil:
		return ScopeSubject, nil
	case study != nil:
		return ScopeStudy, nil
	}
	return 0, ErrMissingScope
}

// NewSubjectStudy builds an association for the fixed side of a list and the
// picked entity on the other side. The association starts not physically
// involved.
func NewSubjectStudy(subject *Subject, study *Study, picked ID) (SubjectStudy, error) {
	scope, err := ScopeOf(subject, study)
	if err != nil {
		return SubjectStudy{}, err
	}
	if scope == ScopeStudy {
		return SubjectStudy{StudyID: study.ID, SubjectID: picked}, nil
	}
	return SubjectStudy{SubjectID: subject.ID, StudyID: picked}, nil
}
