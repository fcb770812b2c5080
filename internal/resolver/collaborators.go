package resolver

import (
	"context"
	"fmt"

	"github.com/mrsinham/importctx/internal/compat"
	"github.com/mrsinham/importctx/internal/model"
)

// Collaborators are the organizational services the cascade lists
// candidates from. Calls may block; the resolver never holds its lock while
// one is in flight.
type Collaborators interface {
	ListStudiesWithCenters(ctx context.Context) ([]model.Study, error)
	ListCenters(ctx context.Context) ([]model.Center, error)
	ListStudyCardsForStudy(ctx context.Context, studyID model.ID) ([]model.StudyCard, error)
	ListSubjectsForStudy(ctx context.Context, studyID model.ID, preclinical bool) ([]model.Subject, error)
	ListExaminationsForSubjectAndStudy(ctx context.Context, subjectID, studyID model.ID) ([]model.Examination, error)
	ListConverters(ctx context.Context) ([]model.Converter, error)
	GetMyRightsForStudy(ctx context.Context, studyID model.ID) ([]model.Right, error)
}

// Recorder receives cascade events. The metrics package provides a
// Prometheus implementation.
type Recorder interface {
	Transition(level model.Level)
	AutoSelected(level model.Level)
	StaleDiscarded(level model.Level)
	FetchFailed(level model.Level)
	Merged(level model.Level)
}

type nopRecorder struct{}

func (nopRecorder) Transition(model.Level)     {}
func (nopRecorder) AutoSelected(model.Level)   {}
func (nopRecorder) StaleDiscarded(model.Level) {}
func (nopRecorder) FetchFailed(model.Level)    {}
func (nopRecorder) Merged(model.Level)         {}

// Candidate is one entry of a level's candidate list.
type Candidate struct {
	ID     model.ID
	Label  string
	Compat compat.Compatibility
}

// Notice is a non-fatal problem met during a cascade pass, such as a
// collaborator that failed to list candidates.
type Notice struct {
	Level model.Level
	Err   error
}

// Message is the generic text shown to the operator.
func (n Notice) Message() string {
	return fmt.Sprintf("could not load %s candidates", n.Level)
}

// Outcome describes the state reached after an operation.
type Outcome struct {
	Context model.ImportContext
	// AutoSelected lists the levels filled by the resolver itself, in
	// the order they were filled.
	AutoSelected []model.Level
	Notices      []Notice
	// Stale is set when a fetch result was discarded because a newer
	// selection superseded it.
	Stale    bool
	Complete bool
	Missing  []model.Level
}
