package resolver

import (
	"context"
	"fmt"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/mrsinham/importctx/internal/model"
)

// AdminOfStudy reports whether the operator may administer a study and its
// study cards. Platform admins always may, non-experts never do, and experts
// may when they hold CAN_ADMINISTRATE on the study. Answers are cached for
// the life of the resolver.
func (r *Resolver) AdminOfStudy(ctx context.Context, studyID model.ID) (bool, error) {
	r.mu.Lock()
	p := r.principal
	cached, ok := r.admins[studyID]
	r.mu.Unlock()

	switch {
	case p.Admin:
		return true, nil
	case !p.Expert:
		return false, nil
	case ok:
		return cached, nil
	}

	rights, err := r.collab.GetMyRightsForStudy(ctx, studyID)
	if err != nil {
		return false, eris.Wrapf(err, "rights for study %d", studyID)
	}
	admin := slices.Contains(rights, model.CanAdministrate)

	r.mu.Lock()
	r.admins[studyID] = admin
	r.mu.Unlock()
	return admin, nil
}

// WarningCode identifies a study card warning.
type WarningCode string

const (
	WarnCoilUpdate       WarningCode = "coil-update"
	WarnModalityMismatch WarningCode = "modality-mismatch"
)

// Warning is an advisory about the selected study card.
type Warning struct {
	Code    WarningCode
	Message string
}

// CardWarnings lists what the operator should know about the selected study
// card before importing with it.
func (r *Resolver) CardWarnings() []Warning {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.ctx.UseStudyCard {
		return nil
	}
	card, ok := r.arena.StudyCard(r.ctx.StudyCardID)
	if !ok {
		return nil
	}
	var warnings []Warning
	if card.NeedsCoilUpdate() {
		warnings = append(warnings, Warning{
			Code:    WarnCoilUpdate,
			Message: fmt.Sprintf("study card %q has coil assignments that no longer resolve to a coil", card.Name),
		})
	}
	if got, mismatch := card.ModalityMismatch(r.scanModality); mismatch {
		warnings = append(warnings, Warning{
			Code:    WarnModalityMismatch,
			Message: fmt.Sprintf("study card %q assigns %s datasets to a %s scan", card.Name, got, r.scanModality),
		})
	}
	return warnings
}
