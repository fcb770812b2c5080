// Package validation decides whether an import context is complete enough
// for the wizard to proceed.
package validation

import "github.com/mrsinham/importctx/internal/model"

// IsComplete reports whether study, center, equipment, subject, examination
// and converter are all set, and the study card too when study cards are in
// use.
func IsComplete(c model.ImportContext) bool {
	return len(Missing(c)) == 0
}

// Missing lists the unset levels that keep c incomplete, in cascade order.
func Missing(c model.ImportContext) []model.Level {
	var missing []model.Level
	for _, l := range model.Levels() {
		if l == model.LevelStudyCard && !c.UseStudyCard {
			continue
		}
		if c.Get(l).IsZero() {
			missing = append(missing, l)
		}
	}
	return missing
}

// Gate is the predicate form of IsComplete, for components that take the
// gate as a dependency.
type Gate func(model.ImportContext) bool

// Default is the completeness gate used by the wizard.
var Default Gate = IsComplete
