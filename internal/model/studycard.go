package model

import "strings"

// ModalityField is the assignment field carrying the dataset modality type,
// e.g. "MR_DATASET".
const ModalityField = "MODALITY_TYPE"

// NeedsCoilUpdate reports whether any coil assignment of the card still
// holds an unresolved value.
func (c StudyCard) NeedsCoilUpdate() bool {
	for _, r := range c.Rules {
		for _, a := range r.Assignments {
			if strings.HasSuffix(a.Field, "_COIL") && a.Coil == nil {
				return true
			}
		}
	}
	return false
}

// ModalityMismatch returns the modality a card assigns when it differs from
// the scan modality. The card value's prefix before the first underscore is
// compared against the upper-cased scan modality.
func (c StudyCard) ModalityMismatch(scanModality string) (string, bool) {
	if scanModality == "" {
		return "", false
	}
	want := strings.ToUpper(scanModality)
	for _, r := range c.Rules {
		for _, a := range r.Assignments {
			if a.Field != ModalityField || a.Value == "" {
				continue
			}
			got, _, _ := strings.Cut(a.Value, "_")
			if got != want {
				return got, true
			}
		}
	}
	return "", false
}
