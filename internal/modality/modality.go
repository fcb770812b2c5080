// Package modality describes the imaging modality of an incoming scan.
package modality

import "strings"

// Modality represents a DICOM imaging modality type.
type Modality string

const (
	MR Modality = "MR" // Magnetic Resonance
	CT Modality = "CT" // Computed Tomography
	PT Modality = "PT" // Positron Emission Tomography
	XA Modality = "XA" // X-Ray Angiography
	EG Modality = "EG" // Electroencephalography (non-DICOM pathway)
)

// All returns all supported modalities.
func All() []Modality {
	return []Modality{MR, CT, PT, XA, EG}
}

// IsValid checks if a modality string is valid.
func IsValid(m string) bool {
	for _, valid := range All() {
		if string(valid) == m {
			return true
		}
	}
	return false
}

// Normalize upper-cases and trims a modality read from a scan.
func Normalize(s string) Modality {
	return Modality(strings.ToUpper(strings.TrimSpace(s)))
}

// UsesStudyCardByDefault reports whether the wizard should start with study
// cards enabled. CT acquisitions are rarely covered by study cards.
func (m Modality) UsesStudyCardByDefault() bool {
	return m != CT
}
