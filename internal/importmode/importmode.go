// Package importmode enumerates the pathways a scan can arrive through and
// the cascade behaviour attached to each.
package importmode

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mrsinham/importctx/internal/model"
)

// Mode is an import pathway.
type Mode string

const (
	DirectTransfer Mode = "DICOM"  // archive uploaded straight from the scanner
	RemoteQuery    Mode = "PACS"   // retrieved from a remote archive
	Electro        Mode = "EEG"    // electrophysiology
	SmallAnimal    Mode = "BRUKER" // preclinical scanner export
	OpenFormat     Mode = "BIDS"   // already-converted open dataset
)

// ErrUnknownMode is returned by Parse for unrecognised modes.
var ErrUnknownMode = eris.New("unknown import mode")

// Behavior is what the cascade does differently per mode.
type Behavior struct {
	// MatchEquipment enables fingerprint compatibility tagging and the
	// single-compatible-candidate auto-selection that depends on it.
	MatchEquipment bool
	// Preclinical lists preclinical subjects and builds animal drafts.
	Preclinical bool
	// SubjectCategory is stamped on subject drafts.
	SubjectCategory model.ImagedObjectCategory
}

var behaviors = map[Mode]Behavior{
	DirectTransfer: {MatchEquipment: true, SubjectCategory: model.LivingHumanBeing},
	RemoteQuery:    {SubjectCategory: model.LivingHumanBeing},
	Electro:        {SubjectCategory: model.LivingHumanBeing},
	SmallAnimal:    {Preclinical: true, SubjectCategory: model.LivingAnimal},
	OpenFormat:     {SubjectCategory: model.LivingHumanBeing},
}

// All returns every mode.
func All() []Mode {
	return []Mode{DirectTransfer, RemoteQuery, Electro, SmallAnimal, OpenFormat}
}

// Parse reads a mode name case-insensitively.
func Parse(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := behaviors[m]; !ok {
		return "", eris.Wrapf(ErrUnknownMode, "parse %q", s)
	}
	return m, nil
}

// Behavior returns the behaviour of the mode. Unknown modes behave like a
// non-matching pathway.
func (m Mode) Behavior() Behavior {
	if b, ok := behaviors[m]; ok {
		return b
	}
	return Behavior{SubjectCategory: model.LivingHumanBeing}
}
