// Package compat decides whether registered equipment matches the scanner
// fingerprint embedded in an incoming scan, and derives compatibility tags
// for the studies, centers, study cards and equipment offered to the user.
//
// Tags are always derived from the fingerprint and the registry; they are
// never stored on the entities themselves.
package compat

import (
	"github.com/mrsinham/importctx/internal/model"
)

// Compatibility tags a candidate.
type Compatibility int

const (
	// Neutral means no matching was performed for the active import mode.
	Neutral Compatibility = iota
	Compatible
	Incompatible
)

// String returns a short label for the tag.
func (c Compatibility) String() string {
	switch c {
	case Compatible:
		return "compatible"
	case Incompatible:
		return "incompatible"
	default:
		return "neutral"
	}
}

// Of converts a match result into a tag.
func Of(ok bool) Compatibility {
	if ok {
		return Compatible
	}
	return Incompatible
}

// Matches reports whether all three fingerprint fields equal the
// equipment's serial number, model name and manufacturer name exactly.
func Matches(eq model.AcquisitionEquipment, fp model.EquipmentFingerprint) bool {
	return eq.SerialNumber == fp.SerialNumber &&
		eq.Model.Name == fp.ModelName &&
		eq.Model.Manufacturer.Name == fp.ManufacturerName
}

// CenterCompatible reports whether any equipment of the center matches.
func CenterCompatible(c model.Center, fp model.EquipmentFingerprint) bool {
	for _, eq := range c.Equipment {
		if Matches(eq, fp) {
			return true
		}
	}
	return false
}

// StudyCompatible reports whether any center of the study is compatible.
// Centers are resolved through the arena; unknown centers do not count.
func StudyCompatible(s model.Study, arena *model.Arena, fp model.EquipmentFingerprint) bool {
	for _, c := range arena.StudyCenters(s.ID) {
		if CenterCompatible(c, fp) {
			return true
		}
	}
	return false
}

// StudyCardCompatible reports whether the card's equipment is one of the
// study's equipment and matches the fingerprint.
func StudyCardCompatible(card model.StudyCard, arena *model.Arena, fp model.EquipmentFingerprint) bool {
	if card.EquipmentID.IsZero() {
		return false
	}
	c, ok := arena.OwningCenter(card.StudyID, card.EquipmentID)
	if !ok {
		return false
	}
	for _, eq := range c.Equipment {
		if eq.ID == card.EquipmentID {
			return Matches(eq, fp)
		}
	}
	return false
}

// Tagger tags candidates for one fingerprint. When matching is disabled
// every tag is Neutral.
type Tagger struct {
	Enabled     bool
	Fingerprint model.EquipmentFingerprint
}

// Equipment tags a piece of equipment.
func (t Tagger) Equipment(eq model.AcquisitionEquipment) Compatibility {
	if !t.Enabled {
		return Neutral
	}
	return Of(Matches(eq, t.Fingerprint))
}

// Center tags a center.
func (t Tagger) Center(c model.Center) Compatibility {
	if !t.Enabled {
		return Neutral
	}
	return Of(CenterCompatible(c, t.Fingerprint))
}

// Study tags a study.
func (t Tagger) Study(s model.Study, arena *model.Arena) Compatibility {
	if !t.Enabled {
		return Neutral
	}
	return Of(StudyCompatible(s, arena, t.Fingerprint))
}

// StudyCard tags a study card.
func (t Tagger) StudyCard(card model.StudyCard, arena *model.Arena) Compatibility {
	if !t.Enabled {
		return Neutral
	}
	return Of(StudyCardCompatible(card, arena, t.Fingerprint))
}
