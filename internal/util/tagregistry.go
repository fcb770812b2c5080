// Package util holds the DICOM tag registry and the patient-name helpers
// used when reading an incoming scan.
package util

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// TagScope is the part of the scan a tag describes.
type TagScope int

const (
	// ScopePatient tags identify the scanned subject.
	ScopePatient TagScope = iota
	// ScopeStudy tags describe the examination.
	ScopeStudy
	// ScopeSeries tags describe one acquisition.
	ScopeSeries
	// ScopeEquipment tags identify the scanner.
	ScopeEquipment
)

// String returns the string representation of a TagScope.
func (s TagScope) String() string {
	switch s {
	case ScopePatient:
		return "Patient"
	case ScopeStudy:
		return "Study"
	case ScopeSeries:
		return "Series"
	case ScopeEquipment:
		return "Equipment"
	default:
		return "Unknown"
	}
}

// TagInfo describes a registered tag.
type TagInfo struct {
	Name  string
	Tag   tag.Tag
	Scope TagScope
}

// tagRegistry maps lowercase tag names to the tags the importer reads from
// an incoming scan.
var tagRegistry = map[string]TagInfo{
	// Patient level tags
	"patientname":      {Name: "PatientName", Tag: tag.PatientName, Scope: ScopePatient},
	"patientid":        {Name: "PatientID", Tag: tag.PatientID, Scope: ScopePatient},
	"patientbirthdate": {Name: "PatientBirthDate", Tag: tag.PatientBirthDate, Scope: ScopePatient},
	"patientsex":       {Name: "PatientSex", Tag: tag.PatientSex, Scope: ScopePatient},

	// Study level tags
	"studydescription": {Name: "StudyDescription", Tag: tag.StudyDescription, Scope: ScopeStudy},
	"studydate":        {Name: "StudyDate", Tag: tag.StudyDate, Scope: ScopeStudy},
	"institutionname":  {Name: "InstitutionName", Tag: tag.InstitutionName, Scope: ScopeStudy},
	"accessionnumber":  {Name: "AccessionNumber", Tag: tag.AccessionNumber, Scope: ScopeStudy},

	// Series level tags
	"modality":          {Name: "Modality", Tag: tag.Modality, Scope: ScopeSeries},
	"seriesdate":        {Name: "SeriesDate", Tag: tag.SeriesDate, Scope: ScopeSeries},
	"seriesdescription": {Name: "SeriesDescription", Tag: tag.SeriesDescription, Scope: ScopeSeries},
	"protocolname":      {Name: "ProtocolName", Tag: tag.ProtocolName, Scope: ScopeSeries},

	// Equipment tags, the compatibility key
	"manufacturer":          {Name: "Manufacturer", Tag: tag.Manufacturer, Scope: ScopeEquipment},
	"manufacturermodelname": {Name: "ManufacturerModelName", Tag: tag.ManufacturerModelName, Scope: ScopeEquipment},
	"deviceserialnumber":    {Name: "DeviceSerialNumber", Tag: tag.DeviceSerialNumber, Scope: ScopeEquipment},
	"stationname":           {Name: "StationName", Tag: tag.StationName, Scope: ScopeEquipment},
}

// ErrUnknownTag is returned by GetTagByName for unregistered names.
var ErrUnknownTag = eris.New("unknown tag")

// GetTagByName returns TagInfo for a given tag name.
// The lookup is case-insensitive. If the tag is not found, an error is returned
// with a suggestion for the closest matching tag name (using Levenshtein distance).
func GetTagByName(name string) (TagInfo, error) {
	normalizedName := strings.ToLower(strings.TrimSpace(name))

	if info, ok := tagRegistry[normalizedName]; ok {
		return info, nil
	}

	suggestion := findClosestTagName(normalizedName)
	if suggestion != "" {
		return TagInfo{}, eris.Wrapf(ErrUnknownTag, "%q, did you mean %q?", name, suggestion)
	}

	return TagInfo{}, eris.Wrapf(ErrUnknownTag, "%q", name)
}

// findClosestTagName returns the registered name closest to input, or ""
// when nothing is within maxDistance edits.
func findClosestTagName(input string) string {
	const maxDistance = 4
	bestDistance := maxDistance + 1
	var bestMatch string

	for key, info := range tagRegistry {
		distance := levenshteinDistance(input, key)
		if distance < bestDistance {
			bestDistance = distance
			bestMatch = info.Name
		}
	}

	if bestDistance <= maxDistance {
		return bestMatch
	}
	return ""
}

// levenshteinDistance counts the single-character edits turning a into b.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}

	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

