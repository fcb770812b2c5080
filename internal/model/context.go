package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Level is one stage of the selection cascade.
type Level int

const (
	LevelStudy Level = iota
	LevelStudyCard
	LevelCenter
	LevelEquipment
	LevelSubject
	LevelExamination
	LevelConverter
)

// NumLevels is the number of cascade levels.
const NumLevels = int(LevelConverter) + 1

// ErrUnknownLevel is returned when a level name or value is not recognised.
var ErrUnknownLevel = eris.New("unknown cascade level")

var levelNames = [NumLevels]string{
	LevelStudy:       "study",
	LevelStudyCard:   "studycard",
	LevelCenter:      "center",
	LevelEquipment:   "equipment",
	LevelSubject:     "subject",
	LevelExamination: "examination",
	LevelConverter:   "converter",
}

// Levels returns every level in cascade order.
func Levels() []Level {
	return []Level{
		LevelStudy,
		LevelStudyCard,
		LevelCenter,
		LevelEquipment,
		LevelSubject,
		LevelExamination,
		LevelConverter,
	}
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l >= LevelStudy && l <= LevelConverter
}

// String returns the lowercase level name.
func (l Level) String() string {
	if !l.Valid() {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLevel parses a level name case-insensitively.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return 0, eris.Wrapf(ErrUnknownLevel, "parse %q", s)
}

// EquipmentFingerprint is the scanner identity embedded in an incoming scan.
// It is the compatibility key against registered equipment.
type EquipmentFingerprint struct {
	SerialNumber     string `yaml:"serial_number"`
	ModelName        string `yaml:"model_name"`
	ManufacturerName string `yaml:"manufacturer_name"`
}

// ImportContext is the tuple the wizard resolves before ingestion. Every
// level holds the ID of the selected entity, or the zero ID when unset.
type ImportContext struct {
	StudyID       ID   `yaml:"study_id,omitempty"`
	StudyCardID   ID   `yaml:"study_card_id,omitempty"`
	UseStudyCard  bool `yaml:"use_study_card"`
	CenterID      ID   `yaml:"center_id,omitempty"`
	EquipmentID   ID   `yaml:"equipment_id,omitempty"`
	SubjectID     ID   `yaml:"subject_id,omitempty"`
	ExaminationID ID   `yaml:"examination_id,omitempty"`
	ConverterID   ID   `yaml:"converter_id,omitempty"`
}

// Get returns the ID held at a level.
func (c ImportContext) Get(l Level) ID {
	switch l {
	case LevelStudy:
		return c.StudyID
	case LevelStudyCard:
		return c.StudyCardID
	case LevelCenter:
		return c.CenterID
	case LevelEquipment:
		return c.EquipmentID
	case LevelSubject:
		return c.SubjectID
	case LevelExamination:
		return c.ExaminationID
	case LevelConverter:
		return c.ConverterID
	}
	return 0
}

// Set stores id at a level. Unknown levels are ignored.
func (c *ImportContext) Set(l Level, id ID) {
	switch l {
	case LevelStudy:
		c.StudyID = id
	case LevelStudyCard:
		c.StudyCardID = id
	case LevelCenter:
		c.CenterID = id
	case LevelEquipment:
		c.EquipmentID = id
	case LevelSubject:
		c.SubjectID = id
	case LevelExamination:
		c.ExaminationID = id
	case LevelConverter:
		c.ConverterID = id
	}
}

// ClearAfter zeroes every level strictly downstream of l.
func (c *ImportContext) ClearAfter(l Level) {
	for next := l + 1; next <= LevelConverter; next++ {
		c.Set(next, 0)
	}
}

// Parent returns the level that must be set before l can be selected.
// Center depends on Study directly; a study card only pre-fills it.
func Parent(l Level) (Level, bool) {
	switch l {
	case LevelStudyCard, LevelCenter:
		return LevelStudy, true
	case LevelEquipment:
		return LevelCenter, true
	case LevelSubject:
		return LevelEquipment, true
	case LevelExamination:
		return LevelSubject, true
	case LevelConverter:
		return LevelExamination, true
	}
	return 0, false
}

// Snapshot is the resolved, read-only view of a context handed to the next
// wizard phase.
type Snapshot struct {
	Context     ImportContext
	Study       *Study
	StudyCard   *StudyCard
	Center      *Center
	Equipment   *AcquisitionEquipment
	Subject     *Subject
	Examination *Examination
	Converter   *Converter
}
