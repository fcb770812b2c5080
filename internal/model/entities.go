// Package model holds the organizational entities an import is bound to and
// the context tuple the import wizard resolves.
//
// Entities reference each other by ID only. Relationships that would form
// cycles (a study listing its centers, an equipment belonging to a center)
// are resolved through an Arena.
package model

import (
	"fmt"
	"strings"
)

// ID identifies an entity in the organizational store. The zero ID means
// "no entity".
type ID int64

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool { return id == 0 }

// Study is the top of the cascade.
type Study struct {
	ID      ID            `yaml:"id"`
	Name    string        `yaml:"name"`
	Centers []StudyCenter `yaml:"centers,omitempty"`
}

// StudyCenter associates a center with a study.
type StudyCenter struct {
	CenterID ID `yaml:"center_id"`
}

// HasCenter reports whether the study lists the given center.
func (s Study) HasCenter(id ID) bool {
	for _, sc := range s.Centers {
		if sc.CenterID == id {
			return true
		}
	}
	return false
}

// Center is an acquisition site.
type Center struct {
	ID        ID                     `yaml:"id"`
	Name      string                 `yaml:"name"`
	Equipment []AcquisitionEquipment `yaml:"equipment,omitempty"`
}

// Manufacturer of a scanner.
type Manufacturer struct {
	Name string `yaml:"name"`
}

// ManufacturerModel is a scanner model.
type ManufacturerModel struct {
	Name         string       `yaml:"name"`
	Manufacturer Manufacturer `yaml:"manufacturer"`
}

// AcquisitionEquipment is a registered scanner.
type AcquisitionEquipment struct {
	ID           ID                `yaml:"id"`
	SerialNumber string            `yaml:"serial_number"`
	Model        ManufacturerModel `yaml:"model"`
	CenterID     ID                `yaml:"center_id,omitempty"`
}

// Label renders the equipment the way operators recognise it.
func (e AcquisitionEquipment) Label() string {
	parts := make([]string, 0, 3)
	if e.Model.Manufacturer.Name != "" {
		parts = append(parts, e.Model.Manufacturer.Name)
	}
	if e.Model.Name != "" {
		parts = append(parts, e.Model.Name)
	}
	label := strings.Join(parts, " - ")
	if e.SerialNumber != "" {
		label = fmt.Sprintf("%s %s", label, e.SerialNumber)
	}
	return strings.TrimSpace(label)
}

// Coil is a receive coil an assignment may resolve to.
type Coil struct {
	ID   ID     `yaml:"id"`
	Name string `yaml:"name"`
}

// Assignment sets a dataset field when a rule matches. Coil is set once the
// value has been resolved to a registered coil.
type Assignment struct {
	Field string `yaml:"field"`
	Value string `yaml:"value,omitempty"`
	Coil  *Coil  `yaml:"coil,omitempty"`
}

// Rule is an ordered group of assignments.
type Rule struct {
	Assignments []Assignment `yaml:"assignments,omitempty"`
}

// StudyCard is a rule template that pre-resolves the center, equipment and
// converter of an import.
type StudyCard struct {
	ID          ID     `yaml:"id"`
	Name        string `yaml:"name"`
	StudyID     ID     `yaml:"study_id"`
	EquipmentID ID     `yaml:"equipment_id,omitempty"`
	ConverterID ID     `yaml:"converter_id,omitempty"`
	Rules       []Rule `yaml:"rules,omitempty"`
}

// ImagedObjectCategory classifies what was scanned.
type ImagedObjectCategory string

const (
	LivingHumanBeing ImagedObjectCategory = "LIVING_HUMAN_BEING"
	LivingAnimal     ImagedObjectCategory = "LIVING_ANIMAL"
	Phantom          ImagedObjectCategory = "PHANTOM"
)

// SubjectStudy associates a subject with a study.
type SubjectStudy struct {
	SubjectID          ID     `yaml:"subject_id,omitempty"`
	StudyID            ID     `yaml:"study_id"`
	Identifier         string `yaml:"identifier,omitempty"`
	SubjectType        string `yaml:"subject_type,omitempty"`
	PhysicallyInvolved bool   `yaml:"physically_involved"`
}

// Subject is a scanned person, animal or phantom.
type Subject struct {
	ID             ID                   `yaml:"id"`
	Name           string               `yaml:"name"`
	Identifier     string               `yaml:"identifier,omitempty"`
	FirstName      string               `yaml:"first_name,omitempty"`
	LastName       string               `yaml:"last_name,omitempty"`
	BirthDate      string               `yaml:"birth_date,omitempty"`
	Sex            string               `yaml:"sex,omitempty"`
	Category       ImagedObjectCategory `yaml:"category,omitempty"`
	Preclinical    bool                 `yaml:"preclinical,omitempty"`
	SubjectStudies []SubjectStudy       `yaml:"subject_studies,omitempty"`
}

// InStudy reports whether the subject is associated with the study.
func (s Subject) InStudy(id ID) bool {
	for _, ss := range s.SubjectStudies {
		if ss.StudyID == id {
			return true
		}
	}
	return false
}

// Examination groups acquisitions of one subject at one center.
type Examination struct {
	ID          ID     `yaml:"id"`
	Date        string `yaml:"date,omitempty"`
	Comment     string `yaml:"comment,omitempty"`
	StudyID     ID     `yaml:"study_id"`
	CenterID    ID     `yaml:"center_id"`
	SubjectID   ID     `yaml:"subject_id"`
	Preclinical bool   `yaml:"preclinical,omitempty"`
}

// Label renders the examination for candidate lists.
func (e Examination) Label() string {
	switch {
	case e.Date != "" && e.Comment != "":
		return e.Date + ", " + e.Comment
	case e.Date != "":
		return e.Date
	default:
		return e.Comment
	}
}

// Converter turns the imported series into the platform's dataset format.
type Converter struct {
	ID         ID     `yaml:"id"`
	Identifier string `yaml:"identifier"`
}

// Right is a per-study permission held by the current user.
type Right string

// CanAdministrate allows editing a study and its study cards.
const CanAdministrate Right = "CAN_ADMINISTRATE"
