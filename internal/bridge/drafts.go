package bridge

import (
	"github.com/mrsinham/importctx/internal/importmode"
	"github.com/mrsinham/importctx/internal/model"
	"github.com/mrsinham/importctx/internal/scan"
	"github.com/mrsinham/importctx/internal/util"
)

// Creatable reports whether the sub-workflow can create or edit entities
// at level.
func Creatable(level model.Level) bool {
	switch level {
	case model.LevelCenter, model.LevelEquipment, model.LevelSubject,
		model.LevelExamination, model.LevelStudyCard:
		return true
	}
	return false
}

// draft builds the prefilled entity for level from the resolved snapshot
// and the scan header.
func draft(level model.Level, snap model.Snapshot, info scan.Info, b importmode.Behavior) (any, error) {
	ctx := snap.Context
	switch level {
	case model.LevelCenter:
		// The study the center joins travels in Request.Context.
		return model.Center{}, nil

	case model.LevelEquipment:
		return model.AcquisitionEquipment{
			CenterID:     ctx.CenterID,
			SerialNumber: info.Fingerprint.SerialNumber,
		}, nil

	case model.LevelSubject:
		return subjectDraft(snap.Study, info, b)

	case model.LevelExamination:
		return model.Examination{
			StudyID:     ctx.StudyID,
			CenterID:    ctx.CenterID,
			SubjectID:   ctx.SubjectID,
			Date:        scan.ISODate(info.Date()),
			Comment:     info.StudyDescription,
			Preclinical: b.Preclinical,
		}, nil

	case model.LevelStudyCard:
		if snap.StudyCard == nil {
			return nil, ErrParentUnset
		}
		return *snap.StudyCard, nil
	}
	return nil, ErrUnsupportedLevel
}

// subjectDraft fills demographics from the scan. Animals keep the patient
// name whole; people get it split into first and last name. The draft is
// listed in the study's subjects; the new subject fills the other side.
func subjectDraft(study *model.Study, info scan.Info, b importmode.Behavior) (model.Subject, error) {
	link, err := model.NewSubjectStudy(nil, study, 0)
	if err != nil {
		return model.Subject{}, err
	}
	s := model.Subject{
		BirthDate:      scan.ISODate(info.BirthDate),
		Sex:            info.Sex,
		Category:       b.SubjectCategory,
		Preclinical:    b.Preclinical,
		SubjectStudies: []model.SubjectStudy{link},
	}
	if b.Preclinical {
		s.Name = info.PatientName
		return s, nil
	}
	s.FirstName, s.LastName = util.SplitPatientName(info.PatientName)
	return s, nil
}
