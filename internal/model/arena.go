package model

// Arena stores entities by ID. It is not safe for concurrent use; the
// resolver serialises access to it.
type Arena struct {
	studies    map[ID]Study
	studyOrder []ID
	centers    map[ID]Center
	equipment  map[ID]AcquisitionEquipment
	cards      map[ID]StudyCard
	subjects   map[ID]Subject
	exams      map[ID]Examination
	converters map[ID]Converter
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{
		studies:    make(map[ID]Study),
		centers:    make(map[ID]Center),
		equipment:  make(map[ID]AcquisitionEquipment),
		cards:      make(map[ID]StudyCard),
		subjects:   make(map[ID]Subject),
		exams:      make(map[ID]Examination),
		converters: make(map[ID]Converter),
	}
}

// PutStudy inserts or replaces a study, keeping first-insertion order.
func (a *Arena) PutStudy(s Study) {
	if _, ok := a.studies[s.ID]; !ok {
		a.studyOrder = append(a.studyOrder, s.ID)
	}
	a.studies[s.ID] = s
}

// Study looks up a study.
func (a *Arena) Study(id ID) (Study, bool) {
	s, ok := a.studies[id]
	return s, ok
}

// Studies returns all studies in insertion order.
func (a *Arena) Studies() []Study {
	out := make([]Study, 0, len(a.studyOrder))
	for _, id := range a.studyOrder {
		out = append(out, a.studies[id])
	}
	return out
}

// AddStudyCenter associates a center with a study if not already listed.
func (a *Arena) AddStudyCenter(studyID, centerID ID) bool {
	s, ok := a.studies[studyID]
	if !ok {
		return false
	}
	if !s.HasCenter(centerID) {
		s.Centers = append(s.Centers, StudyCenter{CenterID: centerID})
		a.studies[studyID] = s
	}
	return true
}

// PutCenter inserts or replaces a center and indexes its equipment.
func (a *Arena) PutCenter(c Center) {
	if old, ok := a.centers[c.ID]; ok {
		for _, eq := range old.Equipment {
			delete(a.equipment, eq.ID)
		}
	}
	eqs := make([]AcquisitionEquipment, len(c.Equipment))
	for i, eq := range c.Equipment {
		eq.CenterID = c.ID
		eqs[i] = eq
		a.equipment[eq.ID] = eq
	}
	c.Equipment = eqs
	a.centers[c.ID] = c
}

// Center looks up a center.
func (a *Arena) Center(id ID) (Center, bool) {
	c, ok := a.centers[id]
	return c, ok
}

// PutEquipment attaches equipment to its center, replacing any entry with
// the same ID. It returns false when the center is unknown.
func (a *Arena) PutEquipment(eq AcquisitionEquipment) bool {
	c, ok := a.centers[eq.CenterID]
	if !ok {
		return false
	}
	replaced := false
	for i := range c.Equipment {
		if c.Equipment[i].ID == eq.ID {
			c.Equipment[i] = eq
			replaced = true
		}
	}
	if !replaced {
		c.Equipment = append(c.Equipment, eq)
	}
	a.centers[c.ID] = c
	a.equipment[eq.ID] = eq
	return true
}

// Equipment looks up equipment.
func (a *Arena) Equipment(id ID) (AcquisitionEquipment, bool) {
	eq, ok := a.equipment[id]
	return eq, ok
}

// StudyCenters resolves a study's center list, skipping unknown centers.
func (a *Arena) StudyCenters(studyID ID) []Center {
	s, ok := a.studies[studyID]
	if !ok {
		return nil
	}
	out := make([]Center, 0, len(s.Centers))
	for _, sc := range s.Centers {
		if c, ok := a.centers[sc.CenterID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// OwningCenter returns the first center of the study, in study order, that
// owns the equipment.
func (a *Arena) OwningCenter(studyID, equipmentID ID) (Center, bool) {
	for _, c := range a.StudyCenters(studyID) {
		for _, eq := range c.Equipment {
			if eq.ID == equipmentID {
				return c, true
			}
		}
	}
	return Center{}, false
}

// PutStudyCard inserts or replaces a study card.
func (a *Arena) PutStudyCard(c StudyCard) { a.cards[c.ID] = c }

// StudyCard looks up a study card.
func (a *Arena) StudyCard(id ID) (StudyCard, bool) {
	c, ok := a.cards[id]
	return c, ok
}

// PutSubject inserts or replaces a subject.
func (a *Arena) PutSubject(s Subject) { a.subjects[s.ID] = s }

// Subject looks up a subject.
func (a *Arena) Subject(id ID) (Subject, bool) {
	s, ok := a.subjects[id]
	return s, ok
}

// PutExamination inserts or replaces an examination.
func (a *Arena) PutExamination(e Examination) { a.exams[e.ID] = e }

// Examination looks up an examination.
func (a *Arena) Examination(id ID) (Examination, bool) {
	e, ok := a.exams[id]
	return e, ok
}

// PutConverter inserts or replaces a converter.
func (a *Arena) PutConverter(c Converter) { a.converters[c.ID] = c }

// Converter looks up a converter.
func (a *Arena) Converter(id ID) (Converter, bool) {
	c, ok := a.converters[id]
	return c, ok
}

// Resolve builds a snapshot of the entities referenced by ctx. Levels whose
// entity is unknown stay nil.
func (a *Arena) Resolve(ctx ImportContext) Snapshot {
	snap := Snapshot{Context: ctx}
	if s, ok := a.studies[ctx.StudyID]; ok {
		snap.Study = &s
	}
	if c, ok := a.cards[ctx.StudyCardID]; ok {
		snap.StudyCard = &c
	}
	if c, ok := a.centers[ctx.CenterID]; ok {
		snap.Center = &c
	}
	if eq, ok := a.equipment[ctx.EquipmentID]; ok {
		snap.Equipment = &eq
	}
	if s, ok := a.subjects[ctx.SubjectID]; ok {
		snap.Subject = &s
	}
	if e, ok := a.exams[ctx.ExaminationID]; ok {
		snap.Examination = &e
	}
	if c, ok := a.converters[ctx.ConverterID]; ok {
		snap.Converter = &c
	}
	return snap
}
