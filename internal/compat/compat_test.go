package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrsinham/importctx/internal/model"
)

func equipment(id model.ID, serial, modelName, mfr string) model.AcquisitionEquipment {
	return model.AcquisitionEquipment{
		ID:           id,
		SerialNumber: serial,
		Model:        model.ManufacturerModel{Name: modelName, Manufacturer: model.Manufacturer{Name: mfr}},
	}
}

var fp = model.EquipmentFingerprint{SerialNumber: "12345", ModelName: "Prisma", ManufacturerName: "Siemens"}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		eq   model.AcquisitionEquipment
		want bool
	}{
		{"exact", equipment(1, "12345", "Prisma", "Siemens"), true},
		{"serial differs", equipment(1, "12346", "Prisma", "Siemens"), false},
		{"model differs", equipment(1, "12345", "Skyra", "Siemens"), false},
		{"manufacturer differs", equipment(1, "12345", "Prisma", "GE"), false},
		{"case sensitive", equipment(1, "12345", "prisma", "Siemens"), false},
		{"trailing space", equipment(1, "12345 ", "Prisma", "Siemens"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Matches(tc.eq, fp); got != tc.want {
				t.Errorf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCenterCompatible(t *testing.T) {
	empty := model.Center{ID: 1}
	other := model.Center{ID: 2, Equipment: []model.AcquisitionEquipment{equipment(1, "x", "Prisma", "Siemens")}}
	match := model.Center{ID: 3, Equipment: []model.AcquisitionEquipment{
		equipment(2, "x", "Prisma", "Siemens"),
		equipment(3, "12345", "Prisma", "Siemens"),
	}}

	assert.False(t, CenterCompatible(empty, fp))
	assert.False(t, CenterCompatible(other, fp))
	assert.True(t, CenterCompatible(match, fp))
}

func testArena() *model.Arena {
	a := model.NewArena()
	a.PutCenter(model.Center{ID: 10, Name: "Paris", Equipment: []model.AcquisitionEquipment{equipment(100, "12345", "Prisma", "Siemens")}})
	a.PutCenter(model.Center{ID: 20, Name: "Lyon", Equipment: []model.AcquisitionEquipment{equipment(200, "999", "Skyra", "Siemens")}})
	a.PutStudy(model.Study{ID: 1, Name: "NeuroA", Centers: []model.StudyCenter{{CenterID: 10}}})
	a.PutStudy(model.Study{ID: 2, Name: "NeuroB", Centers: []model.StudyCenter{{CenterID: 20}}})
	a.PutStudy(model.Study{ID: 3, Name: "Empty"})
	return a
}

func TestStudyCompatible(t *testing.T) {
	a := testArena()
	for _, s := range a.Studies() {
		want := false
		for _, c := range a.StudyCenters(s.ID) {
			want = want || CenterCompatible(c, fp)
		}
		assert.Equal(t, want, StudyCompatible(s, a, fp), s.Name)
	}
	s, _ := a.Study(1)
	assert.True(t, StudyCompatible(s, a, fp))
}

func TestStudyCardCompatible(t *testing.T) {
	a := testArena()

	tests := []struct {
		name string
		card model.StudyCard
		want bool
	}{
		{"matching equipment in study", model.StudyCard{StudyID: 1, EquipmentID: 100}, true},
		{"no equipment", model.StudyCard{StudyID: 1}, false},
		{"equipment outside study", model.StudyCard{StudyID: 2, EquipmentID: 100}, false},
		{"non matching equipment", model.StudyCard{StudyID: 2, EquipmentID: 200}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StudyCardCompatible(tc.card, a, fp))
		})
	}
}

func TestTaggerDisabledIsNeutral(t *testing.T) {
	a := testArena()
	tg := Tagger{Fingerprint: fp}
	s, _ := a.Study(1)
	c, _ := a.Center(10)

	assert.Equal(t, Neutral, tg.Study(s, a))
	assert.Equal(t, Neutral, tg.Center(c))
	assert.Equal(t, Neutral, tg.Equipment(c.Equipment[0]))
	assert.Equal(t, Neutral, tg.StudyCard(model.StudyCard{StudyID: 1, EquipmentID: 100}, a))

	tg.Enabled = true
	assert.Equal(t, Compatible, tg.Study(s, a))
	assert.Equal(t, Compatible, tg.Center(c))
	assert.Equal(t, Compatible, tg.StudyCard(model.StudyCard{StudyID: 1, EquipmentID: 100}, a))
	lyon, _ := a.Center(20)
	assert.Equal(t, Incompatible, tg.Center(lyon))
	assert.Equal(t, "incompatible", tg.Center(lyon).String())
}
