package resolver

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrsinham/importctx/internal/backup"
	"github.com/mrsinham/importctx/internal/importmode"
	"github.com/mrsinham/importctx/internal/model"
)

// Scanner fingerprints used across the tests. parisFP matches equipment 100
// of Paris, lyonFP matches equipment 200 of Lyon, strangerFP matches nothing.
var (
	parisFP    = model.EquipmentFingerprint{SerialNumber: "12345", ModelName: "Prisma", ManufacturerName: "Siemens"}
	lyonFP     = model.EquipmentFingerprint{SerialNumber: "S200", ModelName: "Skyra", ManufacturerName: "Siemens"}
	strangerFP = model.EquipmentFingerprint{SerialNumber: "000", ModelName: "Signa", ManufacturerName: "GE"}
)

func scanner(id model.ID, fp model.EquipmentFingerprint) model.AcquisitionEquipment {
	return model.AcquisitionEquipment{
		ID:           id,
		SerialNumber: fp.SerialNumber,
		Model:        model.ManufacturerModel{Name: fp.ModelName, Manufacturer: model.Manufacturer{Name: fp.ManufacturerName}},
	}
}

type fakeCollab struct {
	studies    []model.Study
	centers    []model.Center
	cards      map[model.ID][]model.StudyCard
	subjects   map[model.ID][]model.Subject
	exams      map[model.ID][]model.Examination
	converters []model.Converter
	rights     map[model.ID][]model.Right

	fail map[string]error
	// beforeSubjects runs inside ListSubjectsForStudy and may block.
	beforeSubjects func(studyID model.ID)
	// beforeCards runs inside ListStudyCardsForStudy and may block.
	beforeCards func(studyID model.ID)

	mu    sync.Mutex
	calls map[string]int
}

func newFakeCollab() *fakeCollab {
	return &fakeCollab{
		studies: []model.Study{
			{ID: 1, Name: "NeuroA", Centers: []model.StudyCenter{{CenterID: 10}}},
			{ID: 2, Name: "NeuroB", Centers: []model.StudyCenter{{CenterID: 20}, {CenterID: 30}}},
			{ID: 3, Name: "NeuroC", Centers: []model.StudyCenter{{CenterID: 10}, {CenterID: 20}}},
			{ID: 4, Name: "Empty"},
		},
		centers: []model.Center{
			{ID: 10, Name: "Paris", Equipment: []model.AcquisitionEquipment{scanner(100, parisFP)}},
			{ID: 20, Name: "Lyon", Equipment: []model.AcquisitionEquipment{
				scanner(200, lyonFP),
				scanner(201, model.EquipmentFingerprint{SerialNumber: "S201", ModelName: "Skyra", ManufacturerName: "Siemens"}),
			}},
			{ID: 30, Name: "Nantes", Equipment: []model.AcquisitionEquipment{
				scanner(300, model.EquipmentFingerprint{SerialNumber: "S300", ModelName: "Achieva", ManufacturerName: "Philips"}),
			}},
		},
		cards: map[model.ID][]model.StudyCard{
			2: {
				{ID: 501, Name: "Lyon Skyra", StudyID: 2, EquipmentID: 200, ConverterID: 900},
				{ID: 502, Name: "Lyon Skyra 2", StudyID: 2, EquipmentID: 201, ConverterID: 901},
			},
		},
		subjects: map[model.ID][]model.Subject{
			1: {{ID: 601, Name: "DOE^JOHN"}, {ID: 602, Name: "ROE^JANE"}},
			2: {{ID: 611, Name: "SMITH^ANNA"}},
			3: {{ID: 621, Name: "MARTIN^PAUL"}, {ID: 622, Name: "DURAND^LEA"}},
		},
		exams: map[model.ID][]model.Examination{
			601: {{ID: 701, Date: "2024-01-02", StudyID: 1, CenterID: 10, SubjectID: 601}},
			611: {{ID: 711, Date: "2024-02-03", StudyID: 2, CenterID: 20, SubjectID: 611}},
		},
		converters: []model.Converter{{ID: 900, Identifier: "dcm2niix"}, {ID: 901, Identifier: "mriconverter"}},
		rights: map[model.ID][]model.Right{
			1: {model.CanAdministrate},
			2: {"CAN_SEE_ALL"},
		},
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeCollab) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.fail[method]
}

func (f *fakeCollab) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeCollab) ListStudiesWithCenters(context.Context) ([]model.Study, error) {
	if err := f.record("studies"); err != nil {
		return nil, err
	}
	return f.studies, nil
}

func (f *fakeCollab) ListCenters(context.Context) ([]model.Center, error) {
	if err := f.record("centers"); err != nil {
		return nil, err
	}
	return f.centers, nil
}

func (f *fakeCollab) ListStudyCardsForStudy(_ context.Context, studyID model.ID) ([]model.StudyCard, error) {
	err := f.record("cards")
	if f.beforeCards != nil {
		f.beforeCards(studyID)
	}
	if err != nil {
		return nil, err
	}
	return f.cards[studyID], nil
}

func (f *fakeCollab) ListSubjectsForStudy(_ context.Context, studyID model.ID, _ bool) ([]model.Subject, error) {
	err := f.record("subjects")
	if f.beforeSubjects != nil {
		f.beforeSubjects(studyID)
	}
	if err != nil {
		return nil, err
	}
	return f.subjects[studyID], nil
}

func (f *fakeCollab) ListExaminationsForSubjectAndStudy(_ context.Context, subjectID, _ model.ID) ([]model.Examination, error) {
	if err := f.record("exams"); err != nil {
		return nil, err
	}
	return f.exams[subjectID], nil
}

func (f *fakeCollab) ListConverters(context.Context) ([]model.Converter, error) {
	if err := f.record("converters"); err != nil {
		return nil, err
	}
	return f.converters, nil
}

func (f *fakeCollab) GetMyRightsForStudy(_ context.Context, studyID model.ID) ([]model.Right, error) {
	if err := f.record("rights"); err != nil {
		return nil, err
	}
	return f.rights[studyID], nil
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counts: make(map[string]int)}
}

func (c *countingRecorder) inc(event string, l model.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[event+"/"+l.String()]++
}

func (c *countingRecorder) get(event string, l model.Level) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[event+"/"+l.String()]
}

func (c *countingRecorder) Transition(l model.Level)     { c.inc("transition", l) }
func (c *countingRecorder) AutoSelected(l model.Level)   { c.inc("auto", l) }
func (c *countingRecorder) StaleDiscarded(l model.Level) { c.inc("stale", l) }
func (c *countingRecorder) FetchFailed(l model.Level)    { c.inc("failed", l) }
func (c *countingRecorder) Merged(l model.Level)         { c.inc("merged", l) }

// loaded builds a resolver over f and loads the registry.
func loaded(t *testing.T, f *fakeCollab, mode importmode.Mode, fp model.EquipmentFingerprint, opts ...Option) (*Resolver, *backup.Store) {
	t.Helper()
	store := backup.New()
	r := New(f, store, mode, fp, opts...)
	_, err := r.Load(context.Background())
	require.NoError(t, err)
	return r, store
}

func candidateIDs(cands []Candidate) []model.ID {
	ids := make([]model.ID, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.ID)
	}
	return ids
}

func compatOf(cands []Candidate, id model.ID) string {
	for _, c := range cands {
		if c.ID == id {
			return c.Compat.String()
		}
	}
	return "absent"
}

func (f *fakeCollab) heal(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fail, method)
}
