package session

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/mrsinham/importctx/internal/bridge"
	"github.com/mrsinham/importctx/internal/importmode"
	"github.com/mrsinham/importctx/internal/model"
	"github.com/mrsinham/importctx/internal/registry"
	"github.com/mrsinham/importctx/internal/resolver"
	"github.com/mrsinham/importctx/internal/validation"
)

// scenarioContext holds state for a single scenario
type scenarioContext struct {
	registry *registry.Store
	settings Settings
	session  *Session
	auto     map[model.Level]bool
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	tc := &scenarioContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*tc = scenarioContext{
			settings: Settings{Mode: importmode.DirectTransfer},
			auto:     make(map[model.Level]bool),
		}
		return ctx, nil
	})

	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if tc.session != nil {
			tc.session.Close()
		}
		return ctx, nil
	})

	sc.Step(`^the registry fixture "([^"]*)"$`, tc.theRegistryFixture)
	sc.Step(`^a scan from scanner "([^"]*)" model "([^"]*)" by "([^"]*)"$`, tc.aScanFromScanner)
	sc.Step(`^the patient name is "([^"]*)"$`, tc.thePatientNameIs)
	sc.Step(`^the import mode is "([^"]*)"$`, tc.theImportModeIs)
	sc.Step(`^study cards are (enabled|disabled)$`, tc.studyCardsAre)
	sc.Step(`^sole candidates are filled$`, tc.soleCandidatesAreFilled)
	sc.Step(`^the session is opened$`, tc.theSessionIsOpened)
	sc.Step(`^the session is reopened from its backup$`, tc.theSessionIsReopened)
	sc.Step(`^I select the ([a-z ]+) "([^"]*)"$`, tc.iSelect)
	sc.Step(`^I turn study cards (on|off)$`, tc.iTurnStudyCards)
	sc.Step(`^the creation sub-workflow returns a new equipment$`, tc.createEquipment)
	sc.Step(`^the creation sub-workflow returns a new subject named "([^"]*)"$`, tc.createSubject)
	sc.Step(`^the creation sub-workflow cancels the ([a-z ]+)$`, tc.cancelCreation)
	sc.Step(`^the ([a-z ]+) should be unset$`, tc.levelShouldBeUnset)
	sc.Step(`^the ([a-z ]+) should be "([^"]*)"$`, tc.levelShouldBe)
	sc.Step(`^the ([a-z ]+) should have been auto-selected$`, tc.levelShouldHaveBeenAutoSelected)
	sc.Step(`^nothing should have been auto-selected$`, tc.nothingAutoSelected)
	sc.Step(`^the ([a-z ]+) candidates should all be tagged "([^"]*)"$`, tc.candidatesTagged)
	sc.Step(`^the context should be (complete|incomplete)$`, tc.theContextShouldBe)
	sc.Step(`^proceeding should (succeed|fail)$`, tc.proceedingShould)
	sc.Step(`^the selected subject should be called "([^"]*)" "([^"]*)"$`, tc.selectedSubjectCalled)
}

func parseLevel(name string) (model.Level, error) {
	return model.ParseLevel(strings.ReplaceAll(name, " ", ""))
}

func (tc *scenarioContext) record(out resolver.Outcome, err error) error {
	for _, l := range out.AutoSelected {
		tc.auto[l] = true
	}
	return err
}

func (tc *scenarioContext) theRegistryFixture(path string) error {
	s, err := registry.Load(path)
	if err != nil {
		return err
	}
	tc.registry = s
	return nil
}

func (tc *scenarioContext) aScanFromScanner(serial, modelName, manufacturer string) error {
	tc.settings.Scan.Fingerprint = model.EquipmentFingerprint{
		SerialNumber:     serial,
		ModelName:        modelName,
		ManufacturerName: manufacturer,
	}
	return nil
}

func (tc *scenarioContext) thePatientNameIs(name string) error {
	tc.settings.Scan.PatientName = name
	return nil
}

func (tc *scenarioContext) theImportModeIs(mode string) error {
	m, err := importmode.Parse(mode)
	if err != nil {
		return err
	}
	tc.settings.Mode = m
	return nil
}

func (tc *scenarioContext) studyCardsAre(state string) error {
	tc.settings.UseStudyCard = state == "enabled"
	return nil
}

func (tc *scenarioContext) soleCandidatesAreFilled() error {
	tc.settings.FillSole = true
	return nil
}

func (tc *scenarioContext) theSessionIsOpened() error {
	if tc.registry == nil {
		return fmt.Errorf("no registry loaded")
	}
	s, out, err := Open(context.Background(), tc.registry, tc.settings)
	if err != nil {
		return err
	}
	tc.session = s
	return tc.record(out, nil)
}

func (tc *scenarioContext) theSessionIsReopened() error {
	prev, ok := tc.session.Store().ReadInProgress()
	if !ok {
		return fmt.Errorf("nothing was backed up")
	}
	tc.session.Close()
	tc.session = nil

	tc.settings.Previous = &prev
	return tc.theSessionIsOpened()
}

func (tc *scenarioContext) candidate(level model.Level, label string) (resolver.Candidate, error) {
	for _, c := range tc.session.Resolver().Candidates(level) {
		if c.Label == label {
			return c, nil
		}
	}
	return resolver.Candidate{}, fmt.Errorf("%s %q is not a candidate", level, label)
}

func (tc *scenarioContext) iSelect(levelName, label string) error {
	level, err := parseLevel(levelName)
	if err != nil {
		return err
	}
	c, err := tc.candidate(level, label)
	if err != nil {
		return err
	}
	return tc.record(tc.session.Resolver().Select(context.Background(), level, c.ID))
}

func (tc *scenarioContext) iTurnStudyCards(state string) error {
	return tc.record(tc.session.Resolver().SetUseStudyCard(context.Background(), state == "on"))
}

func (tc *scenarioContext) create(level model.Level, c Creator) error {
	s, err := tc.session.Create(context.Background(), level, c)
	if err != nil {
		return err
	}
	if s.Merged {
		return tc.record(s.Outcome, nil)
	}
	return nil
}

func (tc *scenarioContext) createEquipment() error {
	return tc.create(model.LevelEquipment, RegistryCreator{Registry: tc.registry})
}

func (tc *scenarioContext) createSubject(name string) error {
	return tc.create(model.LevelSubject, RegistryCreator{
		Registry: tc.registry,
		Edit: func(d any) any {
			s := d.(model.Subject)
			s.Name = name
			return s
		},
	})
}

func (tc *scenarioContext) cancelCreation(levelName string) error {
	level, err := parseLevel(levelName)
	if err != nil {
		return err
	}
	return tc.create(level, CreatorFunc(func(context.Context, bridge.Request) (any, error) {
		return nil, nil
	}))
}

func (tc *scenarioContext) levelShouldBeUnset(levelName string) error {
	level, err := parseLevel(levelName)
	if err != nil {
		return err
	}
	if id := tc.session.Resolver().Context().Get(level); !id.IsZero() {
		return fmt.Errorf("expected %s to be unset, got %d", level, id)
	}
	return nil
}

func (tc *scenarioContext) levelShouldBe(levelName, label string) error {
	level, err := parseLevel(levelName)
	if err != nil {
		return err
	}
	id := tc.session.Resolver().Context().Get(level)
	if id.IsZero() {
		return fmt.Errorf("expected %s to be %q, it is unset", level, label)
	}
	for _, c := range tc.session.Resolver().Candidates(level) {
		if c.ID == id {
			if c.Label != label {
				return fmt.Errorf("expected %s to be %q, got %q", level, label, c.Label)
			}
			return nil
		}
	}
	return fmt.Errorf("selected %s %d is not among its candidates", level, id)
}

func (tc *scenarioContext) levelShouldHaveBeenAutoSelected(levelName string) error {
	level, err := parseLevel(levelName)
	if err != nil {
		return err
	}
	if !tc.auto[level] {
		return fmt.Errorf("expected %s to have been auto-selected", level)
	}
	return nil
}

func (tc *scenarioContext) nothingAutoSelected() error {
	if len(tc.auto) != 0 {
		return fmt.Errorf("expected no auto-selection, got %v", tc.auto)
	}
	return nil
}

func (tc *scenarioContext) candidatesTagged(levelName, tag string) error {
	level, err := parseLevel(levelName)
	if err != nil {
		return err
	}
	cands := tc.session.Resolver().Candidates(level)
	if len(cands) == 0 {
		return fmt.Errorf("no %s candidates", level)
	}
	for _, c := range cands {
		if c.Compat.String() != tag {
			return fmt.Errorf("%s %q is tagged %q, want %q", level, c.Label, c.Compat, tag)
		}
	}
	return nil
}

func (tc *scenarioContext) theContextShouldBe(state string) error {
	c := tc.session.Resolver().Context()
	if validation.IsComplete(c) != (state == "complete") {
		return fmt.Errorf("expected context to be %s, missing %v", state, validation.Missing(c))
	}
	return nil
}

func (tc *scenarioContext) proceedingShould(result string) error {
	_, err := tc.session.Proceed()
	switch {
	case result == "succeed" && err != nil:
		return fmt.Errorf("expected proceed to succeed: %w", err)
	case result == "fail" && err == nil:
		return fmt.Errorf("expected proceed to fail")
	}
	return nil
}

func (tc *scenarioContext) selectedSubjectCalled(first, last string) error {
	s := tc.session.Resolver().Snapshot().Subject
	if s == nil {
		return fmt.Errorf("no subject selected")
	}
	if s.FirstName != first || s.LastName != last {
		return fmt.Errorf("subject is called %q %q, want %q %q", s.FirstName, s.LastName, first, last)
	}
	return nil
}
