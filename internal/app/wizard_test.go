package app_test

import (
	"errors"
	"testing"

	"survey-runner/internal/app"
	"survey-runner/internal/domain"
)

func twoQuestionSurvey() domain.Questionnaire {
	return domain.Questionnaire{
		ID: "survey-1",
		Questions: []domain.Question{
			{Type: domain.ShortText, Prompt: "first"},
			{Type: domain.ShortText, Prompt: "second"},
		},
	}
}

func completeRespondent() domain.Respondent {
	return domain.Respondent{
		ID: "u1", FirstName: "Alice", LastName: "Reed",
		Gender: "f", AgeGroup: "25-34", BirthDate: "1999-04-01",
		Email: "alice@example.com", LanguageLevel: "b2",
	}
}

func TestWizardSkipsProfileStepsWhenComplete(t *testing.T) {
	wizard := app.NewWizard(twoQuestionSurvey(), completeRespondent(), func(app.Step) error { return nil })

	steps := wizard.Steps()
	if len(steps) != 2 {
		t.Fatalf("expected 2 question steps, got %d", len(steps))
	}
	for i, step := range steps {
		if step.Kind != app.StepQuestion || step.Question != i {
			t.Fatalf("unexpected step %d: %+v", i, step)
		}
	}
}

func TestWizardInsertsBasicsForIncompleteProfile(t *testing.T) {
	wizard := app.NewWizard(twoQuestionSurvey(), domain.Respondent{ID: "u1"}, func(app.Step) error { return nil })

	steps := wizard.Steps()
	if len(steps) != 3 || steps[0].Kind != app.StepBasics {
		t.Fatalf("expected basics then questions, got %+v", steps)
	}
}

func TestAdvanceStopsOnValidationFailure(t *testing.T) {
	fail := true
	wizard := app.NewWizard(twoQuestionSurvey(), completeRespondent(), func(app.Step) error {
		if fail {
			return &domain.ValidationError{Field: "answer", Reason: "required"}
		}
		return nil
	})

	signal, err := wizard.Advance()
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || signal != app.SignalNone {
		t.Fatalf("expected validation failure, got signal=%v err=%v", signal, err)
	}
	if wizard.Index() != 0 {
		t.Fatalf("expected position unchanged, got %d", wizard.Index())
	}

	fail = false
	signal, err = wizard.Advance()
	if err != nil || signal != app.SignalAdvanced {
		t.Fatalf("expected advance, got signal=%v err=%v", signal, err)
	}
	if wizard.Index() != 1 {
		t.Fatalf("expected index 1, got %d", wizard.Index())
	}
}

func TestTerminalStepEmitsSubmitSignal(t *testing.T) {
	collected := 0
	wizard := app.NewWizard(twoQuestionSurvey(), completeRespondent(), func(app.Step) error {
		collected++
		return nil
	})

	if signal, _ := wizard.Advance(); signal != app.SignalAdvanced {
		t.Fatalf("expected advance, got %v", signal)
	}
	signal, err := wizard.Advance()
	if err != nil || signal != app.SignalSubmit {
		t.Fatalf("expected submit signal, got signal=%v err=%v", signal, err)
	}
	// The machine has no submitted state; position stays on the last step.
	if wizard.Index() != 1 {
		t.Fatalf("expected index to stay at 1, got %d", wizard.Index())
	}
	if collected != 2 {
		t.Fatalf("expected both collectors to run, got %d", collected)
	}
}

func TestRetreatNeverValidates(t *testing.T) {
	calls := 0
	wizard := app.NewWizard(twoQuestionSurvey(), completeRespondent(), func(app.Step) error {
		calls++
		return nil
	})

	if _, err := wizard.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	wizard.Retreat()
	if calls != 1 {
		t.Fatalf("retreat must not collect, got %d calls", calls)
	}
	if wizard.Index() != 0 {
		t.Fatalf("expected index 0, got %d", wizard.Index())
	}
	wizard.Retreat() // already at the first step
	if wizard.Index() != 0 {
		t.Fatalf("expected retreat at 0 to stay, got %d", wizard.Index())
	}
	// Advancing again re-runs the prior collector so edits are captured.
	if _, err := wizard.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected collector re-run, got %d calls", calls)
	}
}

func TestOptionalProfileToggleRebuildsSteps(t *testing.T) {
	qn := twoQuestionSurvey()
	answers := domain.NewAnswerStore(qn.Questions)

	var wizard *app.Wizard
	wizard = app.NewWizard(qn, domain.Respondent{ID: "u1"}, func(step app.Step) error {
		if step.Kind == app.StepBasics {
			// The checkbox captured on this step mutates the list itself.
			wizard.SetIncludeOptionalProfile(true)
		}
		if step.Kind == app.StepQuestion {
			return answers.Put(step.Question, domain.TextAnswer{Value: "ok"})
		}
		return nil
	})

	if wizard.Len() != 3 {
		t.Fatalf("expected 3 steps before toggle, got %d", wizard.Len())
	}
	if _, err := wizard.Advance(); err != nil {
		t.Fatalf("advance basics: %v", err)
	}
	if wizard.Len() != 7 {
		t.Fatalf("expected 7 steps after toggle, got %d", wizard.Len())
	}
	if got := wizard.Current().Kind; got != app.StepNames {
		t.Fatalf("expected names step after basics, got %v", got)
	}

	// Walk to the end: optional steps then both questions.
	for {
		signal, err := wizard.Advance()
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if signal == app.SignalSubmit {
			break
		}
	}
	if answers.Len() != 2 {
		t.Fatalf("expected both question answers captured, got %d", answers.Len())
	}
}

func TestToggleOffPreservesQuestionAnswers(t *testing.T) {
	qn := twoQuestionSurvey()
	answers := domain.NewAnswerStore(qn.Questions)
	if err := answers.Put(0, domain.TextAnswer{Value: "kept"}); err != nil {
		t.Fatalf("seed answer: %v", err)
	}

	wizard := app.NewWizard(qn, domain.Respondent{ID: "u1"}, func(app.Step) error { return nil })
	wizard.SetIncludeOptionalProfile(true)
	wizard.SetIncludeOptionalProfile(false)

	if wizard.Len() != 3 {
		t.Fatalf("expected step list restored, got %d", wizard.Len())
	}
	// Question steps are keyed by question index, so the stored answer is
	// untouched by rebuilds.
	if a, ok := answers.Get(0); !ok || a.(domain.TextAnswer).Value != "kept" {
		t.Fatalf("expected answer preserved, got %v ok=%v", a, ok)
	}
}
