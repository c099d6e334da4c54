package app

import (
	"survey-runner/internal/domain"
)

// StepKind enumerates wizard step identities.
type StepKind int

const (
	StepBasics StepKind = iota
	StepNames
	StepBirthDate
	StepContact
	StepLanguageLevel
	StepQuestion
)

// Step is one position in the wizard. Question steps are keyed by question
// index rather than list position, so step-list rebuilds never disturb
// already-collected answers.
type Step struct {
	Kind     StepKind
	Question int // set only when Kind == StepQuestion
}

// Collector reads the current input state for the active step and stores it
// (question steps write into the session's AnswerStore). Returning a
// ValidationError keeps the wizard on the step; the collector is
// responsible for surfacing which field failed.
type Collector func(step Step) error

// Signal is the outcome of a successful Advance.
type Signal int

const (
	// SignalNone: validation failed, position unchanged.
	SignalNone Signal = iota
	// SignalAdvanced: moved to the next step.
	SignalAdvanced
	// SignalSubmit: the terminal step collected successfully; the
	// submission flow begins. The wizard itself has no submitted state.
	SignalSubmit
)

// Wizard sequences a respondent through profile and question steps. It is
// owned by one sequential control flow and carries no locking.
type Wizard struct {
	questionCount   int
	profileComplete bool
	includeOptional bool
	steps           []Step
	index           int
	collect         Collector
}

// NewWizard computes the initial step list. Profile steps are inserted only
// when the respondent's profile was incomplete at session start.
func NewWizard(qn domain.Questionnaire, respondent domain.Respondent, collect Collector) *Wizard {
	w := &Wizard{
		questionCount:   len(qn.Questions),
		profileComplete: respondent.ProfileComplete(),
		collect:         collect,
	}
	w.steps = buildSteps(w.profileComplete, w.includeOptional, w.questionCount)
	return w
}

// buildSteps returns a fresh ordered list; rebuild-on-event, never in-place
// insertion. Question steps always follow all profile steps.
func buildSteps(profileComplete, includeOptional bool, questions int) []Step {
	steps := make([]Step, 0, 5+questions)
	if !profileComplete {
		steps = append(steps, Step{Kind: StepBasics})
		if includeOptional {
			steps = append(steps,
				Step{Kind: StepNames},
				Step{Kind: StepBirthDate},
				Step{Kind: StepContact},
				Step{Kind: StepLanguageLevel},
			)
		}
	}
	for i := 0; i < questions; i++ {
		steps = append(steps, Step{Kind: StepQuestion, Question: i})
	}
	return steps
}

// Current returns the active step.
func (w *Wizard) Current() Step { return w.steps[w.index] }

// Index returns the current position in [0, Len).
func (w *Wizard) Index() int { return w.index }

// Len returns the current step count.
func (w *Wizard) Len() int { return len(w.steps) }

// Steps returns a copy of the current ordered step list.
func (w *Wizard) Steps() []Step {
	out := make([]Step, len(w.steps))
	copy(out, w.steps)
	return out
}

// Advance runs the active step's collector. On validation failure the
// position is unchanged and the error is returned. On success the wizard
// moves forward, or emits SignalSubmit when already on the last step.
func (w *Wizard) Advance() (Signal, error) {
	if err := w.collect(w.Current()); err != nil {
		return SignalNone, err
	}
	if w.index == len(w.steps)-1 {
		return SignalSubmit, nil
	}
	w.index++
	return SignalAdvanced, nil
}

// Retreat moves back one step without invoking any collector. Back
// navigation never re-validates; the prior collector runs again on the next
// Advance, so edits made en route are still captured.
func (w *Wizard) Retreat() {
	if w.index > 0 {
		w.index--
	}
}

// SetIncludeOptionalProfile inserts or removes the four optional profile
// steps. Meant to be called from the Basics collector when the respondent
// toggles "share additional info"; the current semantic step keeps its
// position across the rebuild.
func (w *Wizard) SetIncludeOptionalProfile(include bool) {
	if include == w.includeOptional || w.profileComplete {
		return
	}
	current := w.Current()
	w.includeOptional = include
	w.steps = buildSteps(w.profileComplete, include, w.questionCount)
	w.index = w.locate(current)
}

// locate finds the step with the same identity in the rebuilt list. A step
// that no longer exists (an optional step removed out from under us) lands
// back on Basics.
func (w *Wizard) locate(step Step) int {
	for i, s := range w.steps {
		if s == step {
			return i
		}
	}
	return 0
}
