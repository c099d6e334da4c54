package app

import (
	"fmt"
	"strings"
	"time"

	"survey-runner/internal/domain"
)

// BuilderConfig carries host-supplied defaults. These come from outside the
// core so grading and provenance are testable without ambient state.
type BuilderConfig struct {
	PassingThreshold int    // fallback when the questionnaire sets none
	DeviceName       string // provenance fallback
	DevicePlatform   string
	Source           string
}

// Builder assembles the wire payload from the answer store, respondent
// metadata, and the questionnaire identity.
type Builder struct {
	cfg    BuilderConfig
	engine Engine
	now    func() time.Time
}

func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.PassingThreshold <= 0 {
		cfg.PassingThreshold = domain.DefaultPassingThreshold
	}
	if strings.TrimSpace(cfg.DeviceName) == "" {
		cfg.DeviceName = domain.DefaultDeviceName
	}
	return &Builder{
		cfg:    cfg,
		engine: Engine{PassingThreshold: cfg.PassingThreshold},
		now:    time.Now,
	}
}

// BuildRequest is everything a submission is composed from.
type BuildRequest struct {
	Questionnaire domain.Questionnaire
	Answers       *domain.AnswerStore
	Respondent    domain.Respondent
	Team          *domain.Team
	Mode          domain.SubmissionType
	StartTime     time.Time
	ParentCode    string
}

// Build produces a complete submission or fails without one. Every question
// index must have a captured answer; a gap is a MissingAnswerError (the
// wizard prevents it in normal flow, this check is defensive). In exam mode
// the aggregate score is checked against the passing threshold and
// ErrExamNotPassing is returned below it — a failing exam must never reach
// the delivery queue, so callers check before queuing.
func (b *Builder) Build(req BuildRequest) (domain.Submission, error) {
	questions := req.Questionnaire.Questions
	entries := make([]domain.SubmissionAnswer, 0, len(questions))
	exam := req.Mode == domain.ExamSubmission

	for i, q := range questions {
		answer, ok := req.Answers.Get(i)
		if !ok {
			return domain.Submission{}, &domain.MissingAnswerError{Index: i}
		}
		entry := domain.SubmissionAnswer{Value: wireValue(answer)}
		if exam {
			g := b.engine.GradeQuestion(q, answer)
			entry.Grade = g.Grade
			entry.Mistakes = g.Mistakes
			entry.Passed = g.Passed
		}
		entries = append(entries, entry)
	}

	grade := 0
	status := domain.StatusComplete
	if exam {
		score := b.engine.GradeAll(req.Questionnaire, req.Answers)
		if !score.Passed {
			return domain.Submission{}, fmt.Errorf("%w: %d%% of %d%%",
				domain.ErrExamNotPassing, score.Percent, req.Questionnaire.Threshold(b.cfg.PassingThreshold))
		}
		grade = score.Earned
		if needsReview(questions) {
			status = domain.StatusRequiresGrading
		}
	}

	start := req.StartTime
	if start.IsZero() {
		start = b.now()
	}

	return domain.Submission{
		Type:     req.Mode,
		ParentID: req.Questionnaire.ParentID(),
		Parent: domain.ParentSnapshot{
			ID:          req.Questionnaire.ID,
			Rev:         req.Questionnaire.Rev,
			Name:        req.Questionnaire.Name,
			Questions:   questions,
			Description: req.Questionnaire.Description,
		},
		User:           req.Respondent,
		Team:           req.Team,
		Answers:        entries,
		Grade:          grade,
		Status:         status,
		StartTime:      start.Unix(),
		LastUpdateTime: b.now().Unix(),
		Source:         b.cfg.Source,
		ParentCode:     req.ParentCode,
		DeviceName:     b.cfg.DeviceName,
		DevicePlatform: b.cfg.DevicePlatform,
	}, nil
}

// wireValue converts a typed answer to its wire shape, deduplicating
// repeated choice references in multi-choice selections.
func wireValue(a domain.Answer) any {
	multi, ok := a.(domain.MultiChoiceAnswer)
	if !ok {
		return a.Wire()
	}
	seen := make(map[string]struct{}, len(multi.Options))
	deduped := make([]domain.SelectedOption, 0, len(multi.Options))
	for _, opt := range multi.Options {
		key := opt.ID
		if opt.IsOther {
			key = domain.OtherOptionID + ":" + opt.Label
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, opt)
	}
	return deduped
}

// needsReview marks exams that contain free-response questions with no
// configured key: the grader auto-satisfies them, a human still reads them.
func needsReview(questions []domain.Question) bool {
	for _, q := range questions {
		if q.Type != domain.LongText {
			continue
		}
		if q.Correct == nil || len(q.Correct.Values) == 0 {
			return true
		}
	}
	return false
}
