package app

import (
	"math"
	"strconv"
	"strings"

	"survey-runner/internal/domain"
)

// Engine grades captured answers against their questionnaire. It is pure:
// no I/O, no clock, and identical inputs always produce identical results,
// so exams grade the same offline as online.
type Engine struct {
	// PassingThreshold applies when the questionnaire sets none. Zero
	// falls back to domain.DefaultPassingThreshold.
	PassingThreshold int
}

// QuestionGrade is the per-question outcome. Mistakes is 0 or 1 per
// question, never per missed sub-choice.
type QuestionGrade struct {
	Grade    int
	Mistakes int
	Passed   bool
}

// Score is the aggregate exam outcome.
type Score struct {
	Earned  int
	Total   int
	Percent int
	Passed  bool
}

// IsCorrect decides whether an answer satisfies its question.
func (e Engine) IsCorrect(q domain.Question, a domain.Answer) bool {
	switch answer := a.(type) {
	case domain.TextAnswer:
		return textCorrect(q, answer.Value)
	case domain.SingleChoiceAnswer:
		return singleChoiceCorrect(q, answer.Option)
	case domain.MultiChoiceAnswer:
		return multiChoiceCorrect(q, answer.Options)
	case domain.RatingAnswer:
		return ratingCorrect(q, answer.Score)
	default:
		return false
	}
}

// GradeQuestion maps correctness onto the question's point value.
func (e Engine) GradeQuestion(q domain.Question, a domain.Answer) QuestionGrade {
	if e.IsCorrect(q, a) {
		return QuestionGrade{Grade: q.PointValue(), Passed: true}
	}
	return QuestionGrade{Mistakes: 1}
}

// GradeAll aggregates over every question. A questionnaire whose total
// configured points is zero always passes; that guards against a
// misconfigured all-zero-point exam.
func (e Engine) GradeAll(qn domain.Questionnaire, answers *domain.AnswerStore) Score {
	var score Score
	for i, q := range qn.Questions {
		score.Total += q.PointValue()
		if a, ok := answers.Get(i); ok && e.IsCorrect(q, a) {
			score.Earned += q.PointValue()
		}
	}
	if score.Total == 0 {
		score.Percent = 100
		score.Passed = true
		return score
	}
	score.Percent = int(math.Round(100 * float64(score.Earned) / float64(score.Total)))
	score.Passed = score.Percent >= qn.Threshold(e.threshold())
	return score
}

func (e Engine) threshold() int {
	if e.PassingThreshold > 0 {
		return e.PassingThreshold
	}
	return domain.DefaultPassingThreshold
}

// textCorrect: with a non-blank key, the trimmed response must match it
// case-insensitively. With no key configured, any non-blank response counts
// as correct — ungraded free-response inside a graded exam is treated as
// satisfied, matching long-standing scoring behavior.
func textCorrect(q domain.Question, response string) bool {
	response = strings.TrimSpace(response)
	key := correctLiteral(q)
	if key == "" {
		return response != ""
	}
	return strings.EqualFold(response, key)
}

func singleChoiceCorrect(q domain.Question, selected *domain.SelectedOption) bool {
	if selected == nil {
		return false
	}
	ids := correctChoiceIDs(q)
	if len(ids) > 0 {
		if strings.TrimSpace(selected.ID) == "" {
			return false
		}
		sel := normalizeChoiceID(selected.ID)
		for _, id := range ids {
			if sel == id {
				return true
			}
		}
		return false
	}
	// No spec value resolved to a known choice id: fall back to matching
	// the selected label against the correct text values.
	label := strings.TrimSpace(selected.Label)
	for _, value := range correctTexts(q) {
		if strings.EqualFold(label, value) {
			return true
		}
	}
	return false
}

// multiChoiceCorrect requires exact set equality between the selected
// non-"other" ids and the correct ids. Order never matters, and "other"
// selections never count toward correctness.
func multiChoiceCorrect(q domain.Question, selected []domain.SelectedOption) bool {
	correct := make(map[string]struct{})
	for _, id := range correctChoiceIDs(q) {
		correct[id] = struct{}{}
	}
	if len(correct) == 0 {
		return false
	}
	picked := make(map[string]struct{})
	for _, opt := range selected {
		if opt.IsOther || strings.TrimSpace(opt.ID) == "" {
			continue
		}
		picked[normalizeChoiceID(opt.ID)] = struct{}{}
	}
	if len(picked) != len(correct) {
		return false
	}
	for id := range picked {
		if _, ok := correct[id]; !ok {
			return false
		}
	}
	return true
}

func ratingCorrect(q domain.Question, score int) bool {
	key := correctLiteral(q)
	if key == "" {
		return false
	}
	return key == strconv.Itoa(score)
}

// correctLiteral returns the first non-blank spec value, trimmed.
func correctLiteral(q domain.Question) string {
	if q.Correct == nil {
		return ""
	}
	for _, v := range q.Correct.Values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// correctChoiceIDs resolves spec values against the question's choice list
// and returns the normalized ids that matched. Values naming no known
// choice id resolve to nothing, which routes grading to the label fallback.
func correctChoiceIDs(q domain.Question) []string {
	if q.Correct == nil {
		return nil
	}
	known := make(map[string]struct{}, len(q.Choices))
	for _, c := range q.Choices {
		if id := strings.TrimSpace(c.ID); id != "" {
			known[normalizeChoiceID(id)] = struct{}{}
		}
	}
	var ids []string
	for _, v := range q.Correct.Values {
		norm := normalizeChoiceID(strings.TrimSpace(v))
		if norm == "" {
			continue
		}
		if _, ok := known[norm]; ok {
			ids = append(ids, norm)
		}
	}
	return ids
}

func correctTexts(q domain.Question) []string {
	if q.Correct == nil {
		return nil
	}
	var texts []string
	for _, v := range q.Correct.Values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	return texts
}

// normalizeChoiceID strips everything after the first "/". Upstream data
// carries composite id strings ("choiceId/suffix"); this is a compatibility
// shim, kept verbatim, not a semantic statement about ids.
func normalizeChoiceID(id string) string {
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return id[:i]
	}
	return id
}
