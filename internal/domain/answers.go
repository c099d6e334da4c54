package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// OtherOptionID is the synthesized id of the free-text escape choice.
const OtherOptionID = "other"

// SelectedOption is a captured choice selection. "Other" entries carry the
// synthesized id and the respondent's free text as the label.
type SelectedOption struct {
	ID      string `json:"id,omitempty"`
	Label   string `json:"label"`
	IsOther bool   `json:"isOther,omitempty"`
}

// OtherOption builds the free-text escape selection.
func OtherOption(text string) SelectedOption {
	return SelectedOption{ID: OtherOptionID, Label: text, IsOther: true}
}

// Answer is a captured response to a single question. The union is closed:
// exactly one variant exists per question type, and the store rejects
// variants that do not match their question's type.
type Answer interface {
	// Wire converts the answer to its wire-shaped value.
	Wire() any

	matches(t QuestionType) bool
}

// TextAnswer answers short-text and long-text questions.
type TextAnswer struct {
	Value string
}

func (a TextAnswer) Wire() any { return a.Value }

func (a TextAnswer) matches(t QuestionType) bool { return t == ShortText || t == LongText }

// SingleChoiceAnswer answers single-choice questions. Option may be nil when
// the respondent cleared their selection.
type SingleChoiceAnswer struct {
	Option *SelectedOption
}

func (a SingleChoiceAnswer) Wire() any {
	if a.Option == nil {
		return nil
	}
	return *a.Option
}

func (a SingleChoiceAnswer) matches(t QuestionType) bool { return t == SingleChoice }

// MultiChoiceAnswer answers multi-choice questions.
type MultiChoiceAnswer struct {
	Options []SelectedOption
}

func (a MultiChoiceAnswer) Wire() any {
	options := a.Options
	if options == nil {
		options = []SelectedOption{}
	}
	return options
}

func (a MultiChoiceAnswer) matches(t QuestionType) bool { return t == MultiChoice }

// RatingAnswer answers rating-scale questions with a score in [1,9].
type RatingAnswer struct {
	Score int
}

func (a RatingAnswer) Wire() any { return strconv.Itoa(a.Score) }

func (a RatingAnswer) matches(t QuestionType) bool { return t == RatingScale }

// AnswerFromWire parses a wire-shaped value back into the typed union, using
// the question to pick the variant. The value may come straight from a JSON
// decode, so option shapes arrive as generic maps.
func AnswerFromWire(q Question, value any) (Answer, error) {
	switch q.Type {
	case ShortText, LongText:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("text answer: expected string, got %T", value)
		}
		return TextAnswer{Value: s}, nil
	case SingleChoice:
		if value == nil {
			return SingleChoiceAnswer{}, nil
		}
		opt, err := optionFromWire(value)
		if err != nil {
			return nil, err
		}
		return SingleChoiceAnswer{Option: &opt}, nil
	case MultiChoice:
		items, ok := value.([]any)
		if !ok {
			if typed, isTyped := value.([]SelectedOption); isTyped {
				return MultiChoiceAnswer{Options: typed}, nil
			}
			return nil, fmt.Errorf("multi-choice answer: expected list, got %T", value)
		}
		options := make([]SelectedOption, 0, len(items))
		for _, item := range items {
			opt, err := optionFromWire(item)
			if err != nil {
				return nil, err
			}
			options = append(options, opt)
		}
		return MultiChoiceAnswer{Options: options}, nil
	case RatingScale:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("rating answer: expected string, got %T", value)
		}
		score, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("rating answer: %w", err)
		}
		return RatingAnswer{Score: score}, nil
	default:
		return nil, fmt.Errorf("unknown question type %q", q.Type)
	}
}

func optionFromWire(value any) (SelectedOption, error) {
	if opt, ok := value.(SelectedOption); ok {
		return opt, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return SelectedOption{}, err
	}
	var opt SelectedOption
	if err := json.Unmarshal(raw, &opt); err != nil {
		return SelectedOption{}, fmt.Errorf("option value: %w", err)
	}
	return opt, nil
}

// AnswerStore holds captured answers keyed by question index. It is owned by
// one wizard session and mutated only from that session's control flow, so
// it carries no locking.
type AnswerStore struct {
	questions []Question
	answers   map[int]Answer
}

func NewAnswerStore(questions []Question) *AnswerStore {
	return &AnswerStore{
		questions: questions,
		answers:   make(map[int]Answer, len(questions)),
	}
}

// Put stores an answer for the question at index, enforcing that the answer
// variant matches the question's type.
func (s *AnswerStore) Put(index int, a Answer) error {
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("%w: %d", ErrQuestionOutOfRange, index)
	}
	if a == nil || !a.matches(s.questions[index].Type) {
		return fmt.Errorf("%w: question %d is %s", ErrAnswerTypeMismatch, index, s.questions[index].Type)
	}
	s.answers[index] = a
	return nil
}

func (s *AnswerStore) Get(index int) (Answer, bool) {
	a, ok := s.answers[index]
	return a, ok
}

// Len reports the number of captured answers, not the number of questions.
func (s *AnswerStore) Len() int { return len(s.answers) }

// Questions returns the question list this store was built for.
func (s *AnswerStore) Questions() []Question { return s.questions }
