package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// QuestionType enumerates the supported question shapes.
type QuestionType string

const (
	ShortText    QuestionType = "short-text"
	LongText     QuestionType = "long-text"
	SingleChoice QuestionType = "single-choice"
	MultiChoice  QuestionType = "multi-choice"
	RatingScale  QuestionType = "rating-scale"
)

// DefaultPassingThreshold applies to exams whose questionnaire does not set
// its own threshold. Hosts can override it through config.
const DefaultPassingThreshold = 100

// DefaultDeviceName is the provenance fallback when the host supplies none.
const DefaultDeviceName = "unknown device"

// Choice is a fixed selectable option. Choice order is display order only.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Question is one positional entry of a questionnaire. Questions carry no
// persistent id; their index within the questionnaire is the stable key.
type Question struct {
	Type     QuestionType `json:"type"`
	Prompt   string       `json:"prompt"`
	Choices  []Choice     `json:"choices,omitempty"`
	HasOther bool         `json:"hasOther,omitempty"`
	Correct  *CorrectSpec `json:"correct,omitempty"`
	Points   *int         `json:"points,omitempty"` // nil means 1 when graded
}

// PointValue returns the configured point value, defaulting to 1.
func (q Question) PointValue() int {
	if q.Points == nil {
		return 1
	}
	return *q.Points
}

// Questionnaire is a survey or exam definition. Immutable for the lifetime
// of a wizard session; a new revision requires a new fetch.
type Questionnaire struct {
	ID               string     `json:"_id"`
	Rev              string     `json:"_rev,omitempty"`
	CourseID         string     `json:"courseId,omitempty"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	Questions        []Question `json:"questions"`
	PassingThreshold int        `json:"passingThreshold,omitempty"` // 0 means use the configured default
}

// ParentID is the composite submission-parent key: the questionnaire id,
// suffixed with "@<courseId>" when a course context exists.
func (q Questionnaire) ParentID() string {
	if q.CourseID != "" {
		return q.ID + "@" + q.CourseID
	}
	return q.ID
}

// Threshold resolves the passing threshold against a fallback.
func (q Questionnaire) Threshold(fallback int) int {
	if q.PassingThreshold > 0 {
		return q.PassingThreshold
	}
	return fallback
}

// CorrectSpec is the normalized correct-answer specification. The raw JSON
// shape varies by question type (a bare string, a number, a list of
// strings, or a list of {id,label} objects); it is parsed into Values here,
// exactly once, so grading never branches on raw dynamic shape.
type CorrectSpec struct {
	Values []string
}

// NewCorrectSpec builds a spec from literal values, for construction in code.
func NewCorrectSpec(values ...string) *CorrectSpec {
	return &CorrectSpec{Values: values}
}

func (c *CorrectSpec) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	values, err := correctValues(raw)
	if err != nil {
		return err
	}
	c.Values = values
	return nil
}

func (c CorrectSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Values)
}

func correctValues(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			switch entry := item.(type) {
			case string:
				values = append(values, entry)
			case float64:
				values = append(values, strconv.FormatFloat(entry, 'f', -1, 64))
			case map[string]any:
				if id, _ := entry["id"].(string); strings.TrimSpace(id) != "" {
					values = append(values, id)
				}
				if label, _ := entry["label"].(string); strings.TrimSpace(label) != "" {
					values = append(values, label)
				}
			default:
				return nil, fmt.Errorf("unsupported correct-answer entry %T", item)
			}
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unsupported correct-answer shape %T", raw)
	}
}
