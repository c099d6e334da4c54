package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"survey-runner/internal/domain"
)

func TestAnswerStoreRejectsMismatchedVariant(t *testing.T) {
	store := domain.NewAnswerStore([]domain.Question{
		{Type: domain.ShortText, Prompt: "name?"},
		{Type: domain.RatingScale, Prompt: "rate us"},
	})

	if err := store.Put(0, domain.RatingAnswer{Score: 5}); !errors.Is(err, domain.ErrAnswerTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if err := store.Put(0, domain.TextAnswer{Value: "Alice"}); err != nil {
		t.Fatalf("put text answer: %v", err)
	}
	if err := store.Put(1, domain.RatingAnswer{Score: 5}); err != nil {
		t.Fatalf("put rating answer: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 answers, got %d", store.Len())
	}
}

func TestAnswerStoreRejectsOutOfRangeIndex(t *testing.T) {
	store := domain.NewAnswerStore([]domain.Question{{Type: domain.ShortText}})

	if err := store.Put(1, domain.TextAnswer{Value: "x"}); !errors.Is(err, domain.ErrQuestionOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if err := store.Put(-1, domain.TextAnswer{Value: "x"}); !errors.Is(err, domain.ErrQuestionOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
}

func TestCorrectSpecUnmarshalShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"bare string", `"paris"`, []string{"paris"}},
		{"number", `7`, []string{"7"}},
		{"string list", `["c1","c2"]`, []string{"c1", "c2"}},
		{"object list", `[{"id":"c1","label":"Paris"}]`, []string{"c1", "Paris"}},
		{"mixed list", `["c1",{"label":"Lyon"}]`, []string{"c1", "Lyon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var spec domain.CorrectSpec
			if err := json.Unmarshal([]byte(tc.raw), &spec); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.raw, err)
			}
			if len(spec.Values) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, spec.Values)
			}
			for i := range tc.want {
				if spec.Values[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, spec.Values)
				}
			}
		})
	}
}

func TestCorrectSpecUnmarshalRejectsUnknownShape(t *testing.T) {
	var spec domain.CorrectSpec
	if err := json.Unmarshal([]byte(`{"nested":true}`), &spec); err == nil {
		t.Fatal("expected error for object shape")
	}
}

func TestAnswerFromWireRoundTrip(t *testing.T) {
	questions := []domain.Question{
		{Type: domain.LongText},
		{Type: domain.SingleChoice, Choices: []domain.Choice{{ID: "c1", Label: "Yes"}}},
		{Type: domain.MultiChoice, Choices: []domain.Choice{{ID: "c1", Label: "A"}, {ID: "c2", Label: "B"}}},
		{Type: domain.RatingScale},
	}
	answers := []domain.Answer{
		domain.TextAnswer{Value: "a thought"},
		domain.SingleChoiceAnswer{Option: &domain.SelectedOption{ID: "c1", Label: "Yes"}},
		domain.MultiChoiceAnswer{Options: []domain.SelectedOption{
			{ID: "c2", Label: "B"},
			domain.OtherOption("something else"),
		}},
		domain.RatingAnswer{Score: 7},
	}

	for i, q := range questions {
		// Serialize through JSON the way the outbox does, then parse back.
		raw, err := json.Marshal(answers[i].Wire())
		if err != nil {
			t.Fatalf("marshal answer %d: %v", i, err)
		}
		var wire any
		if err := json.Unmarshal(raw, &wire); err != nil {
			t.Fatalf("unmarshal answer %d: %v", i, err)
		}
		parsed, err := domain.AnswerFromWire(q, wire)
		if err != nil {
			t.Fatalf("parse answer %d: %v", i, err)
		}
		back, _ := json.Marshal(parsed.Wire())
		if string(back) != string(raw) {
			t.Fatalf("answer %d changed across round trip: %s vs %s", i, back, raw)
		}
	}
}

func TestAnswerFromWireRejectsWrongShape(t *testing.T) {
	q := domain.Question{Type: domain.RatingScale}
	if _, err := domain.AnswerFromWire(q, 7.0); err == nil {
		t.Fatal("expected error for non-string rating value")
	}
}

func TestParentIDComposition(t *testing.T) {
	qn := domain.Questionnaire{ID: "survey-1"}
	if got := qn.ParentID(); got != "survey-1" {
		t.Fatalf("expected plain id, got %q", got)
	}
	qn.CourseID = "course-9"
	if got := qn.ParentID(); got != "survey-1@course-9" {
		t.Fatalf("expected composite id, got %q", got)
	}
}
