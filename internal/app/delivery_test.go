package app_test

import (
	"context"
	"fmt"
	"testing"

	"survey-runner/internal/app"
	"survey-runner/internal/domain"
	"survey-runner/internal/infra/memory"
)

func builtSurveySubmission(t *testing.T) domain.Submission {
	t.Helper()
	qn := domain.Questionnaire{
		ID:   "survey-1",
		Rev:  "3-abc",
		Name: "Feedback",
		Questions: []domain.Question{
			{Type: domain.ShortText, Prompt: "one"},
		},
	}
	answers := domain.NewAnswerStore(qn.Questions)
	mustPut(t, answers, 0, domain.TextAnswer{Value: "fine"})

	sub, err := newTestBuilder().Build(app.BuildRequest{
		Questionnaire: qn,
		Answers:       answers,
		Respondent:    domain.Respondent{ID: "u1", Name: "Alice"},
		Team:          &domain.Team{ID: "t1", Name: "Blue"},
		Mode:          domain.SurveySubmission,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return sub
}

func TestSubmitDeliversWhenOnline(t *testing.T) {
	ctx := context.Background()
	gateway := memory.NewGateway()
	outbox := app.NewOutboxService(memory.NewOutbox())
	service := app.NewDeliveryService(gateway, outbox, nil)

	result, err := service.Submit(ctx, builtSurveySubmission(t))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Outcome != app.Delivered {
		t.Fatalf("expected delivered, got %v", result.Outcome)
	}
	if result.Ref.ID == "" || result.Ref.Rev == "" {
		t.Fatalf("expected assigned identity, got %+v", result.Ref)
	}

	entries, err := outbox.ListByTeam(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("nothing should be queued on success, got %d entries", len(entries))
	}
}

// Scenario: a transport failure queues the submission exactly once, it shows
// up in team listings, and a delete after a manual resend removes it.
func TestSubmitQueuesOnTransportFailure(t *testing.T) {
	ctx := context.Background()
	gateway := memory.NewGateway()
	gateway.SaveErr = fmt.Errorf("%w: connection reset", domain.ErrTransport)
	outbox := app.NewOutboxService(memory.NewOutbox())
	service := app.NewDeliveryService(gateway, outbox, nil)

	result, err := service.Submit(ctx, builtSurveySubmission(t))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Outcome != app.Queued || result.LocalID == 0 {
		t.Fatalf("expected queued entry, got %+v", result)
	}

	entries, err := outbox.ListByTeam(ctx, "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one queued entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.SurveyID != "survey-1" || entry.SurveyName != "Feedback" || entry.TeamName != "Blue" {
		t.Fatalf("expected denormalized context, got %+v", entry)
	}
	if entry.Submission.Parent.Rev != "3-abc" {
		t.Fatalf("expected frozen parent revision, got %q", entry.Submission.Parent.Rev)
	}

	// Manual resend succeeded elsewhere; the entry is removed.
	deleted, err := outbox.Delete(ctx, entry.LocalID)
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	if remaining, _ := outbox.ListByTeam(ctx, ""); len(remaining) != 0 {
		t.Fatalf("expected empty outbox, got %d", len(remaining))
	}
}

func TestSubmitSkipsNetworkWhenOffline(t *testing.T) {
	ctx := context.Background()
	gateway := memory.NewGateway()
	outbox := app.NewOutboxService(memory.NewOutbox())
	service := app.NewDeliveryService(gateway, outbox, app.ConnectivityFunc(func() bool { return false }))

	result, err := service.Submit(ctx, builtSurveySubmission(t))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Outcome != app.Queued {
		t.Fatalf("expected queued, got %v", result.Outcome)
	}
	if gateway.SaveCalls() != 0 {
		t.Fatalf("offline submit must not touch the network, got %d saves", gateway.SaveCalls())
	}
}

func TestSubmitQueuesEvenAfterSessionCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gateway := memory.NewGateway()
	gateway.SaveErr = fmt.Errorf("%w: timeout", domain.ErrTransport)
	outbox := app.NewOutboxService(memory.NewOutbox())
	service := app.NewDeliveryService(gateway, outbox, nil)

	// The hosting screen is torn down while the request is in flight; the
	// response still lands in the queue.
	cancel()
	result, err := service.Submit(ctx, builtSurveySubmission(t))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Outcome != app.Queued {
		t.Fatalf("expected queued, got %v", result.Outcome)
	}
}

func TestSubmitUpdatesExistingSubmissionInPlace(t *testing.T) {
	ctx := context.Background()
	gateway := memory.NewGateway()
	outbox := app.NewOutboxService(memory.NewOutbox())
	service := app.NewDeliveryService(gateway, outbox, nil)

	first, err := service.Submit(ctx, builtSurveySubmission(t))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := service.Submit(ctx, builtSurveySubmission(t))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.Ref.ID != second.Ref.ID {
		t.Fatalf("expected update-in-place, got %q then %q", first.Ref.ID, second.Ref.ID)
	}
	if first.Ref.Rev == second.Ref.Rev {
		t.Fatalf("expected a new revision, got %q twice", second.Ref.Rev)
	}
}
