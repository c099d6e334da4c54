package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"survey-runner/internal/domain"
)

// DocRef is a remote document identity: opaque id plus revision token.
type DocRef struct {
	ID  string
	Rev string
}

// SubmissionGateway is the remote document-store boundary. Implementations
// construct requests and handle transport-level retries; the core treats
// every failure they return uniformly as "undeliverable now".
type SubmissionGateway interface {
	// FindSubmission looks up an existing submission by composite parent
	// id and respondent id, for update-in-place instead of duplicate
	// creation.
	FindSubmission(ctx context.Context, parentID, userID string) (DocRef, bool, error)
	// QuestionnaireRevision fetches the current revision token of a
	// questionnaire document. Read-only; used for conflict detection.
	QuestionnaireRevision(ctx context.Context, questionnaireID string) (string, error)
	// Save creates or updates a submission document; update semantics
	// apply when id/revision are embedded in the payload. Stale-revision
	// writes surface domain.ErrRevisionConflict.
	Save(ctx context.Context, sub domain.Submission) (DocRef, error)
}

// ConnectivityProbe reports whether the device currently believes it has a
// route to the remote store. Consulted up front so a known-offline device
// skips straight to the queue.
type ConnectivityProbe interface {
	Online() bool
}

// ConnectivityFunc adapts a plain function to ConnectivityProbe.
type ConnectivityFunc func() bool

func (f ConnectivityFunc) Online() bool { return f() }

// AlwaysOnline is the default probe for hosts without connectivity signals.
var AlwaysOnline = ConnectivityFunc(func() bool { return true })

// DeliveryOutcome says where a submission ended up.
type DeliveryOutcome int

const (
	// Delivered: accepted by the remote store.
	Delivered DeliveryOutcome = iota
	// Queued: saved locally, not yet sent. Hosts must present this
	// distinctly from "submitted".
	Queued
)

// DeliveryResult reports the outcome of a submit attempt.
type DeliveryResult struct {
	Outcome DeliveryOutcome
	Ref     DocRef // set when delivered
	LocalID int64  // outbox entry id when queued
}

// DeliveryService attempts remote delivery and falls back to the outbox.
// Transport failures are never fatal here; only local storage failures are.
type DeliveryService struct {
	gateway SubmissionGateway
	outbox  *OutboxService
	probe   ConnectivityProbe
	newID   func() string
	now     func() time.Time
}

func NewDeliveryService(gateway SubmissionGateway, outbox *OutboxService, probe ConnectivityProbe) *DeliveryService {
	if probe == nil {
		probe = AlwaysOnline
	}
	return &DeliveryService{
		gateway: gateway,
		outbox:  outbox,
		probe:   probe,
		newID:   func() string { return "submission:" + uuid.NewString() },
		now:     time.Now,
	}
}

// Submit delivers a built submission, queuing it on any transport failure
// or when the device is known offline. The queue write runs on a context
// detached from cancellation: a torn-down wizard screen must not drop a
// response that was already dispatched.
func (s *DeliveryService) Submit(ctx context.Context, sub domain.Submission) (DeliveryResult, error) {
	if sub.ID == "" {
		// A stable client-side id keeps retried creates idempotent.
		sub.ID = s.newID()
	}

	if !s.probe.Online() {
		return s.queue(ctx, sub)
	}

	ref, found, err := s.gateway.FindSubmission(ctx, sub.ParentID, sub.User.ID)
	if err != nil {
		log.Printf("submission lookup failed, queuing locally: %v", err)
		return s.queue(ctx, sub)
	}
	if found {
		sub.ID = ref.ID
		sub.Rev = ref.Rev
	}

	saved, err := s.gateway.Save(ctx, sub)
	if err != nil {
		log.Printf("delivery failed, queuing locally: %v", err)
		return s.queue(ctx, sub)
	}
	return DeliveryResult{Outcome: Delivered, Ref: saved}, nil
}

func (s *DeliveryService) queue(ctx context.Context, sub domain.Submission) (DeliveryResult, error) {
	entry := domain.OutboxEntry{
		SurveyID:   sub.Parent.ID,
		SurveyName: sub.Parent.Name,
		EnqueuedAt: s.now(),
		Submission: sub,
	}
	if sub.Team != nil {
		entry.TeamID = sub.Team.ID
		entry.TeamName = sub.Team.Name
	}
	localID, err := s.outbox.Enqueue(context.WithoutCancel(ctx), entry)
	if err != nil {
		return DeliveryResult{}, err
	}
	return DeliveryResult{Outcome: Queued, LocalID: localID}, nil
}
