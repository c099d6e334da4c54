package app

import (
	"context"
	"errors"
	"log"

	"survey-runner/internal/domain"
)

// RetryOutcome classifies a resend attempt. There is no automatic merge or
// overwrite path: a moved revision always comes back as RetryConflict and
// waits for an explicit keep/discard decision.
type RetryOutcome int

const (
	// RetryDelivered: revision verified, resent, entry removed.
	RetryDelivered RetryOutcome = iota
	// RetryUnverifiable: the revision could not be verified or the resend
	// itself failed; the entry remains queued, try again later.
	RetryUnverifiable
	// RetryConflict: the questionnaire changed since the response was
	// composed. The caller must ask the respondent to keep or discard.
	RetryConflict
)

// RetryResult reports a resend attempt. LocalRev/RemoteRev are populated on
// conflict so hosts can show both tokens.
type RetryResult struct {
	Outcome   RetryOutcome
	Ref       DocRef
	LocalRev  string
	RemoteRev string
}

// ConflictResolver guards queued resends with an optimistic-concurrency
// check against the remote questionnaire revision.
type ConflictResolver struct {
	gateway SubmissionGateway
	outbox  *OutboxService
}

func NewConflictResolver(gateway SubmissionGateway, outbox *OutboxService) *ConflictResolver {
	return &ConflictResolver{gateway: gateway, outbox: outbox}
}

// Retry re-attempts delivery of a queued entry. The embedded parent
// snapshot's revision is compared against the store's current token first;
// only a verified match proceeds to resend. Transport and lookup failures
// are results, not errors — the entry stays queued either way.
func (r *ConflictResolver) Retry(ctx context.Context, localID int64) (RetryResult, error) {
	entry, err := r.outbox.Get(ctx, localID)
	if err != nil {
		return RetryResult{}, err
	}

	remoteRev, err := r.gateway.QuestionnaireRevision(ctx, entry.Submission.Parent.ID)
	if err != nil {
		if errors.Is(err, domain.ErrQuestionnaireNotFound) {
			// A deleted questionnaire is a shape change, not a hiccup:
			// resending blind would be worse than asking.
			return RetryResult{
				Outcome:  RetryConflict,
				LocalRev: entry.Submission.Parent.Rev,
			}, nil
		}
		log.Printf("revision check failed for entry %d: %v", localID, err)
		return RetryResult{Outcome: RetryUnverifiable}, nil
	}

	localRev := entry.Submission.Parent.Rev
	if remoteRev != localRev {
		return RetryResult{
			Outcome:   RetryConflict,
			LocalRev:  localRev,
			RemoteRev: remoteRev,
		}, nil
	}

	sub := entry.Submission
	ref, found, err := r.gateway.FindSubmission(ctx, sub.ParentID, sub.User.ID)
	if err != nil {
		return RetryResult{Outcome: RetryUnverifiable}, nil
	}
	if found {
		sub.ID = ref.ID
		sub.Rev = ref.Rev
	}

	saved, err := r.gateway.Save(ctx, sub)
	if err != nil {
		log.Printf("resend failed for entry %d: %v", localID, err)
		return RetryResult{Outcome: RetryUnverifiable}, nil
	}

	if _, err := r.outbox.Delete(context.WithoutCancel(ctx), localID); err != nil {
		return RetryResult{}, err
	}
	return RetryResult{Outcome: RetryDelivered, Ref: saved}, nil
}

// Discard is the respondent's explicit decision to drop a conflicted entry.
// Keeping an entry needs no call: the resolver never deletes on its own.
func (r *ConflictResolver) Discard(ctx context.Context, localID int64) (bool, error) {
	return r.outbox.Delete(ctx, localID)
}
