package app

import (
	"context"
	"sync"

	"survey-runner/internal/domain"
)

// OutboxStore is the durable local queue of not-yet-accepted submissions.
// Implementations serialize their storage operations per logical database;
// single-writer discipline is sufficient, no multi-process access assumed.
type OutboxStore interface {
	Enqueue(ctx context.Context, entry domain.OutboxEntry) (int64, error)
	// ListByTeam returns entries newest-first; an empty teamID lists all.
	ListByTeam(ctx context.Context, teamID string) ([]domain.OutboxEntry, error)
	Get(ctx context.Context, localID int64) (domain.OutboxEntry, error)
	Delete(ctx context.Context, localID int64) (bool, error)
}

// OutboxService fronts the durable store and fans change snapshots out to
// observers, so a UI shell can keep its queued-submissions list current
// without polling.
type OutboxService struct {
	store OutboxStore

	mu          sync.Mutex
	subscribers map[chan []domain.OutboxEntry]struct{}
}

func NewOutboxService(store OutboxStore) *OutboxService {
	return &OutboxService{
		store:       store,
		subscribers: make(map[chan []domain.OutboxEntry]struct{}),
	}
}

func (s *OutboxService) Enqueue(ctx context.Context, entry domain.OutboxEntry) (int64, error) {
	localID, err := s.store.Enqueue(ctx, entry)
	if err != nil {
		return 0, err
	}
	s.broadcast(ctx)
	return localID, nil
}

func (s *OutboxService) ListByTeam(ctx context.Context, teamID string) ([]domain.OutboxEntry, error) {
	return s.store.ListByTeam(ctx, teamID)
}

func (s *OutboxService) Get(ctx context.Context, localID int64) (domain.OutboxEntry, error) {
	return s.store.Get(ctx, localID)
}

func (s *OutboxService) Delete(ctx context.Context, localID int64) (bool, error) {
	deleted, err := s.store.Delete(ctx, localID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.broadcast(ctx)
	}
	return deleted, nil
}

// Subscribe returns a channel of full outbox snapshots (newest-first). The
// caller must invoke the returned cancel function to avoid leaks.
func (s *OutboxService) Subscribe(ctx context.Context) (<-chan []domain.OutboxEntry, func(), error) {
	initial, err := s.store.ListByTeam(ctx, "")
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan []domain.OutboxEntry, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *OutboxService) broadcast(ctx context.Context) {
	s.mu.Lock()
	if len(s.subscribers) == 0 {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	snapshot, err := s.store.ListByTeam(ctx, "")
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot so a slow observer never blocks
			// the submit path.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
