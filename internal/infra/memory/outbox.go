package memory

import (
	"context"
	"sort"
	"sync"

	"survey-runner/internal/domain"
)

// Outbox is an in-memory implementation of app.OutboxStore, useful for
// tests and redis-less demos. Entries survive only as long as the process.
type Outbox struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[int64]domain.OutboxEntry
}

func NewOutbox() *Outbox {
	return &Outbox{entries: make(map[int64]domain.OutboxEntry)}
}

func (o *Outbox) Enqueue(_ context.Context, entry domain.OutboxEntry) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	entry.LocalID = o.nextID
	o.entries[entry.LocalID] = entry
	return entry.LocalID, nil
}

func (o *Outbox) ListByTeam(_ context.Context, teamID string) ([]domain.OutboxEntry, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	entries := make([]domain.OutboxEntry, 0, len(o.entries))
	for _, entry := range o.entries {
		if teamID != "" && entry.TeamID != teamID {
			continue
		}
		entries = append(entries, entry)
	}
	// Newest first; local ids are monotonic.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LocalID > entries[j].LocalID
	})
	return entries, nil
}

func (o *Outbox) Get(_ context.Context, localID int64) (domain.OutboxEntry, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	entry, ok := o.entries[localID]
	if !ok {
		return domain.OutboxEntry{}, domain.ErrEntryNotFound
	}
	return entry, nil
}

func (o *Outbox) Delete(_ context.Context, localID int64) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.entries[localID]; !ok {
		return false, nil
	}
	delete(o.entries, localID)
	return true, nil
}
