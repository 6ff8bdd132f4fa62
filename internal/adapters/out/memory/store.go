// Package memory keeps orders, the cancellation ledger and the outbox in
// process memory. It backs STORAGE=memory and the concurrency tests.
//
// Writes are staged in a unit of work and applied at Commit under the store
// lock. Commit re-checks the version every staged order was loaded at, so of
// two units of work that loaded the same order version only the first to
// commit succeeds; the other gets errs.ConcurrentModificationError.
package memory

import (
	"sort"
	"sync"

	"fulfillment/internal/core/domain/model/ledger"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/outbox"
)

type Store struct {
	mu            sync.RWMutex
	orders        map[string]order.Snapshot
	cancellations map[string]ledger.Entry
	events        []outbox.Event
	nextEventID   int64
}

func NewStore() *Store {
	return &Store{
		orders:        make(map[string]order.Snapshot),
		cancellations: make(map[string]ledger.Entry),
	}
}

// write mutates the store under its lock and returns how to take it back.
type write func(s *Store) (undo func(), err error)

// apply runs writes in order; on the first error the applied ones are undone.
func (s *Store) apply(writes []write) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	undos := make([]func(), 0, len(writes))
	for _, w := range writes {
		undo, err := w(s)
		if err != nil {
			for i := len(undos) - 1; i >= 0; i-- {
				undos[i]()
			}
			return err
		}
		undos = append(undos, undo)
	}
	return nil
}

func (s *Store) order(id string) (order.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.orders[id]
	return snap, ok
}

func (s *Store) orderSnapshots() []order.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]order.Snapshot, 0, len(s.orders))
	for _, snap := range s.orders {
		all = append(all, snap)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID.String() < all[j].ID.String()
	})
	return all
}

func (s *Store) cancellation(id string) (ledger.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cancellations[id]
	return entry, ok
}

func (s *Store) cancellationEntries() []ledger.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]ledger.Entry, 0, len(s.cancellations))
	for _, entry := range s.cancellations {
		all = append(all, entry)
	}
	return all
}

func (s *Store) pendingEvents(limit int) []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]outbox.Event, 0, limit)
	for _, e := range s.events {
		if len(pending) == limit {
			break
		}
		if e.Status == outbox.StatusPending {
			pending = append(pending, e)
		}
	}
	return pending
}

// Events returns every outbox event with its current status.
func (s *Store) Events() []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.Event(nil), s.events...)
}
