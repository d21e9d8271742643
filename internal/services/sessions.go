package services

import (
	"context"
	"sync"
	"time"

	"budgetwise/internal/log"
	"budgetwise/internal/ports"
)

// Sessions keeps one ExpenseStore per signed-in user. A store lives until
// the user signs out or it sits idle past the expiry given to Expire.
type Sessions struct {
	identity ports.IdentityAccessor
	store    ports.DocumentStore
	logger   *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*session
}

type session struct {
	store    *ExpenseStore
	lastUsed time.Time
}

func NewSessions(identity ports.IdentityAccessor, store ports.DocumentStore, logger *log.Logger) *Sessions {
	if logger == nil {
		logger = log.Discard()
	}
	return &Sessions{
		identity: identity,
		store:    store,
		logger:   logger.WithComponent(log.ComponentStore),
		now:      time.Now,
		entries:  make(map[string]*session),
	}
}

// For returns ownerID's store, creating it on first use.
func (s *Sessions) For(ownerID string) *ExpenseStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[ownerID]
	if !ok {
		e = &session{store: NewExpenseStore(s.identity, s.store, s.store, s.logger)}
		s.entries[ownerID] = e
	}
	e.lastUsed = s.now()
	return e.store
}

// Current returns the store of the identity on ctx. Unauthenticated callers
// get a fresh, unshared store.
func (s *Sessions) Current(ctx context.Context) *ExpenseStore {
	id := s.identity.Identity(ctx)
	if !id.Authenticated || id.UserID == "" {
		return NewExpenseStore(s.identity, s.store, s.store, s.logger)
	}
	return s.For(id.UserID)
}

// End tears down ownerID's store.
func (s *Sessions) End(ownerID string) {
	s.mu.Lock()
	e, ok := s.entries[ownerID]
	delete(s.entries, ownerID)
	s.mu.Unlock()
	if ok {
		e.store.Reset()
		s.logger.Info("Session ended", log.FieldOwnerID, ownerID)
	}
}

// Expire ends every session idle for longer than idle and reports how many were removed.
func (s *Sessions) Expire(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	var stale []*session
	for owner, e := range s.entries {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e)
			delete(s.entries, owner)
		}
	}
	s.mu.Unlock()
	for _, e := range stale {
		e.store.Reset()
	}
	return len(stale)
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
