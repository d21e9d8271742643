package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budgetwise/internal/core"
	"budgetwise/internal/log"
	"budgetwise/internal/ports"
)

// Status is the load state of an ExpenseStore.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// User-facing messages.
const (
	MsgNotAuthenticated = "You must be logged in to view expenses"
	MsgLoadFailed       = "Failed to load expenses. Please try again later."
	MsgAddUnauth        = "You must be logged in to add expenses"
	MsgAddFailed        = "Failed to add expense. Please try again."
)

// ErrSuperseded is returned by a load whose result was discarded because a
// newer load started after it.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Snapshot is a point-in-time copy of an ExpenseStore's state.
type Snapshot struct {
	Status     Status
	Records    []core.ExpenseRecord
	Message    string
	OwnerID    string
	Generation uint64
	LoadedAt   time.Time
}

// Summaries aggregates the snapshot's records by category.
func (s Snapshot) Summaries() []core.CategorySummary {
	return core.Aggregate(s.Records)
}

// ExpenseStore holds one user's expenses and their load status. Every load
// takes a generation token; a result is applied only if no newer load has
// started since, so overlapping loads cannot overwrite fresher state.
type ExpenseStore struct {
	identity ports.IdentityAccessor
	querier  ports.ExpenseQuerier
	inserter ports.ExpenseInserter
	logger   *log.Logger
	now      func() time.Time

	mu         sync.Mutex
	generation uint64
	status     Status
	records    []core.ExpenseRecord
	message    string
	ownerID    string
	loadedAt   time.Time
}

func NewExpenseStore(identity ports.IdentityAccessor, querier ports.ExpenseQuerier, inserter ports.ExpenseInserter, logger *log.Logger) *ExpenseStore {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseStore{
		identity: identity,
		querier:  querier,
		inserter: inserter,
		logger:   logger.WithComponent(log.ComponentStore),
		now:      time.Now,
	}
}

// Load replaces the records with ownerID's expenses, newest first.
// An empty ownerID fails with core.ErrUnauthenticated and leaves the records untouched.
// A query failure keeps the previous records and sets StatusError.
func (s *ExpenseStore) Load(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if ownerID == "" {
		s.status = StatusError
		s.message = MsgNotAuthenticated
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "Load without identity", log.FieldGeneration, gen)
		return core.ErrUnauthenticated
	}
	if s.ownerID != "" && s.ownerID != ownerID {
		// Records of the previous owner are dropped.
		s.records = nil
		s.loadedAt = time.Time{}
	}
	s.ownerID = ownerID
	s.status = StatusLoading
	s.message = ""
	s.mu.Unlock()

	start := s.now()
	records, err := s.querier.QueryExpenses(ctx, ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.DebugContext(ctx, "Discarding stale load result",
			log.FieldOwnerID, ownerID,
			log.FieldGeneration, gen,
			"latest_generation", s.generation)
		return ErrSuperseded
	}

	if err != nil {
		s.status = StatusError
		s.message = MsgLoadFailed
		s.logger.ErrorContext(ctx, "Failed to load expenses",
			log.FieldOwnerID, ownerID,
			log.FieldGeneration, gen,
			log.FieldError, err)
		return fmt.Errorf("%w: query expenses: %w", core.ErrRemoteFailure, err)
	}

	if records == nil {
		records = []core.ExpenseRecord{}
	}
	s.records = records
	s.status = StatusLoaded
	s.loadedAt = s.now()
	s.logger.InfoContext(ctx, "Expenses loaded",
		log.FieldOwnerID, ownerID,
		log.FieldCount, len(records),
		log.FieldGeneration, gen,
		log.FieldDuration, s.loadedAt.Sub(start).Milliseconds())
	return nil
}

// Refresh loads the expenses of whoever the identity accessor reports.
func (s *ExpenseStore) Refresh(ctx context.Context) error {
	id := s.identity.Identity(ctx)
	if !id.Authenticated {
		return s.Load(ctx, "")
	}
	return s.Load(ctx, id.UserID)
}

// Append stores a new expense for the current identity and then reloads.
// The store is never mutated locally; the reload is what makes the new
// record visible. It returns the id of the stored record.
func (s *ExpenseStore) Append(ctx context.Context, in core.NewExpense) (string, error) {
	id := s.identity.Identity(ctx)
	if !id.Authenticated || id.UserID == "" {
		return "", core.ErrUnauthenticated
	}
	if err := in.Validate(); err != nil {
		return "", err
	}

	expenseID, err := s.inserter.InsertExpense(ctx, in.Record(id.UserID, s.now()))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to add expense",
			log.FieldOwnerID, id.UserID,
			log.FieldError, err)
		return "", fmt.Errorf("%w: insert expense: %w", core.ErrRemoteFailure, err)
	}

	if err := s.Load(ctx, id.UserID); err != nil {
		return expenseID, err
	}
	return expenseID, nil
}

// Snapshot returns a copy of the current state.
func (s *ExpenseStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []core.ExpenseRecord
	if s.records != nil {
		records = append([]core.ExpenseRecord{}, s.records...)
	}
	return Snapshot{
		Status:     s.status,
		Records:    records,
		Message:    s.message,
		OwnerID:    s.ownerID,
		Generation: s.generation,
		LoadedAt:   s.loadedAt,
	}
}

// Reset returns the store to idle and drops its records.
func (s *ExpenseStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.status = StatusIdle
	s.records = nil
	s.message = ""
	s.ownerID = ""
	s.loadedAt = time.Time{}
}
