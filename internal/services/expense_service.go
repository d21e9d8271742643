package services

import (
	"context"
	"errors"
	"fmt"

	"budgetwise/internal/core"
	"budgetwise/internal/log"
	"budgetwise/internal/ports"
)

// EventPublisher announces stored expenses to other processes.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, r core.ExpenseRecord) error
}

// ExpenseService is the document store used by the application: it writes
// through to storage and then publishes an expense.created event.
// Publishing is best effort; the stored record is the source of truth.
type ExpenseService struct {
	store     ports.DocumentStore
	publisher EventPublisher
	logger    *log.Logger
	closers   []func() error
}

var _ ports.DocumentStore = (*ExpenseService)(nil)

// NewExpenseService wires a store and an optional publisher. closers run on Close.
func NewExpenseService(store ports.DocumentStore, publisher EventPublisher, logger *log.Logger, closers ...func() error) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentExpense),
		closers:   closers,
	}
}

// InsertExpense saves the record and publishes a created event.
func (s *ExpenseService) InsertExpense(ctx context.Context, r core.ExpenseRecord) (string, error) {
	id, err := s.store.InsertExpense(ctx, r)
	if err != nil {
		return "", fmt.Errorf("save expense: %w", err)
	}
	r.ID = id

	log.NewStructuredLogger(s.logger).LogExpenseCreated(ctx, r.OwnerID, id, r.Amount, string(r.Category), r.Date.String())

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping expense created event")
		return id, nil
	}
	if err := s.publisher.PublishExpenseCreated(ctx, r); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense created event",
			log.FieldExpenseID, id,
			log.FieldError, err)
	}
	return id, nil
}

func (s *ExpenseService) QueryExpenses(ctx context.Context, ownerID string) ([]core.ExpenseRecord, error) {
	return s.store.QueryExpenses(ctx, ownerID)
}

func (s *ExpenseService) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	return s.store.GetExpense(ctx, id)
}

func (s *ExpenseService) ListDueBills(ctx context.Context, day core.Date) ([]core.ExpenseRecord, error) {
	return s.store.ListDueBills(ctx, day)
}

// Close runs every registered closer and joins their errors.
func (s *ExpenseService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}
