// Package worker runs the background bill reminder loop.
package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetwise/internal/amqp"
	"budgetwise/internal/core"
	"budgetwise/internal/log"
)

// Consumer delivers expense.created messages until ctx is done.
type Consumer interface {
	ConsumeWithReconnect(ctx context.Context, handler amqp.Handler) error
}

// Reminder is the reminder logic the worker drives.
type Reminder interface {
	HandleCreated(ctx context.Context, r core.ExpenseRecord) (bool, error)
	Sweep(ctx context.Context) (int, error)
}

// ReminderWorker reacts to created events and sweeps on an interval.
type ReminderWorker struct {
	consumer Consumer
	reminder Reminder
	interval time.Duration
	logger   *log.Logger
}

// NewReminderWorker creates a worker. A nil consumer runs sweeps only.
func NewReminderWorker(consumer Consumer, reminder Reminder, interval time.Duration, logger *log.Logger) *ReminderWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReminderWorker{
		consumer: consumer,
		reminder: reminder,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run blocks until ctx is done or the consumer fails for good. A startup
// sweep catches bills created while the worker was down.
func (w *ReminderWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			return w.consumer.ConsumeWithReconnect(ctx, w.HandleMessage)
		})
	} else {
		w.logger.InfoContext(ctx, "No message consumer configured, running sweeps only")
	}

	g.Go(func() error {
		w.sweep(ctx)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.sweep(ctx)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *ReminderWorker) sweep(ctx context.Context) {
	if _, err := w.reminder.Sweep(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Bill reminder sweep failed", log.FieldError, err)
	}
}

// HandleMessage is the amqp.Handler for expense.created. A message whose
// record cannot be rebuilt is dropped; retrying it would never succeed.
func (w *ReminderWorker) HandleMessage(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error {
	r, err := msg.Record()
	if err != nil {
		w.logger.WarnContext(ctx, "Dropping malformed expense message",
			log.FieldExpenseID, msg.ID,
			log.FieldError, err)
		return nil
	}
	sent, err := w.reminder.HandleCreated(ctx, r)
	if err != nil {
		return err
	}
	if sent {
		w.logger.InfoContext(ctx, "Bill reminder sent on create", log.FieldExpenseID, r.ID, log.FieldOwnerID, r.OwnerID)
	}
	return nil
}
