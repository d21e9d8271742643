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

// Notifier delivers a bill reminder to the bill's owner.
type Notifier interface {
	NotifyBillDue(ctx context.Context, r core.ExpenseRecord) error
}

// LogNotifier writes reminders to the log.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) NotifyBillDue(ctx context.Context, r core.ExpenseRecord) error {
	n.Logger.InfoContext(ctx, "Bill due today",
		log.FieldOwnerID, r.OwnerID,
		log.FieldExpenseID, r.ID,
		log.FieldAmount, core.FormatAmount(r.Amount),
		log.FieldDate, r.Date.String())
	return nil
}

// BillSource is where the reminder reads bills from.
type BillSource interface {
	ports.ExpenseGetter
	ports.DueBillLister
}

// BillReminder sends one reminder per bill on the day it is due, whether
// the bill is seen through a created event or a periodic sweep.
type BillReminder struct {
	bills    BillSource
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]string // expense id -> day reminded
}

func NewBillReminder(bills BillSource, notifier Notifier, logger *log.Logger) *BillReminder {
	if logger == nil {
		logger = log.Discard()
	}
	return &BillReminder{
		bills:    bills,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
		sent:     make(map[string]string),
	}
}

func (b *BillReminder) today() core.Date {
	t := b.now().UTC()
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}

// HandleCreated reminds about r if it is a bill due today. The stored
// record is re-read first, so an event for a record that no longer exists
// or no longer matches is ignored. It reports whether a reminder was sent.
func (b *BillReminder) HandleCreated(ctx context.Context, r core.ExpenseRecord) (bool, error) {
	today := b.today()
	if !r.DueToday(today) {
		return false, nil
	}
	current, err := b.bills.GetExpense(ctx, r.ID)
	if errors.Is(err, core.ErrNotFound) {
		b.logger.DebugContext(ctx, "Skipping reminder for missing expense", log.FieldExpenseID, r.ID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get expense %s: %w", r.ID, err)
	}
	if !current.DueToday(today) {
		return false, nil
	}
	return b.remind(ctx, current, today)
}

// Sweep reminds about every bill due today that has not been reminded yet.
func (b *BillReminder) Sweep(ctx context.Context) (int, error) {
	today := b.today()
	b.prune(today)

	due, err := b.bills.ListDueBills(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list due bills: %w", err)
	}

	sent := 0
	for _, r := range due {
		ok, err := b.remind(ctx, r, today)
		if err != nil {
			b.logger.ErrorContext(ctx, "Failed to send bill reminder",
				log.FieldExpenseID, r.ID,
				log.FieldError, err)
			continue
		}
		if ok {
			sent++
		}
	}

	b.logger.InfoContext(ctx, "Bill reminder sweep finished",
		log.FieldOperation, log.OpRemind,
		log.FieldDate, today.String(),
		"due", len(due),
		"sent", sent)
	return sent, nil
}

func (b *BillReminder) remind(ctx context.Context, r core.ExpenseRecord, today core.Date) (bool, error) {
	day := today.String()
	b.mu.Lock()
	if b.sent[r.ID] == day {
		b.mu.Unlock()
		return false, nil
	}
	b.sent[r.ID] = day
	b.mu.Unlock()

	if err := b.notifier.NotifyBillDue(ctx, r); err != nil {
		b.mu.Lock()
		delete(b.sent, r.ID)
		b.mu.Unlock()
		return false, fmt.Errorf("notify bill %s: %w", r.ID, err)
	}
	return true, nil
}

// prune forgets reminders from earlier days.
func (b *BillReminder) prune(today core.Date) {
	day := today.String()
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, d := range b.sent {
		if d != day {
			delete(b.sent, id)
		}
	}
}
