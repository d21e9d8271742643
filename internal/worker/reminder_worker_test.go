package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/amqp"
	"budgetwise/internal/core"
	"budgetwise/internal/services"
	"budgetwise/internal/storage/memory"
)

type recordingNotifier struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (n *recordingNotifier) NotifyBillDue(_ context.Context, r core.ExpenseRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.ids = append(n.ids, r.ID)
	return nil
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ids...)
}

// scriptedConsumer delivers msgs then blocks until ctx is done.
type scriptedConsumer struct {
	msgs    []*amqp.ExpenseCreatedMessage
	results chan error
	failErr error
}

func (c *scriptedConsumer) ConsumeWithReconnect(ctx context.Context, handler amqp.Handler) error {
	for _, m := range c.msgs {
		c.results <- handler(ctx, m)
	}
	if c.failErr != nil {
		return c.failErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func bill(id string, d core.Date) core.ExpenseRecord {
	return core.ExpenseRecord{ID: id, OwnerID: "u1", Amount: 80, Category: core.Bills, Date: d}
}

func storeWith(t *testing.T, bills ...core.ExpenseRecord) (*memory.Store, []string) {
	t.Helper()
	store := memory.New()
	ids := make([]string, len(bills))
	for i, b := range bills {
		id, err := store.InsertExpense(context.Background(), b)
		require.NoError(t, err)
		ids[i] = id
	}
	return store, ids
}

func TestHandleMessage(t *testing.T) {
	store, ids := storeWith(t, bill("", core.Today()), bill("", core.NewDate(2000, 1, 1)))
	notifier := &recordingNotifier{}
	w := NewReminderWorker(nil, services.NewBillReminder(store, notifier, nil), time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, w.HandleMessage(ctx, amqp.NewExpenseCreatedMessage(bill(ids[0], core.Today()))))
	require.NoError(t, w.HandleMessage(ctx, amqp.NewExpenseCreatedMessage(bill(ids[0], core.Today()))))
	require.NoError(t, w.HandleMessage(ctx, amqp.NewExpenseCreatedMessage(bill(ids[1], core.NewDate(2000, 1, 1)))))
	require.NoError(t, w.HandleMessage(ctx, amqp.NewExpenseCreatedMessage(bill("gone", core.Today()))))
	require.NoError(t, w.HandleMessage(ctx, &amqp.ExpenseCreatedMessage{ID: "bad", Date: "yesterday"}))

	assert.Equal(t, []string{ids[0]}, notifier.sent())
}

func TestHandleMessage_NotifyFailureRequeues(t *testing.T) {
	store, ids := storeWith(t, bill("", core.Today()))
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	w := NewReminderWorker(nil, services.NewBillReminder(store, notifier, nil), time.Hour, nil)
	err := w.HandleMessage(context.Background(), amqp.NewExpenseCreatedMessage(bill(ids[0], core.Today())))
	assert.ErrorContains(t, err, "smtp down")
}

func TestHandleMessage_StoreFailureRequeues(t *testing.T) {
	store := memory.New()
	store.Fail = errors.New("db locked")
	w := NewReminderWorker(nil, services.NewBillReminder(store, &recordingNotifier{}, nil), time.Hour, nil)
	err := w.HandleMessage(context.Background(), amqp.NewExpenseCreatedMessage(bill("mem:1", core.Today())))
	assert.ErrorContains(t, err, "db locked")
}

func TestRun_StartupSweepAndConsume(t *testing.T) {
	store, ids := storeWith(t, bill("", core.Today()))

	notifier := &recordingNotifier{}
	consumer := &scriptedConsumer{
		msgs: []*amqp.ExpenseCreatedMessage{
			amqp.NewExpenseCreatedMessage(bill(ids[0], core.Today())),
			amqp.NewExpenseCreatedMessage(bill("evt-stale", core.Today())),
		},
		results: make(chan error, 2),
	}
	w := NewReminderWorker(consumer, services.NewBillReminder(store, notifier, nil), time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, <-consumer.results)
	require.NoError(t, <-consumer.results)
	assert.Eventually(t, func() bool { return len(notifier.sent()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, []string{ids[0]}, notifier.sent(), "sweep and event dedupe to one reminder")
}

func TestRun_ConsumerFailureStopsWorker(t *testing.T) {
	consumer := &scriptedConsumer{results: make(chan error), failErr: errors.New("access refused")}
	w := NewReminderWorker(consumer, services.NewBillReminder(memory.New(), &recordingNotifier{}, nil), time.Hour, nil)

	err := w.Run(context.Background())
	assert.ErrorContains(t, err, "access refused")
}
