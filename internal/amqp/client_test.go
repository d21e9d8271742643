package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/core"
	"budgetwise/internal/log"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection error", errors.New("connection refused"), true},
		{"EOF error", errors.New("unexpected EOF"), true},
		{"broken pipe error", errors.New("broken pipe"), true},
		{"amqp closed", fmt.Errorf("consume: %w", amqp091.ErrClosed), true},
		{"closed delivery channel", errors.New("message channel closed"), true},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isConnectionError(tt.err))
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue", logger: log.Discard()}

	assert.False(t, client.isCircuitOpen(), "closed initially")

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	assert.True(t, client.isCircuitOpen(), "open after max failures")

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	assert.False(t, client.isCircuitOpen(), "half-open after timeout")
	assert.Equal(t, StateHalfOpen, atomic.LoadInt32(&client.state))

	client.recordFailure()
	assert.Equal(t, StateOpen, atomic.LoadInt32(&client.state), "a half-open failure reopens")

	client.recordSuccess()
	assert.False(t, client.isCircuitOpen())
	assert.EqualValues(t, 0, atomic.LoadInt64(&client.failureCount))
}

func TestClient_PublishFailsFast(t *testing.T) {
	rec := core.ExpenseRecord{ID: "e1", OwnerID: "u", Amount: 1, Category: core.Bills, Date: core.NewDate(2025, 1, 1)}

	t.Run("circuit open", func(t *testing.T) {
		client := &Client{logger: log.Discard()}
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishExpenseCreated(context.Background(), rec)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := &Client{logger: log.Discard()}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, client.PublishExpenseCreated(ctx, rec), context.Canceled)
	})

	t.Run("no channel counts as failure", func(t *testing.T) {
		client := &Client{logger: log.Discard()}
		assert.Error(t, client.PublishExpenseCreated(context.Background(), rec))
		assert.EqualValues(t, 1, atomic.LoadInt64(&client.failureCount))
	})
}

type fakeAck struct {
	acked, nacked, requeued int
}

func (f *fakeAck) Ack(uint64, bool) error { f.acked++; return nil }

func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	if requeue {
		f.requeued++
	}
	return nil
}

func (f *fakeAck) Reject(uint64, bool) error { return nil }

func TestHandleDelivery(t *testing.T) {
	rec := core.ExpenseRecord{ID: "e1", OwnerID: "u", Amount: 42, Category: core.Bills, Date: core.NewDate(2025, 6, 1)}
	body, err := NewExpenseCreatedMessage(rec).ToJSON()
	require.NoError(t, err)

	t.Run("success acks", func(t *testing.T) {
		ack := &fakeAck{}
		var got core.ExpenseRecord
		handleDelivery(context.Background(), log.Discard(), amqp091.Delivery{Acknowledger: ack, Body: body},
			func(_ context.Context, m *ExpenseCreatedMessage) error {
				got, err = m.Record()
				return err
			})
		assert.Equal(t, 1, ack.acked)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, core.Bills, got.Category)
		assert.Equal(t, "2025-06-01", got.Date.String())
	})

	t.Run("handler failure requeues", func(t *testing.T) {
		ack := &fakeAck{}
		handleDelivery(context.Background(), log.Discard(), amqp091.Delivery{Acknowledger: ack, Body: body},
			func(context.Context, *ExpenseCreatedMessage) error { return errors.New("down") })
		assert.Equal(t, 1, ack.requeued)
		assert.Equal(t, 0, ack.acked)
	})

	t.Run("malformed body is dropped", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		handleDelivery(context.Background(), log.Discard(), amqp091.Delivery{Acknowledger: ack, Body: []byte("{")},
			func(context.Context, *ExpenseCreatedMessage) error { called = true; return nil })
		assert.False(t, called)
		assert.Equal(t, 1, ack.nacked)
		assert.Equal(t, 0, ack.requeued)
	})
}

func TestExpenseCreatedMessage_BadDate(t *testing.T) {
	m := &ExpenseCreatedMessage{ID: "x", Date: "yesterday"}
	_, err := m.Record()
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}
