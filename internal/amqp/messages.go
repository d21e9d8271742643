package amqp

import (
	"encoding/json"
	"time"

	"budgetwise/internal/core"
)

// RoutingKeyExpenseCreated is the routing key of ExpenseCreatedMessage.
const RoutingKeyExpenseCreated = "expense.created"

// ExpenseCreatedMessage announces a stored expense. It carries enough of the
// record for reminder checks; consumers that need more fetch it by ID.
type ExpenseCreatedMessage struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Amount    float64   `json:"amount"`
	Category  string    `json:"category"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseCreatedMessage(r core.ExpenseRecord) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Amount:    r.Amount,
		Category:  string(r.Category),
		Date:      r.Date.String(),
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Record rebuilds the expense the message describes.
func (m *ExpenseCreatedMessage) Record() (core.ExpenseRecord, error) {
	d, err := core.ParseDate(m.Date)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	return core.ExpenseRecord{
		ID:       m.ID,
		OwnerID:  m.OwnerID,
		Amount:   m.Amount,
		Category: core.Category(m.Category),
		Date:     d,
	}, nil
}

// ExpenseCreatedMessageFromJSON creates a message from JSON bytes
func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
