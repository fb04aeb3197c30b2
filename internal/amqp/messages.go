package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseEventMessage notifies downstream consumers of a completed expense
// mutation. It carries identifiers and the derived total, not the whole
// aggregate; consumers that need more fetch it themselves.
type ExpenseEventMessage struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"` // created | updated | deleted
	Owner       string    `json:"owner"`  // e.g. "account:42" or "guest:<token>"
	TotalAmount string    `json:"total_amount,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseEventMessage builds an event for one mutation.
func NewExpenseEventMessage(id int64, action, owner, totalAmount string) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		ID:          id,
		Action:      action,
		Owner:       owner,
		TotalAmount: totalAmount,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON creates a message from JSON bytes.
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
