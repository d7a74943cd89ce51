package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"spendwise/internal/core"
)

// Change operations carried by ExpenseChangedMessage.
const (
	OpCreated  = "created"
	OpUpdated  = "updated"
	OpDeleted  = "deleted"
	OpImported = "imported"
)

// ExpenseChangedMessage announces that the expenses of Month changed and any
// derived analysis for it is stale.
type ExpenseChangedMessage struct {
	ExpenseID string        `json:"expense_id,omitempty"`
	Month     core.MonthKey `json:"month"`
	Op        string        `json:"op"`
	BatchID   string        `json:"batch_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewExpenseChangedMessage(id string, month core.MonthKey, op string) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		ExpenseID: id,
		Month:     month,
		Op:        op,
		Timestamp: time.Now().UTC(),
	}
}

// NewImportMessage announces a CSV import batch touching month.
func NewImportMessage(batchID string, month core.MonthKey) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		Month:     month,
		Op:        OpImported,
		BatchID:   batchID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseChangedMessageFromJSON decodes a message body. Messages without a
// valid month are rejected since nothing can be recomputed from them.
func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := core.ParseMonthKey(string(msg.Month)); err != nil {
		return nil, fmt.Errorf("message month: %w", err)
	}
	return &msg, nil
}
