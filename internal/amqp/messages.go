package amqp

import (
	"encoding/json"
	"time"
)

// TransactionPostedMessage announces one newly appended ledger record.
// It carries only identifiers; the consumer fetches the full record from
// the store.
type TransactionPostedMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionPostedMessage(id, userID int64) *TransactionPostedMessage {
	return &TransactionPostedMessage{
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *TransactionPostedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionPostedMessageFromJSON(data []byte) (*TransactionPostedMessage, error) {
	var msg TransactionPostedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
