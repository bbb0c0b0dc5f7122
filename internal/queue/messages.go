package queue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidMessage = errors.New("invalid reconciliation message")

// ReconcileMessage asks for the budgets of a user's category to be reconciled.
type ReconcileMessage struct {
	UserID     uuid.UUID `json:"userId"`
	CategoryID uuid.UUID `json:"categoryId"`
	Timestamp  time.Time `json:"timestamp"`
	Attempt    int       `json:"attempt,omitempty"` // Number of failed attempts so far
}

func NewReconcileMessage(userID, categoryID uuid.UUID) ReconcileMessage {
	return ReconcileMessage{
		UserID:     userID,
		CategoryID: categoryID,
		Timestamp:  time.Now().UTC(),
	}
}

func (m ReconcileMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReconcileMessageFromJSON decodes a message. Messages without user or
// category are rejected with ErrInvalidMessage.
func ReconcileMessageFromJSON(data []byte) (ReconcileMessage, error) {
	var msg ReconcileMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ReconcileMessage{}, errors.Join(ErrInvalidMessage, err)
	}

	if msg.UserID == uuid.Nil || msg.CategoryID == uuid.Nil {
		return ReconcileMessage{}, ErrInvalidMessage
	}

	return msg, nil
}
