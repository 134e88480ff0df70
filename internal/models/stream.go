package models

import "time"

// StreamRecord registers one generation attempt against a chat. Records are
// append-only; the most recently created one is the resumption candidate.
type StreamRecord struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	CreatedAt time.Time `json:"created_at"`
}
