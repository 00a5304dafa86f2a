// Package domain contains the core concepts of the message feed.
// Messages are immutable once accepted by the store.
package domain

import (
	"github.com/google/uuid"
)

// Message represents one immutable entry of the feed.
// ID, Timestamp and Seq are assigned by the store at acceptance,
// never by the caller.
type Message struct {
	ID        uuid.UUID `json:"id"`
	SenderID  string    `json:"sender_id"` // sender identity at send time
	Content   string    `json:"content"`
	Language  string    `json:"language,omitempty"` // best-effort detected language code
	Timestamp int64     `json:"timestamp"`          // milliseconds since epoch
	Seq       uint64    `json:"seq"`                // acceptance sequence, tie-break for equal timestamps
}

// Before reports whether m was accepted before other.
// Timestamps are compared first, the acceptance sequence breaks ties.
func (m Message) Before(other Message) bool {
	if m.Timestamp != other.Timestamp {
		return m.Timestamp < other.Timestamp
	}
	return m.Seq < other.Seq
}
