// Package ws exposes the feed over WebSocket: a JSON envelope protocol
// with a type discriminator, one goroutine and one session per
// connection, and serialized outbound frames.
package ws

import (
	"encoding/json"
	"fmt"

	"feedlab/domain"
)

// Client -> server frame types.
const (
	TypeRegister    = "register"
	TypeLogin       = "login"
	TypeRestore     = "restore"
	TypeLogout      = "logout"
	TypeSend        = "send"
	TypeDelete      = "delete"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeSearch      = "search"
	TypePing        = "ping"
)

// Server -> client frame types.
const (
	TypeAuthState    = "auth_state"
	TypeChatState    = "chat_state"
	TypeSnapshot     = "snapshot"
	TypeSearchResult = "search_result"
	TypeError        = "error"
	TypePong         = "pong"
)

// Envelope carries the type discriminator plus the raw payload for
// deferred decoding into the concrete frame struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("ws: malformed envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("ws: missing frame type")
	}
	e.Type = partial.Type
	return nil
}

// Client -> server frames.

type RegisterFrame struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginFrame struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RestoreFrame seeds the session from a token issued by a previous
// login. Sent once, before any other authenticated frame.
type RestoreFrame struct {
	Token string `json:"token"`
}

type SendFrame struct {
	Content string `json:"content"`
}

type DeleteFrame struct {
	ID string `json:"id"`
}

type SearchFrame struct {
	Term string `json:"term"`
}

// Server -> client frames.

// AuthStateFrame reports every authentication transition, including the
// session token on success so the client can restore after reconnect.
type AuthStateFrame struct {
	Type  string           `json:"type"`
	State domain.AuthState `json:"state"`
	Token string           `json:"token,omitempty"`
}

type ChatStateFrame struct {
	Type  string           `json:"type"`
	State domain.ChatState `json:"state"`
}

type SnapshotFrame struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
}

type SearchResultFrame struct {
	Type     string           `json:"type"`
	Term     string           `json:"term"`
	Messages []domain.Message `json:"messages"`
}

// ErrorFrame carries the failure's human-readable message. The code is
// stable across releases; the message is for display.
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PongFrame struct {
	Type string `json:"type"`
}

// decode unmarshals the envelope payload into a concrete frame.
func decode[T any](env Envelope) (T, error) {
	var frame T
	if err := json.Unmarshal(env.Raw, &frame); err != nil {
		return frame, fmt.Errorf("ws: malformed %q payload: %w", env.Type, err)
	}
	return frame, nil
}
