// Package workflow drives the intake conversation: it consumes abstract user
// events, talks to the recognition gateway, mutates the session store and
// pushes outbound messages through a Responder. Nothing in here knows about
// Telegram.
package workflow

import (
	"time"

	"intakebot/internal/session"
)

// EventKind discriminates inbound events.
type EventKind string

const (
	EventStart      EventKind = "start"
	EventCancel     EventKind = "cancel"
	EventBackToMenu EventKind = "back_to_menu"
	EventSelect     EventKind = "select_document_type"
	EventPhoto      EventKind = "photo"
	EventVoice      EventKind = "voice"
	EventText       EventKind = "text"
	EventStatus     EventKind = "status"
)

// Event is one inbound user action, already stripped of transport detail.
// Payload carries photo or voice bytes, Document the selected type, Text the
// raw text for EventText.
type Event struct {
	Kind     EventKind
	UserID   int64
	Document session.DocumentType
	Payload  []byte
	Text     string
}

// Message is one outbound reply. A non-empty Menu asks the adapter to render
// a one-shot options keyboard alongside the text; HideMenu asks it to take
// any previous keyboard down instead.
type Message struct {
	Text     string
	Menu     []string
	HideMenu bool
}

// Responder is the outbound message sink. Implementations are fire-and-forget;
// the machine never depends on delivery.
type Responder interface {
	Send(userID int64, msg Message)
}

// FinalResult is the consolidated record produced when a conversation
// completes. It is immutable and emitted exactly once per completed intake.
type FinalResult struct {
	ID             string    `json:"id"`
	UserID         int64     `json:"user_id"`
	FullName       string    `json:"full_name"`
	DocumentNumber string    `json:"document_number"`
	DocumentType   string    `json:"document_type"`
	BankName       string    `json:"bank_name"`
	PhoneNumber    string    `json:"phone_number"`
	CreatedAt      time.Time `json:"created_at"`
}
