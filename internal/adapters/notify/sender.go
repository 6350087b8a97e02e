// Package notify delivers alimtalk messages to guardians.
package notify

import (
	"context"
	"time"
)

// Message is one rendered alimtalk notification.
type Message struct {
	To            string // guardian phone, digits only
	GuardianName  string
	Kind          string // alimtalk kind: reservation, reminder, completed, deposit
	Title         string
	Text          string
	AppointmentID string
}

// Result is the provider's acknowledgement of a send.
type Result struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers messages through an external provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
	SendBatch(ctx context.Context, msgs []Message) ([]Result, error)
}
