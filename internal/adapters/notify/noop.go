package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoopSender logs messages without delivering them. Used in development and tests.
type NoopSender struct{}

// NewNoopSender creates a NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the message.
func (s *NoopSender) Send(_ context.Context, msg Message) (Result, error) {
	slog.Info("noop_alimtalk_send", "to", msg.To, "kind", msg.Kind, "appointment_id", msg.AppointmentID)
	now := time.Now()
	return Result{MessageID: fmt.Sprintf("noop-%d", now.UnixNano()), SentAt: now}, nil
}

// SendBatch logs each message.
func (s *NoopSender) SendBatch(ctx context.Context, msgs []Message) ([]Result, error) {
	results := make([]Result, 0, len(msgs))
	for _, m := range msgs {
		r, _ := s.Send(ctx, m)
		results = append(results, r)
	}
	return results, nil
}
