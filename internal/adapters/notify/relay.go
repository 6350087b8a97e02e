package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// emailAPI is the part of the Resend client the relay uses.
type emailAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

var relayMarkdown = goldmark.New(goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()))

// RelaySender emails a copy of every alimtalk message to the shop's inbox through Resend,
// so staff can forward it from the messaging console.
type RelaySender struct {
	emails emailAPI
	from   string
	to     []string
}

// NewRelaySender creates a RelaySender.
// PRE: apiKey is a Resend API key; from and relayTo are email addresses
func NewRelaySender(apiKey, from string, relayTo ...string) *RelaySender {
	return &RelaySender{emails: resend.NewClient(apiKey).Emails, from: from, to: relayTo}
}

// Send relays one message.
// POST: returns the Resend message ID on success
func (s *RelaySender) Send(ctx context.Context, msg Message) (Result, error) {
	if len(s.to) == 0 {
		return Result{}, fmt.Errorf("relay has no recipient configured")
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      s.to,
		Subject: relaySubject(msg),
		Html:    relayHTML(msg),
		Text:    msg.Text,
	}
	sent, err := s.emails.SendWithContext(ctx, params)
	if err != nil {
		slog.Error("alimtalk_relay_failed", "error", err, "kind", msg.Kind, "appointment_id", msg.AppointmentID)
		return Result{}, fmt.Errorf("relay send failed: %w", err)
	}
	slog.Info("alimtalk_relayed", "message_id", sent.Id, "kind", msg.Kind, "appointment_id", msg.AppointmentID)
	return Result{MessageID: sent.Id, SentAt: time.Now()}, nil
}

// SendBatch relays messages in order, stopping at the first failure.
// POST: results holds one entry per message sent before any failure
func (s *RelaySender) SendBatch(ctx context.Context, msgs []Message) ([]Result, error) {
	results := make([]Result, 0, len(msgs))
	for _, m := range msgs {
		r, err := s.Send(ctx, m)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

func relaySubject(msg Message) string {
	name := msg.GuardianName
	if name == "" {
		name = msg.To
	}
	return fmt.Sprintf("[alimtalk:%s] %s (%s)", msg.Kind, name, msg.To)
}

// relayHTML renders the message body as markdown; raw HTML in the body is escaped.
func relayHTML(msg Message) string {
	var buf bytes.Buffer
	if msg.Title != "" {
		buf.WriteString("<h3>" + template.HTMLEscapeString(msg.Title) + "</h3>\n")
	}
	if err := relayMarkdown.Convert([]byte(msg.Text), &buf); err != nil {
		return "<p>" + template.HTMLEscapeString(msg.Text) + "</p>"
	}
	return buf.String()
}
