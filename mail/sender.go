package mail

import (
	"context"
	"log/slog"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to [Sender].
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// LogSender writes messages to a logger instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
	// IncludeBody logs the body too. Only for local development.
	IncludeBody bool
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{slog.String("to", msg.To), slog.String("subject", msg.Subject)}
	if s.IncludeBody {
		attrs = append(attrs, slog.String("body", msg.Body))
	}
	logger.InfoContext(ctx, "mail not delivered: log sender", attrs...)
	return nil
}
