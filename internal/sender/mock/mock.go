// Package mock provides a development EmailSender that logs instead of
// delivering mail.
package mock

import (
	"context"
	"log/slog"
	"time"

	"github.com/LogiScore/backend-sub000/internal/sender"
)

// Sender logs every payload and reports success. It sleeps briefly to mimic
// a real transport.
type Sender struct {
	logger *slog.Logger
}

// NewSender creates a mock sender.
func NewSender(logger *slog.Logger) *Sender {
	return &Sender{logger: logger}
}

// Name implements sender.EmailSender.
func (s *Sender) Name() string { return "mock" }

// Send implements sender.EmailSender.
func (s *Sender) Send(ctx context.Context, recipient string, payload sender.Payload) error {
	s.logger.InfoContext(ctx, "mock email sent",
		slog.String("recipient", recipient),
		slog.String("kind", string(payload.Kind())),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Millisecond):
	}

	return nil
}
