package mail

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/infrastructure/queue"
)

// LogMailer records that a message was due without its body or link. Reset
// links are live credentials and never reach the log.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg queue.Message) error {
	m.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("notification not delivered: no mail transport configured")
	return nil
}

// NewSender picks the sender for env. Only development renders full messages
// to out; every other environment gets a LogMailer.
func NewSender(env string, out io.Writer, log zerolog.Logger) queue.Sender {
	if env == "development" {
		return NewConsoleMailer(out, log)
	}
	return NewLogMailer(log)
}
