// Package mail holds notification senders.
package mail

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/infrastructure/queue"
)

// ConsoleMailer renders messages to a writer instead of sending them. It is
// the development stand-in for a real mail transport.
type ConsoleMailer struct {
	mu  sync.Mutex
	out io.Writer
	log zerolog.Logger
}

// NewConsoleMailer writes to out, or os.Stdout when out is nil.
func NewConsoleMailer(out io.Writer, log zerolog.Logger) *ConsoleMailer {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleMailer{out: out, log: log}
}

func (m *ConsoleMailer) Send(_ context.Context, msg queue.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := fmt.Fprintf(m.out,
		"====== EMAIL ======\nto: %s\nsubject: %s\n\n%s\n%s\n===================\n",
		msg.To, msg.Subject, msg.Body, msg.Link,
	)
	if err != nil {
		return fmt.Errorf("console mailer: %w", err)
	}
	m.log.Debug().Str("to", msg.To).Msg("notification written to console")
	return nil
}
