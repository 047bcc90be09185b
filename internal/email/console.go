package email

import (
	"context"
	"log"
	"strings"
	"sync"
)

// ConsoleSender prints messages instead of delivering them. It keeps every
// message it has seen so tests can inspect them.
type ConsoleSender struct {
	mu     sync.Mutex
	logger *log.Logger
	from   string
	sent   []Message
}

func NewConsoleSender(logger *log.Logger, from string) *ConsoleSender {
	return &ConsoleSender{logger: logger, from: from}
}

func (s *ConsoleSender) Send(ctx context.Context, msg Message) error {
	if !msg.HasRecipients() {
		return nil
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Println(strings.ReplaceAll(buildMessage(s.from, msg), "\r\n", "\n"))
	}
	return nil
}

func (s *ConsoleSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
