package email

import (
	"context"
	"errors"
	"time"
)

// Sender delivers account notifications.
type Sender interface {
	SendWelcome(ctx context.Context, toEmail, displayName string) error
	SendAccountDeleted(ctx context.Context, toEmail string, deletedAt time.Time) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendWelcome(context.Context, string, string) error {
	return s.err()
}

func (s *disabledSender) SendAccountDeleted(context.Context, string, time.Time) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
