// Package delivery moves pending notifications from the queue to their channels.
package delivery

import (
	"context"
	"errors"

	"insure-crm/internal/features/notification"
)

// Sender delivers one notification over a single channel.
type Sender interface {
	Channel() notification.Channel
	Send(ctx context.Context, n *notification.Notification) error
}

var ErrNoSender = errors.New("no sender configured for channel")

// permanentError marks failures that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// InAppSender pushes to the user's open sockets. The row is readable through the
// API either way, so having no live socket is still a delivery.
type InAppSender struct {
	Hub *notification.Hub
}

func (s *InAppSender) Channel() notification.Channel { return notification.ChannelInApp }

func (s *InAppSender) Send(ctx context.Context, n *notification.Notification) error {
	if s.Hub != nil {
		s.Hub.Push(n)
	}
	return nil
}
