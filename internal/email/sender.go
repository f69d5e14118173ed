// Package email delivers transactional messages over SMTP.
package email

import (
	"context"
	"errors"
)

// ErrUnavailable is returned while the mail relay circuit is open
var ErrUnavailable = errors.New("email relay unavailable")

// Message is a rendered email
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// Sender delivers a rendered message
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}
