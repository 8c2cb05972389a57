// Package sms implements platform.Messaging on top of an SMS provider.
package sms

import (
	"context"
	"errors"
	"strings"
)

// Outbound is a single text message to one phone number.
type Outbound struct {
	To   string
	From string
	Body string
}

func (o Outbound) validate() error {
	if strings.TrimSpace(o.To) == "" {
		return errors.New("sms: to required")
	}
	if strings.TrimSpace(o.From) == "" {
		return errors.New("sms: from required")
	}
	if strings.TrimSpace(o.Body) == "" {
		return errors.New("sms: body required")
	}
	return nil
}

// Receipt is what a provider reports back for an accepted message.
type Receipt struct {
	ProviderMessageID string
	Status            string
}

// Sender delivers one message. Implementations make a single attempt.
type Sender interface {
	Send(ctx context.Context, msg Outbound) (*Receipt, error)
}
