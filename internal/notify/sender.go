// Package notify defines the narrow outbound delivery contract used for
// two-factor codes. Real SMS/email gateways live behind this interface;
// the service only depends on Send.
package notify

import (
	"context"

	"clinidesk.app/internal/obs"
)

// Delivery reports the gateway's view of a dispatch attempt.
type Delivery struct {
	Delivered        bool
	ProviderResponse string
}

// Sender dispatches a short message to a destination (phone number or
// email address). Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, destination, message string) (Delivery, error)
}

// LogSender writes dispatches to the service log instead of a gateway.
// Used in development and as the default when no provider is configured.
type LogSender struct{}

// Send records the dispatch and reports it delivered.
func (LogSender) Send(_ context.Context, destination, message string) (Delivery, error) {
	obs.LogEvent("notify.dispatch", map[string]any{
		"destination": destination,
		"length":      len(message),
	})
	return Delivery{Delivered: true, ProviderResponse: "logged"}, nil
}

// NopSender drops every message. Useful in tests that assert on storage
// state rather than delivery.
type NopSender struct{}

func (NopSender) Send(context.Context, string, string) (Delivery, error) {
	return Delivery{Delivered: true}, nil
}
