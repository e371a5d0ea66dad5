package solana

import (
	"context"
	"sync"
)

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SignatureSubscribe waits for a single notification about sig at the
	// given commitment. The subscription channel receives at most one value
	// and is closed afterwards, or without a value if the connection drops.
	// Callers must Unsubscribe when they stop waiting.
	SignatureSubscribe(ctx context.Context, sig Signature, commitment string) (*SignatureSubscription, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification represents a signatureNotification message.
type SignatureNotification struct {
	Slot uint64
	Err  interface{}
}

// SignatureSubscription is an open signatureSubscribe.
type SignatureSubscription struct {
	C <-chan SignatureNotification

	once        sync.Once
	unsubscribe func()
}

// NewSignatureSubscription wraps ch. unsubscribe, if non-nil, runs once on
// the first Unsubscribe call.
func NewSignatureSubscription(ch <-chan SignatureNotification, unsubscribe func()) *SignatureSubscription {
	return &SignatureSubscription{C: ch, unsubscribe: unsubscribe}
}

// Unsubscribe releases the subscription. It is safe to call after the
// notification arrived and more than once.
func (s *SignatureSubscription) Unsubscribe() {
	s.once.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}
