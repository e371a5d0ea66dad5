package stub

import (
	"context"
	"sync"

	"capitoro/internal/solana"
)

// WSClient implements solana.WSClient for testing. Each subscription gets the
// channel produced by Next; when Next is nil the channel stays open until the
// client is closed.
type WSClient struct {
	mu sync.Mutex

	SubscribeErr error
	Next         func(sig solana.Signature) <-chan solana.SignatureNotification

	subscribed   []solana.Signature
	unsubscribed int
	open         []chan solana.SignatureNotification
	closed       bool
}

var _ solana.WSClient = (*WSClient)(nil)

// Notify returns a closed channel carrying one notification.
func Notify(n solana.SignatureNotification) <-chan solana.SignatureNotification {
	ch := make(chan solana.SignatureNotification, 1)
	ch <- n
	close(ch)
	return ch
}

// Dropped returns a channel closed without a value, as after a lost connection.
func Dropped() <-chan solana.SignatureNotification {
	ch := make(chan solana.SignatureNotification)
	close(ch)
	return ch
}

// SignatureSubscribe records the subscription.
func (w *WSClient) SignatureSubscribe(_ context.Context, sig solana.Signature, _ string) (*solana.SignatureSubscription, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.SubscribeErr != nil {
		return nil, w.SubscribeErr
	}
	w.subscribed = append(w.subscribed, sig)
	if w.Next != nil {
		return solana.NewSignatureSubscription(w.Next(sig), w.release), nil
	}
	ch := make(chan solana.SignatureNotification)
	w.open = append(w.open, ch)
	return solana.NewSignatureSubscription(ch, w.release), nil
}

func (w *WSClient) release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unsubscribed++
}

// Active returns how many subscriptions have not been released.
func (w *WSClient) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subscribed) - w.unsubscribed
}

// Subscribed returns the signatures subscribed so far.
func (w *WSClient) Subscribed() []solana.Signature {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]solana.Signature(nil), w.subscribed...)
}

// Close closes open subscription channels.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	for _, ch := range w.open {
		close(ch)
	}
	return nil
}
