package solana

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Confirmation errors.
var (
	ErrTransactionFailed   = errors.New("transaction failed on chain")
	ErrBlockhashExpired    = errors.New("blockhash expired before confirmation")
	ErrConfirmationTimeout = errors.New("confirmation timed out")
)

// Confirmation defaults.
const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
)

// Confirmer waits for a submitted transaction to reach a commitment level.
type Confirmer interface {
	// Confirm blocks until the signature is confirmed, fails on chain, its
	// blockhash expires (lastValidBlockHeight > 0), or the wait times out.
	Confirm(ctx context.Context, sig Signature, lastValidBlockHeight uint64) error
}

// PollingConfirmer confirms by polling getSignatureStatuses.
type PollingConfirmer struct {
	rpc        RPCClient
	commitment string
	interval   time.Duration
	timeout    time.Duration
	after      func(time.Duration) <-chan time.Time
}

var _ Confirmer = (*PollingConfirmer)(nil)

// PollingOption configures PollingConfirmer.
type PollingOption func(*PollingConfirmer)

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) PollingOption {
	return func(p *PollingConfirmer) {
		p.interval = d
	}
}

// WithConfirmTimeout bounds the total wait. Zero disables the bound.
func WithConfirmTimeout(d time.Duration) PollingOption {
	return func(p *PollingConfirmer) {
		p.timeout = d
	}
}

// WithConfirmCommitment sets the commitment level to wait for.
func WithConfirmCommitment(commitment string) PollingOption {
	return func(p *PollingConfirmer) {
		p.commitment = commitment
	}
}

// WithAfterFunc replaces time.After, letting tests drive polling without sleeping.
func WithAfterFunc(after func(time.Duration) <-chan time.Time) PollingOption {
	return func(p *PollingConfirmer) {
		p.after = after
	}
}

// NewPollingConfirmer creates a PollingConfirmer waiting for "confirmed".
func NewPollingConfirmer(rpc RPCClient, opts ...PollingOption) *PollingConfirmer {
	p := &PollingConfirmer{
		rpc:        rpc,
		commitment: CommitmentConfirmed,
		interval:   DefaultPollInterval,
		timeout:    DefaultConfirmTimeout,
		after:      time.After,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Confirm polls until a terminal outcome.
func (p *PollingConfirmer) Confirm(ctx context.Context, sig Signature, lastValidBlockHeight uint64) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	for {
		statuses, err := p.rpc.GetSignatureStatuses(ctx, sig)
		if err != nil {
			if ctxErr := confirmContextErr(ctx, sig); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("get signature status %s: %w", sig, err)
		}

		var status *SignatureStatus
		if len(statuses) > 0 {
			status = statuses[0]
		}
		if status.Failed() {
			return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, status.Err)
		}
		if status.Reached(p.commitment) {
			return nil
		}

		if lastValidBlockHeight > 0 {
			height, err := p.rpc.GetBlockHeight(ctx)
			if err == nil && height > lastValidBlockHeight {
				return fmt.Errorf("%w: %s (height %d > %d)", ErrBlockhashExpired, sig, height, lastValidBlockHeight)
			}
		}

		select {
		case <-ctx.Done():
			return confirmContextErr(ctx, sig)
		case <-p.after(p.interval):
		}
	}
}

func confirmContextErr(ctx context.Context, sig Signature) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", ErrConfirmationTimeout, sig)
	default:
		return err
	}
}

// WSConfirmer confirms through signatureSubscribe and falls back to polling
// when the subscription cannot be opened or the connection drops.
type WSConfirmer struct {
	ws         WSClient
	fallback   *PollingConfirmer
	commitment string
	timeout    time.Duration
}

var _ Confirmer = (*WSConfirmer)(nil)

// NewWSConfirmer creates a WSConfirmer. The fallback's commitment and timeout
// are used for the subscription as well.
func NewWSConfirmer(ws WSClient, fallback *PollingConfirmer) *WSConfirmer {
	return &WSConfirmer{
		ws:         ws,
		fallback:   fallback,
		commitment: fallback.commitment,
		timeout:    fallback.timeout,
	}
}

// Confirm waits for the subscription notification.
func (w *WSConfirmer) Confirm(ctx context.Context, sig Signature, lastValidBlockHeight uint64) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	sub, err := w.ws.SignatureSubscribe(ctx, sig, w.commitment)
	if err != nil {
		if ctxErr := confirmContextErr(ctx, sig); ctxErr != nil {
			return ctxErr
		}
		return w.fallback.Confirm(ctx, sig, lastValidBlockHeight)
	}
	defer sub.Unsubscribe()

	// The transaction may have landed before the subscription was opened.
	statuses, err := w.fallback.rpc.GetSignatureStatuses(ctx, sig)
	if err == nil && len(statuses) > 0 {
		if statuses[0].Failed() {
			return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, statuses[0].Err)
		}
		if statuses[0].Reached(w.commitment) {
			return nil
		}
	}

	select {
	case n, ok := <-sub.C:
		if !ok {
			return w.fallback.Confirm(ctx, sig, lastValidBlockHeight)
		}
		if n.Err != nil {
			return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, n.Err)
		}
		return nil
	case <-ctx.Done():
		return confirmContextErr(ctx, sig)
	}
}
