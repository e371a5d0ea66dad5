// Package wallet adapts a signing provider into a session that the
// investment flow can connect to and ask for transaction signatures.
package wallet

import (
	"context"
	"errors"

	"capitoro/internal/solana"
)

// Provider errors.
var (
	ErrNotInstalled = errors.New("wallet provider not installed")
	ErrNotTrusted   = errors.New("wallet has not authorized this origin")
	ErrNotConnected = errors.New("wallet not connected")
)

// Provider is a signing wallet. Implementations return an error matching
// domain.ErrUserRejected when the user declines a prompt, and ErrNotTrusted
// from Connect(ctx, true) when no prior authorization exists.
type Provider interface {
	// Connect returns the wallet address. With onlyIfTrusted no prompt is shown.
	Connect(ctx context.Context, onlyIfTrusted bool) (solana.PublicKey, error)

	// Disconnect ends the provider session.
	Disconnect(ctx context.Context) error

	// SignTransaction returns a signed copy of tx.
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}
