package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"capitoro/internal/solana"
)

// WalletBalance is a cached native balance reading.
type WalletBalance struct {
	Address   string    // base58 wallet address
	Lamports  uint64    // balance in lamports
	FetchedAt time.Time // when the node was queried
}

// SOL returns the balance in SOL.
func (b WalletBalance) SOL() decimal.Decimal {
	return solana.LamportsToSOL(b.Lamports)
}

// Stale reports whether the reading is older than ttl at now.
func (b WalletBalance) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(b.FetchedAt) > ttl
}
