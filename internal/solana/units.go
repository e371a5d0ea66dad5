package solana

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

var lamportsPerSOL = decimal.NewFromInt(LamportsPerSOL)

// Amount conversion errors.
var (
	ErrNegativeAmount = errors.New("amount is negative")
	ErrAmountOverflow = errors.New("amount exceeds lamport range")
)

// LamportsToSOL converts lamports to SOL exactly.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Div(lamportsPerSOL)
}

// SOLToLamports converts SOL to lamports, flooring to a whole lamport.
func SOLToLamports(sol decimal.Decimal) (uint64, error) {
	if sol.IsNegative() {
		return 0, ErrNegativeAmount
	}
	lamports := sol.Mul(lamportsPerSOL).Floor()
	if lamports.GreaterThan(decimal.NewFromUint64(math.MaxUint64)) {
		return 0, ErrAmountOverflow
	}
	return lamports.BigInt().Uint64(), nil
}
