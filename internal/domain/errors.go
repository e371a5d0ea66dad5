package domain

import "errors"

// Investment flow error kinds. Errors returned by the balance, wallet and
// investment packages wrap exactly one of these (ErrInvalidAmount is always
// paired with ErrInsufficientFunds), so callers classify with errors.Is.
var (
	ErrInvalidAddress    = errors.New("invalid address")
	ErrNetwork           = errors.New("network error")
	ErrUserRejected      = errors.New("user rejected the request")
	ErrSigning           = errors.New("signing failed")
	ErrSubmission        = errors.New("transaction submission failed")
	ErrConfirmation      = errors.New("transaction confirmation failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPersistence       = errors.New("failed to record investment")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
)

// Error kind names.
const (
	KindInvalidAddress    = "invalid_address"
	KindNetwork           = "network"
	KindUserRejected      = "user_rejected"
	KindSigning           = "signing"
	KindSubmission        = "submission"
	KindConfirmation      = "confirmation"
	KindInsufficientFunds = "insufficient_funds"
	KindInvalidAmount     = "invalid_amount"
	KindPersistence       = "persistence"
	KindUnknown           = "unknown"
)

// kinds is ordered: more specific kinds first.
var kinds = []struct {
	err     error
	kind    string
	message string
}{
	{ErrUserRejected, KindUserRejected, "The request was rejected in the wallet"},
	{ErrInvalidAmount, KindInvalidAmount, "Please enter a valid investment amount"},
	{ErrInsufficientFunds, KindInsufficientFunds, "Your wallet balance is less than the investment amount"},
	{ErrInvalidAddress, KindInvalidAddress, "The wallet address is not valid"},
	{ErrSigning, KindSigning, "The wallet could not sign the transaction"},
	{ErrSubmission, KindSubmission, "The network did not accept the transaction"},
	{ErrConfirmation, KindConfirmation, "Transaction failed to confirm"},
	{ErrPersistence, KindPersistence, "The transfer succeeded but the investment could not be recorded"},
	{ErrNetwork, KindNetwork, "Could not reach the Solana network"},
}

// Kind returns the error kind name of err, KindUnknown if it has none and ""
// for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// UserMessage returns a human-readable message for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.message
		}
	}
	return "An error occurred during the investment process"
}
