package domain

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// FormatSOL renders an amount with two decimals, e.g. "1.50 SOL".
func FormatSOL(amount decimal.Decimal) string {
	return amount.StringFixed(2) + " SOL"
}

// TruncateAddress shortens an address to its first 6 and last 4 characters.
func TruncateAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// ExplorerURL links a transaction signature on the Solana explorer.
func ExplorerURL(signature, cluster string) string {
	if cluster == "" || cluster == "mainnet-beta" {
		return fmt.Sprintf("https://explorer.solana.com/tx/%s", signature)
	}
	return fmt.Sprintf("https://explorer.solana.com/tx/%s?cluster=%s", signature, cluster)
}

var amountPattern = regexp.MustCompile(`^\d*\.?\d*$`)

// ParseAmount parses user input such as "0.5" or ".25" into SOL. It accepts
// digits with at most one decimal point; sign, exponent and empty input are
// rejected with ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	if s == "" || s == "." || !amountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if s[0] == '.' {
		s = "0" + s
	}
	if s[len(s)-1] == '.' {
		s += "0"
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return amount, nil
}
