package solana

import (
	"errors"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
)

// Keys, signatures, blockhashes and transactions are solana-go's types.
type (
	PublicKey   = solanago.PublicKey
	PrivateKey  = solanago.PrivateKey
	Signature   = solanago.Signature
	Hash        = solanago.Hash
	Transaction = solanago.Transaction
)

// SystemProgramID is the native System Program.
var SystemProgramID = solanago.SystemProgramID

// ErrInvalidPublicKey is returned when a string does not decode to a 32-byte key.
var ErrInvalidPublicKey = errors.New("invalid public key")

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	if s == "" {
		return PublicKey{}, fmt.Errorf("%w: empty address", ErrInvalidPublicKey)
	}
	pk, err := solanago.PublicKeyFromBase58(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pk, nil
}

// IsValidAddress reports whether s decodes to a public key.
func IsValidAddress(s string) bool {
	_, err := ParsePublicKey(s)
	return err == nil
}
