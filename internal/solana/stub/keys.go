package stub

import (
	"bytes"
	"crypto/ed25519"

	"capitoro/internal/solana"
)

// Key returns a deterministic keypair whose seed repeats the given byte.
func Key(seed byte) solana.PrivateKey {
	return solana.PrivateKey(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize)))
}

// Address returns the public key of Key(seed).
func Address(seed byte) solana.PublicKey {
	return Key(seed).PublicKey()
}
