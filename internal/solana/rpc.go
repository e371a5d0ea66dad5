package solana

import "context"

// Commitment levels.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// RPCClient defines the Solana RPC HTTP methods used by the balance and
// investment flows.
type RPCClient interface {
	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, account PublicKey) (uint64, error)

	// GetLatestBlockhash returns a recent blockhash and the last block height
	// at which a transaction referencing it can land.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// SendTransaction submits a signed transaction and returns its signature.
	SendTransaction(ctx context.Context, tx *Transaction) (Signature, error)

	// GetSignatureStatuses returns one status per signature; nil when unknown.
	GetSignatureStatuses(ctx context.Context, signatures ...Signature) ([]*SignatureStatus, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context) (uint64, error)
}
