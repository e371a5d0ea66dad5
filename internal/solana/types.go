package solana

// LatestBlockhash from getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            Hash
	LastValidBlockHeight uint64
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64 // nil once rooted
	Err                interface{}
	ConfirmationStatus string // processed | confirmed | finalized
}

// Failed reports whether the transaction executed with an error.
func (s *SignatureStatus) Failed() bool {
	return s != nil && s.Err != nil
}

// Reached reports whether the status satisfies the given commitment.
func (s *SignatureStatus) Reached(commitment string) bool {
	if s == nil {
		return false
	}
	return commitmentRank(s.ConfirmationStatus) >= commitmentRank(commitment)
}

func commitmentRank(c string) int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}
