package stub

import (
	"context"
	"errors"
	"sync"

	"capitoro/internal/solana"
)

// ErrSendRejected is a ready-made SendTransaction failure.
var ErrSendRejected = errors.New("transaction rejected")

// RPCClient implements solana.RPCClient for testing. Unknown accounts have a
// zero balance. With AutoConfirm, sent transactions are immediately
// "confirmed" and their System Program transfers are applied to Balances.
type RPCClient struct {
	mu sync.Mutex

	Balances    map[solana.PublicKey]uint64
	Blockhash   solana.LatestBlockhash
	BlockHeight uint64
	Statuses    map[solana.Signature]*solana.SignatureStatus
	AutoConfirm bool

	// Errors returned by the next calls, consumed in order.
	BalanceErrs   []error
	BlockhashErrs []error
	SendErrs      []error
	StatusErrs    []error

	sent  []*solana.Transaction
	calls map[string]int
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances: make(map[solana.PublicKey]uint64),
		Blockhash: solana.LatestBlockhash{
			Blockhash:            solana.Hash{1, 2, 3, 4},
			LastValidBlockHeight: 1_000,
		},
		BlockHeight: 900,
		Statuses:    make(map[solana.Signature]*solana.SignatureStatus),
		AutoConfirm: true,
		calls:       make(map[string]int),
	}
}

// SetBalance sets an account balance.
func (c *RPCClient) SetBalance(account solana.PublicKey, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[account] = lamports
}

// Balance returns the current stub balance of an account.
func (c *RPCClient) Balance(account solana.PublicKey) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[account]
}

// SetStatus sets the status returned for a signature.
func (c *RPCClient) SetStatus(sig solana.Signature, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[sig] = status
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// Sent returns the transactions accepted by SendTransaction.
func (c *RPCClient) Sent() []*solana.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*solana.Transaction(nil), c.sent...)
}

func popErr(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

// GetBalance returns the stored balance.
func (c *RPCClient) GetBalance(_ context.Context, account solana.PublicKey) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getBalance"]++
	if err := popErr(&c.BalanceErrs); err != nil {
		return 0, err
	}
	return c.Balances[account], nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.LatestBlockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getLatestBlockhash"]++
	if err := popErr(&c.BlockhashErrs); err != nil {
		return nil, err
	}
	bh := c.Blockhash
	return &bh, nil
}

// SendTransaction records the transaction and returns its first signature.
func (c *RPCClient) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["sendTransaction"]++
	if err := popErr(&c.SendErrs); err != nil {
		return solana.Signature{}, err
	}
	if err := solana.CheckSigned(tx); err != nil {
		return solana.Signature{}, err
	}
	if _, err := tx.MarshalBinary(); err != nil {
		return solana.Signature{}, err
	}

	c.sent = append(c.sent, tx)
	sig := solana.TransactionID(tx)
	if c.AutoConfirm {
		c.applyTransfers(tx)
		c.Statuses[sig] = &solana.SignatureStatus{
			Slot:               c.BlockHeight,
			ConfirmationStatus: solana.CommitmentConfirmed,
		}
	}
	return sig, nil
}

func (c *RPCClient) applyTransfers(tx *solana.Transaction) {
	for _, tr := range solana.Transfers(tx) {
		if c.Balances[tr.From] < tr.Lamports {
			continue
		}
		c.Balances[tr.From] -= tr.Lamports
		c.Balances[tr.To] += tr.Lamports
	}
}

// GetSignatureStatuses returns stored statuses, nil for unknown signatures.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures ...solana.Signature) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getSignatureStatuses"]++
	if err := popErr(&c.StatusErrs); err != nil {
		return nil, err
	}
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		out[i] = c.Statuses[sig]
	}
	return out, nil
}

// GetBlockHeight returns the configured block height.
func (c *RPCClient) GetBlockHeight(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getBlockHeight"]++
	return c.BlockHeight, nil
}
