package wallet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	solanago "github.com/gagliardetto/solana-go"

	"capitoro/internal/domain"
	"capitoro/internal/solana"
)

// keypairLength is the size of a Solana CLI keypair: seed then public key.
const keypairLength = 64

var errKeypairMismatch = errors.New("public key does not match secret key")

// ApprovalKind names what the user is asked to approve.
type ApprovalKind string

// Approval kinds
const (
	ApproveConnect ApprovalKind = "connect"
	ApproveSign    ApprovalKind = "sign"
)

// ApprovalRequest is shown to the user before connecting or signing.
type ApprovalRequest struct {
	Kind        ApprovalKind
	Address     solana.PublicKey
	Transaction *solana.Transaction // nil for ApproveConnect
}

// Approver decides on an ApprovalRequest. Returning false declines.
type Approver func(ctx context.Context, req ApprovalRequest) (bool, error)

// KeypairProvider is a Provider backed by a local ed25519 keypair.
type KeypairProvider struct {
	key     solana.PrivateKey
	address solana.PublicKey
	approve Approver

	mu        sync.Mutex
	trusted   bool
	connected bool
}

var _ Provider = (*KeypairProvider)(nil)

// KeypairOption configures KeypairProvider.
type KeypairOption func(*KeypairProvider)

// WithTrusted marks the origin as already authorized, allowing silent connect.
func WithTrusted(trusted bool) KeypairOption {
	return func(p *KeypairProvider) {
		p.trusted = trusted
	}
}

// WithApprover sets the prompt used for connect and sign requests.
// Without one every request is approved.
func WithApprover(a Approver) KeypairOption {
	return func(p *KeypairProvider) {
		p.approve = a
	}
}

// LoadKeypair reads and validates a Solana CLI keypair file (a JSON array
// of 64 bytes).
func LoadKeypair(path string) (solana.PrivateKey, error) {
	key, err := solanago.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair: %w", err)
	}
	if err := checkKeypair(key); err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", path, err)
	}
	return key, nil
}

// checkKeypair rejects keys of the wrong size and keys whose public half was
// not derived from their seed: a signature made with such a key does not
// verify against its own public key.
func checkKeypair(key solana.PrivateKey) error {
	if len(key) != keypairLength {
		return fmt.Errorf("got %d bytes, want %d", len(key), keypairLength)
	}
	msg := []byte("keypair check")
	sig, err := key.Sign(msg)
	if err != nil {
		return err
	}
	if !sig.Verify(key.PublicKey(), msg) {
		return errKeypairMismatch
	}
	return nil
}

// NewKeypairProvider creates a provider for key.
func NewKeypairProvider(key solana.PrivateKey, opts ...KeypairOption) (*KeypairProvider, error) {
	if err := checkKeypair(key); err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	p := &KeypairProvider{key: key, address: key.PublicKey()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PublicKey returns the wallet address.
func (p *KeypairProvider) PublicKey() solana.PublicKey {
	return p.address
}

// Connect implements Provider. An approved prompt marks the origin trusted.
func (p *KeypairProvider) Connect(ctx context.Context, onlyIfTrusted bool) (solana.PublicKey, error) {
	p.mu.Lock()
	trusted := p.trusted
	p.mu.Unlock()

	if onlyIfTrusted && !trusted {
		return solana.PublicKey{}, ErrNotTrusted
	}
	if !trusted {
		if err := p.ask(ctx, ApprovalRequest{Kind: ApproveConnect, Address: p.address}); err != nil {
			return solana.PublicKey{}, err
		}
	}

	p.mu.Lock()
	p.trusted = true
	p.connected = true
	p.mu.Unlock()
	return p.address, nil
}

// Disconnect implements Provider.
func (p *KeypairProvider) Disconnect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// SignTransaction implements Provider. The input is not modified.
func (p *KeypairProvider) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	p.mu.Lock()
	connected := p.connected
	p.mu.Unlock()
	if !connected {
		return nil, ErrNotConnected
	}

	if err := p.ask(ctx, ApprovalRequest{Kind: ApproveSign, Address: p.address, Transaction: tx}); err != nil {
		return nil, err
	}

	return solana.SignCopy(tx, p.key)
}

func (p *KeypairProvider) ask(ctx context.Context, req ApprovalRequest) error {
	if p.approve == nil {
		return nil
	}
	ok, err := p.approve(ctx, req)
	if err != nil {
		return fmt.Errorf("approval prompt: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s declined", domain.ErrUserRejected, req.Kind)
	}
	return nil
}

// PromptApprover asks on out and reads a y/N answer from in.
func PromptApprover(in io.Reader, out io.Writer) Approver {
	reader := bufio.NewReader(in)
	return func(_ context.Context, req ApprovalRequest) (bool, error) {
		switch req.Kind {
		case ApproveConnect:
			fmt.Fprintf(out, "Connect wallet %s? [y/N] ", req.Address)
		case ApproveSign:
			fmt.Fprintf(out, "Sign transaction from %s:\n", req.Address)
			for _, tr := range solana.Transfers(req.Transaction) {
				fmt.Fprintf(out, "  transfer %s to %s\n",
					domain.FormatSOL(solana.LamportsToSOL(tr.Lamports)), tr.To)
			}
			fmt.Fprint(out, "Approve? [y/N] ")
		}

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}
