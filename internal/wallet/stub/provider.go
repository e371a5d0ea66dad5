package stub

import (
	"context"
	"fmt"
	"sync"

	"capitoro/internal/domain"
	"capitoro/internal/solana"
	solanastub "capitoro/internal/solana/stub"
	"capitoro/internal/wallet"
)

// Provider implements wallet.Provider for testing. It signs with a
// deterministic key and can be told to reject or fail.
type Provider struct {
	mu sync.Mutex

	Key     solana.PrivateKey
	Trusted bool

	RejectConnect bool
	RejectSign    bool
	ConnectErr    error
	SignErr       error
	DisconnectErr error

	// Tamper, when set, is applied to the signed copy before it is returned.
	Tamper func(*solana.Transaction)

	signCalls int
	signed    []*solana.Transaction
}

var _ wallet.Provider = (*Provider)(nil)

// NewProvider creates a trusted provider whose key is derived from seed.
func NewProvider(seed byte) *Provider {
	return &Provider{
		Key:     solanastub.Key(seed),
		Trusted: true,
	}
}

// Address returns the provider's public key.
func (p *Provider) Address() solana.PublicKey {
	return p.Key.PublicKey()
}

// SignCalls returns how many times SignTransaction was called.
func (p *Provider) SignCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signCalls
}

// Connect implements wallet.Provider.
func (p *Provider) Connect(_ context.Context, onlyIfTrusted bool) (solana.PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ConnectErr != nil {
		return solana.PublicKey{}, p.ConnectErr
	}
	if onlyIfTrusted && !p.Trusted {
		return solana.PublicKey{}, wallet.ErrNotTrusted
	}
	if !onlyIfTrusted && p.RejectConnect {
		return solana.PublicKey{}, fmt.Errorf("%w: connect declined", domain.ErrUserRejected)
	}
	p.Trusted = true
	return p.Address(), nil
}

// Disconnect implements wallet.Provider.
func (p *Provider) Disconnect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DisconnectErr
}

// SignTransaction implements wallet.Provider.
func (p *Provider) SignTransaction(_ context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signCalls++
	if p.SignErr != nil {
		return nil, p.SignErr
	}
	if p.RejectSign {
		return nil, fmt.Errorf("%w: signature declined", domain.ErrUserRejected)
	}

	signed, err := solana.SignCopy(tx, p.Key)
	if err != nil {
		return nil, err
	}
	if p.Tamper != nil {
		p.Tamper(signed)
	}
	p.signed = append(p.signed, signed)
	return signed, nil
}
