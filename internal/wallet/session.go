package wallet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"capitoro/internal/domain"
	"capitoro/internal/solana"
)

// Session tracks the connection to an optional Provider. A nil provider
// means no wallet is installed, which is a normal state.
type Session struct {
	provider Provider
	log      *zap.Logger

	mu        sync.RWMutex
	address   solana.PublicKey
	connected bool
}

// NewSession creates a Session over provider, which may be nil.
func NewSession(provider Provider, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		provider: provider,
		log:      logger.Named("wallet"),
	}
}

// Installed reports whether a provider is present.
func (s *Session) Installed() bool {
	return s.provider != nil
}

// Connected reports whether the session holds an address.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Address returns the connected address.
func (s *Session) Address() (solana.PublicKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address, s.connected
}

// Connect connects the wallet. With onlyIfTrusted it never prompts and
// reports ok=false with a nil error when the wallet is absent or has not
// authorized this origin. Otherwise a missing wallet is ErrNotInstalled and a
// declined prompt matches domain.ErrUserRejected.
func (s *Session) Connect(ctx context.Context, onlyIfTrusted bool) (solana.PublicKey, bool, error) {
	if s.provider == nil {
		if onlyIfTrusted {
			return solana.PublicKey{}, false, nil
		}
		return solana.PublicKey{}, false, ErrNotInstalled
	}

	address, err := s.provider.Connect(ctx, onlyIfTrusted)
	if err != nil {
		if onlyIfTrusted {
			s.log.Debug("silent reconnect skipped", zap.Error(err))
			return solana.PublicKey{}, false, nil
		}
		return solana.PublicKey{}, false, fmt.Errorf("connect wallet: %w", err)
	}

	s.mu.Lock()
	s.address = address
	s.connected = true
	s.mu.Unlock()

	s.log.Info("wallet connected",
		zap.String("address", address.String()),
		zap.Bool("silent", onlyIfTrusted),
	)
	return address, true, nil
}

// Disconnect ends the session. Local state is cleared even if the provider fails.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	wasConnected := s.connected
	s.address = solana.PublicKey{}
	s.connected = false
	s.mu.Unlock()

	if s.provider == nil || !wasConnected {
		return nil
	}
	if err := s.provider.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect wallet: %w", err)
	}
	s.log.Info("wallet disconnected")
	return nil
}

// SignTransaction asks the provider to sign tx. Every failure matches
// domain.ErrSigning; a declined prompt additionally matches
// domain.ErrUserRejected. The returned transaction must carry a valid
// signature by the session address over the unchanged message.
func (s *Session) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSigning, ErrNotInstalled)
	}
	address, ok := s.Address()
	if !ok {
		return nil, fmt.Errorf("%w: %w", domain.ErrSigning, ErrNotConnected)
	}

	signed, err := s.provider.SignTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSigning, err)
	}
	if err := verifySigned(tx, signed, address); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSigning, err)
	}
	return signed, nil
}

func verifySigned(original, signed *solana.Transaction, address solana.PublicKey) error {
	if signed == nil {
		return errors.New("provider returned no transaction")
	}
	msg, err := signed.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode signed message: %w", err)
	}
	want, err := original.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if !bytes.Equal(msg, want) {
		return errors.New("provider altered the transaction message")
	}
	for i, signer := range solana.Signers(signed) {
		if !signer.Equals(address) {
			continue
		}
		if i >= len(signed.Signatures) || !signed.Signatures[i].Verify(address, msg) {
			return errors.New("provider returned an invalid signature")
		}
		return nil
	}
	return fmt.Errorf("%s is not a signer of the transaction", address)
}
