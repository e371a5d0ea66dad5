// Package investment transfers SOL from an investor wallet to a project
// wallet and records the confirmed transfer as an investment.
package investment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"capitoro/internal/domain"
	"capitoro/internal/observability"
	"capitoro/internal/solana"
	"capitoro/internal/storage"
)

// Signer signs transactions for the investor wallet. *wallet.Session is the
// production implementation.
type Signer interface {
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// BalanceSource reads the investor's last-known balance.
type BalanceSource interface {
	GetBalance(ctx context.Context, address string, force bool) (decimal.Decimal, error)
}

// Request describes one investment.
type Request struct {
	InvestorWallet  string
	RecipientWallet string
	Amount          decimal.Decimal // SOL
	ProjectID       uuid.UUID
	InvestorID      uuid.UUID
}

// UnrecordedTransferError reports a confirmed transfer whose investment row
// could not be written. The transfer is not reversed.
type UnrecordedTransferError struct {
	Signature  solana.Signature
	Investment *domain.Investment
	Err        error
}

func (e *UnrecordedTransferError) Error() string {
	return fmt.Sprintf("transfer %s confirmed but not recorded: %v", e.Signature, e.Err)
}

// Unwrap exposes both domain.ErrPersistence and the store error.
func (e *UnrecordedTransferError) Unwrap() []error {
	return []error{domain.ErrPersistence, e.Err}
}

// Options wires a Submitter.
type Options struct {
	RPC       solana.RPCClient
	Balances  BalanceSource
	Confirmer solana.Confirmer
	Store     storage.InvestmentStore
	Analytics storage.InvestmentAnalytics // optional
	Logger    *zap.Logger
	Now       func() time.Time
	NewID     func() uuid.UUID
}

// Submitter runs the investment transfer.
type Submitter struct {
	rpc       solana.RPCClient
	balances  BalanceSource
	confirmer solana.Confirmer
	store     storage.InvestmentStore
	analytics storage.InvestmentAnalytics
	log       *zap.Logger
	now       func() time.Time
	newID     func() uuid.UUID
}

// NewSubmitter creates a Submitter. RPC, Balances, Confirmer and Store are required.
func NewSubmitter(opts Options) (*Submitter, error) {
	switch {
	case opts.RPC == nil:
		return nil, errors.New("investment: rpc client is required")
	case opts.Balances == nil:
		return nil, errors.New("investment: balance source is required")
	case opts.Confirmer == nil:
		return nil, errors.New("investment: confirmer is required")
	case opts.Store == nil:
		return nil, errors.New("investment: investment store is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.New
	}
	return &Submitter{
		rpc:       opts.RPC,
		balances:  opts.Balances,
		confirmer: opts.Confirmer,
		store:     opts.Store,
		analytics: opts.Analytics,
		log:       opts.Logger.Named("investment"),
		now:       opts.Now,
		newID:     opts.NewID,
	}, nil
}

// Submit transfers req.Amount and records the investment once the transfer
// is confirmed. The balance check is against the cached reading and is not
// repeated before submission.
func (s *Submitter) Submit(ctx context.Context, signer Signer, req Request) (*domain.Investment, error) {
	inv, lamports, err := s.submit(ctx, signer, req)
	if err != nil {
		observability.RecordInvestment(domain.Kind(err), 0)
		return nil, err
	}
	observability.RecordInvestment("success", lamports)
	return inv, nil
}

func (s *Submitter) submit(ctx context.Context, signer Signer, req Request) (*domain.Investment, uint64, error) {
	from, to, lamports, err := s.validate(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	blockhash, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: get latest blockhash: %w", domain.ErrNetwork, err)
	}
	tx, err := solana.NewTransferTransaction(from, to, lamports, blockhash.Blockhash)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build transaction: %w", domain.ErrSubmission, err)
	}

	signed, err := signer.SignTransaction(ctx, tx)
	if err != nil {
		if !errors.Is(err, domain.ErrSigning) {
			err = fmt.Errorf("%w: %w", domain.ErrSigning, err)
		}
		return nil, 0, err
	}

	sig, err := s.rpc.SendTransaction(ctx, signed)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", domain.ErrSubmission, err)
	}
	log := s.log.With(zap.String("signature", sig.String()))
	log.Info("transfer submitted",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Uint64("lamports", lamports),
	)

	start := time.Now()
	if err := s.confirmer.Confirm(ctx, sig, blockhash.LastValidBlockHeight); err != nil {
		observability.RecordConfirmation("failed", time.Since(start).Seconds())
		log.Warn("transfer not confirmed", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %w", domain.ErrConfirmation, err)
	}
	observability.RecordConfirmation("confirmed", time.Since(start).Seconds())

	inv := &domain.Investment{
		ID:                   s.newID(),
		InvestorID:           req.InvestorID,
		ProjectID:            req.ProjectID,
		Amount:               solana.LamportsToSOL(lamports),
		TransactionSignature: sig.String(),
		CreatedAt:            s.now().UTC(),
	}
	if err := s.store.Insert(ctx, inv); err != nil {
		observability.RecordUnrecordedTransfer()
		log.Error("confirmed transfer was not recorded",
			zap.String("project_id", req.ProjectID.String()),
			zap.String("investor_id", req.InvestorID.String()),
			zap.String("amount", inv.Amount.String()),
			zap.Error(err),
		)
		return nil, 0, &UnrecordedTransferError{Signature: sig, Investment: inv, Err: err}
	}

	if s.analytics != nil {
		if err := s.analytics.Record(ctx, inv); err != nil {
			observability.RecordAnalyticsError()
			log.Warn("analytics mirror write failed", zap.Error(err))
		}
	}

	log.Info("investment recorded",
		zap.String("investment_id", inv.ID.String()),
		zap.String("project_id", inv.ProjectID.String()),
		zap.String("amount", inv.Amount.String()),
	)
	return inv, lamports, nil
}

// validate covers step one: addresses, a positive amount of at least one
// lamport, and the soft balance check.
func (s *Submitter) validate(ctx context.Context, req Request) (from, to solana.PublicKey, lamports uint64, err error) {
	if !req.Amount.IsPositive() {
		return from, to, 0, fmt.Errorf("%w: %w", domain.ErrInsufficientFunds, domain.ErrInvalidAmount)
	}
	lamports, err = solana.SOLToLamports(req.Amount)
	if err != nil {
		return from, to, 0, fmt.Errorf("%w: %w: %w", domain.ErrInsufficientFunds, domain.ErrInvalidAmount, err)
	}
	if lamports == 0 {
		return from, to, 0, fmt.Errorf("%w: %w: %s SOL is less than one lamport",
			domain.ErrInsufficientFunds, domain.ErrInvalidAmount, req.Amount)
	}

	from, err = solana.ParsePublicKey(req.InvestorWallet)
	if err != nil {
		return from, to, 0, fmt.Errorf("%w: investor wallet: %w", domain.ErrInvalidAddress, err)
	}
	to, err = solana.ParsePublicKey(req.RecipientWallet)
	if err != nil {
		return from, to, 0, fmt.Errorf("%w: recipient wallet: %w", domain.ErrInvalidAddress, err)
	}

	balance, err := s.balances.GetBalance(ctx, req.InvestorWallet, false)
	if err != nil {
		return from, to, 0, err
	}
	if req.Amount.GreaterThan(balance) {
		return from, to, 0, fmt.Errorf("%w: %s SOL requested, %s SOL available",
			domain.ErrInsufficientFunds, req.Amount, balance)
	}
	return from, to, lamports, nil
}
