package investment

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"capitoro/internal/domain"
)

// Status is the state of a Flow.
type Status string

// Flow states. Success and error are terminal until Reset.
const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// ErrFlowNotIdle is returned by Submit outside the idle state and by Reset
// while a submission is in flight.
var ErrFlowNotIdle = errors.New("an investment is already in progress or awaiting reset")

// Balances is the balance reader as seen by a Flow.
type Balances interface {
	BalanceSource
	Debit(address string, amount decimal.Decimal) (decimal.Decimal, bool)
}

// Snapshot is a point-in-time view of a Flow.
type Snapshot struct {
	Status         Status             `json:"status"`
	BalanceAddress string             `json:"balance_address,omitempty"`
	Balance        *decimal.Decimal   `json:"balance,omitempty"`
	Investment     *domain.Investment `json:"investment,omitempty"`
	ErrorKind      string             `json:"error_kind,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// Flow runs one investment at a time and tracks the caller-side balance.
type Flow struct {
	submitter *Submitter
	balances  Balances
	signer    Signer
	log       *zap.Logger

	mu             sync.Mutex
	status         Status
	balanceAddress string
	balance        decimal.Decimal
	balanceKnown   bool
	last           *domain.Investment
	err            error
}

// NewFlow creates an idle Flow signing with signer.
func NewFlow(submitter *Submitter, balances Balances, signer Signer, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		submitter: submitter,
		balances:  balances,
		signer:    signer,
		log:       logger.Named("flow"),
		status:    StatusIdle,
	}
}

// RefreshBalance reads the balance of address and keeps it as the
// caller-side balance.
func (f *Flow) RefreshBalance(ctx context.Context, address string, force bool) (decimal.Decimal, error) {
	bal, err := f.balances.GetBalance(ctx, address, force)
	if err != nil {
		return decimal.Zero, err
	}
	f.mu.Lock()
	f.balanceAddress = address
	f.balance = bal
	f.balanceKnown = true
	f.mu.Unlock()
	return bal, nil
}

// Submit runs one investment. Input that fails validation (amount, address,
// balance) leaves the Flow idle; any later failure moves it to the error
// state. On success the amount is subtracted from the caller-side balance
// and the cached reading without a refetch.
func (f *Flow) Submit(ctx context.Context, req Request) (*domain.Investment, error) {
	f.mu.Lock()
	if f.status != StatusIdle {
		f.mu.Unlock()
		return nil, ErrFlowNotIdle
	}
	f.status = StatusProcessing
	f.err = nil
	f.mu.Unlock()

	inv, err := f.submitter.Submit(ctx, f.signer, req)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.err = err
		if isValidationError(err) {
			f.status = StatusIdle
		} else {
			f.status = StatusError
		}
		f.log.Info("investment failed",
			zap.String("kind", domain.Kind(err)),
			zap.String("status", string(f.status)),
			zap.Error(err),
		)
		return nil, err
	}

	f.status = StatusSuccess
	f.last = inv
	if f.balanceKnown && f.balanceAddress == req.InvestorWallet {
		f.balance = f.balance.Sub(inv.Amount)
		if f.balance.IsNegative() {
			f.balance = decimal.Zero
		}
	}
	f.balances.Debit(req.InvestorWallet, inv.Amount)
	return inv, nil
}

func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrInvalidAddress)
}

// Reset returns a terminal Flow to idle, ready for a new transaction.
// Resetting an idle Flow clears the last validation error.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusProcessing {
		return ErrFlowNotIdle
	}
	f.status = StatusIdle
	f.last = nil
	f.err = nil
	return nil
}

// Status returns the current state.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Snapshot returns the current state, balance, last investment and error.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Snapshot{Status: f.status}
	if f.last != nil {
		inv := *f.last
		s.Investment = &inv
	}
	if f.balanceKnown {
		bal := f.balance
		s.BalanceAddress = f.balanceAddress
		s.Balance = &bal
	}
	if f.err != nil {
		s.ErrorKind = domain.Kind(f.err)
		s.Error = domain.UserMessage(f.err)
	}
	return s
}
