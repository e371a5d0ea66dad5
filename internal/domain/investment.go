package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Investment is a confirmed transfer from an investor to a project.
// Corresponds to investments table in PostgreSQL. Rows are append-only.
type Investment struct {
	ID                   uuid.UUID       `json:"id"`
	InvestorID           uuid.UUID       `json:"investor_id"`
	ProjectID            uuid.UUID       `json:"project_id"`
	Amount               decimal.Decimal `json:"amount"`           // SOL
	TransactionSignature string          `json:"transaction_hash"` // base58 signature
	CreatedAt            time.Time       `json:"created_at"`
}

// Validate checks the fields required for a ledger row.
func (i *Investment) Validate() error {
	switch {
	case i.ID == uuid.Nil:
		return errors.New("id is required")
	case i.InvestorID == uuid.Nil:
		return errors.New("investor_id is required")
	case i.ProjectID == uuid.Nil:
		return errors.New("project_id is required")
	case !i.Amount.IsPositive():
		return errors.New("amount must be positive")
	case i.TransactionSignature == "":
		return errors.New("transaction signature is required")
	}
	return nil
}

// FundingTotals are derived from investments at read time.
type FundingTotals struct {
	ProjectID     uuid.UUID       `json:"project_id"`
	TotalRaised   decimal.Decimal `json:"total_raised"` // SOL
	InvestorCount int             `json:"investor_count"`
}

var hundred = decimal.NewFromInt(100)

// ProgressPct returns TotalRaised as a percentage of goal, capped at 100.
// A non-positive goal counts as 1 SOL.
func (f FundingTotals) ProgressPct(goal decimal.Decimal) decimal.Decimal {
	if !goal.IsPositive() {
		goal = decimal.NewFromInt(1)
	}
	pct := f.TotalRaised.Div(goal).Mul(hundred)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
