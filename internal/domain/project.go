package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capitoro/internal/solana"
)

// ProjectStage is the maturity of a project.
type ProjectStage string

// Project stage constants
const (
	StageIdea      ProjectStage = "idea"
	StagePrototype ProjectStage = "prototype"
	StageMVP       ProjectStage = "mvp"
	StageGrowth    ProjectStage = "growth"
	StageScaling   ProjectStage = "scaling"
)

// Categories lists the accepted project categories.
var Categories = []string{
	"fintech", "healthtech", "edtech", "ecommerce", "saas",
	"ai", "blockchain", "gaming", "social", "other",
}

// MinFundingGoal is the smallest accepted funding goal in SOL.
var MinFundingGoal = decimal.New(1, -1)

// Project is a student venture accepting investments.
// Corresponds to projects table in PostgreSQL.
type Project struct {
	ID                 uuid.UUID       `json:"id"`
	EntrepreneurID     uuid.UUID       `json:"entrepreneur_id"`
	EntrepreneurWallet string          `json:"entrepreneur_wallet_address"` // receives investments
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Category           string          `json:"category"`
	Stage              ProjectStage    `json:"status"`
	FundingGoal        decimal.Decimal `json:"funding_goal"` // SOL
	CreatedAt          time.Time       `json:"created_at"`
}

// Validate checks user-supplied project fields.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if p.EntrepreneurID == uuid.Nil {
		return errors.New("entrepreneur_id is required")
	}
	pk, err := solana.ParsePublicKey(p.EntrepreneurWallet)
	if err != nil {
		return fmt.Errorf("entrepreneur wallet: %w", ErrInvalidAddress)
	}
	if !pk.IsOnCurve() {
		return fmt.Errorf("entrepreneur wallet is not a wallet-owned address: %w", ErrInvalidAddress)
	}
	if p.FundingGoal.LessThan(MinFundingGoal) {
		return fmt.Errorf("funding goal must be at least %s SOL", MinFundingGoal)
	}
	if p.Category != "" && !validCategory(p.Category) {
		return fmt.Errorf("unknown category %q", p.Category)
	}
	switch p.Stage {
	case "", StageIdea, StagePrototype, StageMVP, StageGrowth, StageScaling:
	default:
		return fmt.Errorf("unknown stage %q", p.Stage)
	}
	return nil
}

func validCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ProjectFilter narrows project listings. Zero values match everything.
type ProjectFilter struct {
	Category string
	Search   string // case-insensitive substring of name or description
}

// Matches reports whether p passes the filter.
func (f ProjectFilter) Matches(p *Project) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}
