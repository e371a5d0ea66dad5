package storage

import (
	"context"

	"github.com/google/uuid"

	"capitoro/internal/domain"
)

// InvestmentStore provides access to investments storage. Investments are
// append-only: there is no update or delete.
type InvestmentStore interface {
	// Insert adds a new investment. Returns ErrDuplicateKey if the id or
	// transaction signature exists.
	Insert(ctx context.Context, inv *domain.Investment) error

	// GetByID retrieves an investment by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Investment, error)

	// GetBySignature retrieves an investment by transaction signature. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.Investment, error)

	// GetByProjectID retrieves all investments in a project, ordered by created_at ASC.
	GetByProjectID(ctx context.Context, projectID uuid.UUID) ([]*domain.Investment, error)

	// GetByInvestorID retrieves all investments by an investor, ordered by created_at ASC.
	GetByInvestorID(ctx context.Context, investorID uuid.UUID) ([]*domain.Investment, error)

	// FundingTotals sums a project's investments at read time.
	FundingTotals(ctx context.Context, projectID uuid.UUID) (*domain.FundingTotals, error)
}

// ProjectStore provides access to projects storage.
type ProjectStore interface {
	// Insert adds a new project. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, p *domain.Project) error

	// GetByID retrieves a project by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	// List retrieves projects matching filter, newest first.
	List(ctx context.Context, filter domain.ProjectFilter) ([]*domain.Project, error)
}

// InvestmentAnalytics is a write-behind mirror of confirmed investments used
// for reporting. It is never the source of truth.
type InvestmentAnalytics interface {
	// Record mirrors an investment. Re-recording the same investment is harmless.
	Record(ctx context.Context, inv *domain.Investment) error

	// ProjectFunding returns mirrored totals for a project.
	ProjectFunding(ctx context.Context, projectID uuid.UUID) (*domain.FundingTotals, error)
}
