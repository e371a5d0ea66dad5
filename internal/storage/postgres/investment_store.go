package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"capitoro/internal/domain"
	"capitoro/internal/observability"
	"capitoro/internal/storage"
)

// InvestmentStore implements storage.InvestmentStore using PostgreSQL.
type InvestmentStore struct {
	pool *Pool
}

// NewInvestmentStore creates a new InvestmentStore.
func NewInvestmentStore(pool *Pool) *InvestmentStore {
	return &InvestmentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.InvestmentStore = (*InvestmentStore)(nil)

// Amounts travel as text so NUMERIC(20,9) round-trips through decimal exactly.
const investmentColumns = `id, investor_id, project_id, amount::text, transaction_hash, created_at`

// Insert adds a new investment. Returns ErrDuplicateKey if id or transaction_hash exists.
func (s *InvestmentStore) Insert(ctx context.Context, inv *domain.Investment) error {
	if inv == nil {
		return storage.ErrInvalidInput
	}
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO investments (
			id, investor_id, project_id, amount, transaction_hash, created_at
		) VALUES ($1, $2, $3, $4::text::numeric, $5, $6)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		inv.ID, inv.InvestorID, inv.ProjectID,
		inv.Amount.String(), inv.TransactionSignature, inv.CreatedAt,
	)
	observability.RecordDBQuery("postgres", "insert_investment", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: unknown project %s", storage.ErrInvalidInput, inv.ProjectID)
		}
		return fmt.Errorf("insert investment: %w", err)
	}
	return nil
}

// GetByID retrieves an investment by its ID. Returns ErrNotFound if not exists.
func (s *InvestmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1`

	inv, err := scanInvestment(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get investment by id: %w", err)
	}
	return inv, nil
}

// GetBySignature retrieves an investment by transaction signature. Returns ErrNotFound if not exists.
func (s *InvestmentStore) GetBySignature(ctx context.Context, signature string) (*domain.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE transaction_hash = $1`

	inv, err := scanInvestment(s.pool.QueryRow(ctx, query, signature))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get investment by signature: %w", err)
	}
	return inv, nil
}

// GetByProjectID retrieves all investments in a project, ordered by created_at ASC.
func (s *InvestmentStore) GetByProjectID(ctx context.Context, projectID uuid.UUID) ([]*domain.Investment, error) {
	query := `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE project_id = $1
		ORDER BY created_at ASC, transaction_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("get investments by project id: %w", err)
	}
	defer rows.Close()

	return scanInvestments(rows)
}

// GetByInvestorID retrieves all investments by an investor, ordered by created_at ASC.
func (s *InvestmentStore) GetByInvestorID(ctx context.Context, investorID uuid.UUID) ([]*domain.Investment, error) {
	query := `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE investor_id = $1
		ORDER BY created_at ASC, transaction_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, investorID)
	if err != nil {
		return nil, fmt.Errorf("get investments by investor id: %w", err)
	}
	defer rows.Close()

	return scanInvestments(rows)
}

// FundingTotals sums a project's investments at read time.
func (s *InvestmentStore) FundingTotals(ctx context.Context, projectID uuid.UUID) (*domain.FundingTotals, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::text, COUNT(DISTINCT investor_id)
		FROM investments
		WHERE project_id = $1
	`

	var (
		raised    string
		investors int
	)
	start := time.Now()
	err := s.pool.QueryRow(ctx, query, projectID).Scan(&raised, &investors)
	observability.RecordDBQuery("postgres", "funding_totals", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query funding totals: %w", err)
	}

	total, err := decimal.NewFromString(raised)
	if err != nil {
		return nil, fmt.Errorf("parse funding total %q: %w", raised, err)
	}

	return &domain.FundingTotals{
		ProjectID:     projectID,
		TotalRaised:   total,
		InvestorCount: investors,
	}, nil
}

// scanInvestment scans a single row into Investment.
func scanInvestment(row pgx.Row) (*domain.Investment, error) {
	var (
		inv    domain.Investment
		amount string
	)

	err := row.Scan(
		&inv.ID, &inv.InvestorID, &inv.ProjectID,
		&amount, &inv.TransactionSignature, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return &inv, nil
}

// scanInvestments scans multiple rows into a slice of Investment.
func scanInvestments(rows pgx.Rows) ([]*domain.Investment, error) {
	var investments []*domain.Investment

	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment row: %w", err)
		}
		investments = append(investments, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate investment rows: %w", err)
	}

	return investments, nil
}
