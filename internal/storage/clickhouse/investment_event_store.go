package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"capitoro/internal/domain"
	"capitoro/internal/observability"
	"capitoro/internal/solana"
	"capitoro/internal/storage"
)

// InvestmentEventStore implements storage.InvestmentAnalytics using ClickHouse.
// Rows are kept in a ReplacingMergeTree keyed by investment id, so recording
// the same investment twice collapses to one row on merge; reads use FINAL.
type InvestmentEventStore struct {
	conn *Conn
}

// NewInvestmentEventStore creates a new InvestmentEventStore.
func NewInvestmentEventStore(conn *Conn) *InvestmentEventStore {
	return &InvestmentEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.InvestmentAnalytics = (*InvestmentEventStore)(nil)

// Record mirrors an investment.
func (s *InvestmentEventStore) Record(ctx context.Context, inv *domain.Investment) error {
	if inv == nil || inv.ID == uuid.Nil {
		return storage.ErrInvalidInput
	}
	lamports, err := solana.SOLToLamports(inv.Amount)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO investment_events (
			investment_id, project_id, investor_id,
			amount_lamports, transaction_hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	start := time.Now()
	err = s.conn.Exec(ctx, query,
		inv.ID.String(), inv.ProjectID.String(), inv.InvestorID.String(),
		lamports, inv.TransactionSignature, inv.CreatedAt.UTC(),
	)
	observability.RecordDBQuery("clickhouse", "record_investment", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("insert investment event: %w", err)
	}
	return nil
}

// ProjectFunding returns mirrored totals for a project.
func (s *InvestmentEventStore) ProjectFunding(ctx context.Context, projectID uuid.UUID) (*domain.FundingTotals, error) {
	query := `
		SELECT
			sum(amount_lamports),
			uniqExact(investor_id)
		FROM investment_events FINAL
		WHERE project_id = ?
	`

	var (
		lamports  uint64
		investors uint64
	)
	start := time.Now()
	err := s.conn.QueryRow(ctx, query, projectID.String()).Scan(&lamports, &investors)
	observability.RecordDBQuery("clickhouse", "project_funding", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query project funding: %w", err)
	}

	return &domain.FundingTotals{
		ProjectID:     projectID,
		TotalRaised:   solana.LamportsToSOL(lamports),
		InvestorCount: int(investors),
	}, nil
}
