package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capitoro/internal/domain"
	"capitoro/internal/storage"
)

// AnalyticsStore is an in-memory implementation of storage.InvestmentAnalytics.
// Records are keyed by investment id, so re-recording replaces.
type AnalyticsStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]domain.Investment
}

var _ storage.InvestmentAnalytics = (*AnalyticsStore)(nil)

// NewAnalyticsStore creates a new in-memory analytics store.
func NewAnalyticsStore() *AnalyticsStore {
	return &AnalyticsStore{
		data: make(map[uuid.UUID]domain.Investment),
	}
}

// Record mirrors an investment.
func (s *AnalyticsStore) Record(_ context.Context, inv *domain.Investment) error {
	if inv == nil || inv.ID == uuid.Nil {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[inv.ID] = *inv
	return nil
}

// ProjectFunding returns mirrored totals for a project.
func (s *AnalyticsStore) ProjectFunding(_ context.Context, projectID uuid.UUID) (*domain.FundingTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := &domain.FundingTotals{ProjectID: projectID, TotalRaised: decimal.Zero}
	investors := make(map[uuid.UUID]struct{})
	for _, inv := range s.data {
		if inv.ProjectID != projectID {
			continue
		}
		totals.TotalRaised = totals.TotalRaised.Add(inv.Amount)
		investors[inv.InvestorID] = struct{}{}
	}
	totals.InvestorCount = len(investors)
	return totals, nil
}

// Len returns the number of mirrored investments.
func (s *AnalyticsStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
