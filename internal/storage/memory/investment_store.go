package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capitoro/internal/domain"
	"capitoro/internal/storage"
)

// InvestmentStore is an in-memory implementation of storage.InvestmentStore.
type InvestmentStore struct {
	mu          sync.RWMutex
	data        map[uuid.UUID]*domain.Investment // keyed by id
	bySignature map[string]uuid.UUID
}

var _ storage.InvestmentStore = (*InvestmentStore)(nil)

// NewInvestmentStore creates a new in-memory investment store.
func NewInvestmentStore() *InvestmentStore {
	return &InvestmentStore{
		data:        make(map[uuid.UUID]*domain.Investment),
		bySignature: make(map[string]uuid.UUID),
	}
}

// Insert adds a new investment. Returns ErrDuplicateKey if id or signature exists.
func (s *InvestmentStore) Insert(_ context.Context, inv *domain.Investment) error {
	if inv == nil {
		return storage.ErrInvalidInput
	}
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[inv.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.bySignature[inv.TransactionSignature]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	invCopy := *inv
	s.data[inv.ID] = &invCopy
	s.bySignature[inv.TransactionSignature] = inv.ID
	return nil
}

// GetByID retrieves an investment by its ID. Returns ErrNotFound if not exists.
func (s *InvestmentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	invCopy := *inv
	return &invCopy, nil
}

// GetBySignature retrieves an investment by transaction signature.
func (s *InvestmentStore) GetBySignature(_ context.Context, signature string) (*domain.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.bySignature[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}
	invCopy := *s.data[id]
	return &invCopy, nil
}

// GetByProjectID retrieves all investments in a project, ordered by created_at ASC.
func (s *InvestmentStore) GetByProjectID(_ context.Context, projectID uuid.UUID) ([]*domain.Investment, error) {
	return s.filter(func(inv *domain.Investment) bool { return inv.ProjectID == projectID }), nil
}

// GetByInvestorID retrieves all investments by an investor, ordered by created_at ASC.
func (s *InvestmentStore) GetByInvestorID(_ context.Context, investorID uuid.UUID) ([]*domain.Investment, error) {
	return s.filter(func(inv *domain.Investment) bool { return inv.InvestorID == investorID }), nil
}

// FundingTotals sums a project's investments.
func (s *InvestmentStore) FundingTotals(ctx context.Context, projectID uuid.UUID) (*domain.FundingTotals, error) {
	investments, _ := s.GetByProjectID(ctx, projectID)

	totals := &domain.FundingTotals{ProjectID: projectID, TotalRaised: decimal.Zero}
	investors := make(map[uuid.UUID]struct{})
	for _, inv := range investments {
		totals.TotalRaised = totals.TotalRaised.Add(inv.Amount)
		investors[inv.InvestorID] = struct{}{}
	}
	totals.InvestorCount = len(investors)
	return totals, nil
}

func (s *InvestmentStore) filter(match func(*domain.Investment) bool) []*domain.Investment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Investment
	for _, inv := range s.data {
		if match(inv) {
			invCopy := *inv
			result = append(result, &invCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].TransactionSignature < result[j].TransactionSignature
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Len returns the number of stored investments.
func (s *InvestmentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
