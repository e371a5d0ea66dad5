package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capitoro/internal/domain"
	"capitoro/internal/storage"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newInvestment(project, investor uuid.UUID, amount, sig string, offset time.Duration) *domain.Investment {
	return &domain.Investment{
		ID:                   uuid.New(),
		InvestorID:           investor,
		ProjectID:            project,
		Amount:               decimal.RequireFromString(amount),
		TransactionSignature: sig,
		CreatedAt:            baseTime.Add(offset),
	}
}

func TestInvestmentStore_InsertAndGet(t *testing.T) {
	store := NewInvestmentStore()
	ctx := context.Background()

	inv := newInvestment(uuid.New(), uuid.New(), "0.5", "sig1", 0)

	// Insert
	if err := store.Insert(ctx, inv); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Get
	got, err := store.GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Amount.Equal(inv.Amount) {
		t.Errorf("Amount mismatch: got %s, want %s", got.Amount, inv.Amount)
	}
	if got.TransactionSignature != "sig1" {
		t.Errorf("Signature mismatch: got %s", got.TransactionSignature)
	}

	bySig, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if bySig.ID != inv.ID {
		t.Errorf("ID mismatch: got %s, want %s", bySig.ID, inv.ID)
	}
}

func TestInvestmentStore_DuplicateKey(t *testing.T) {
	store := NewInvestmentStore()
	ctx := context.Background()

	inv := newInvestment(uuid.New(), uuid.New(), "1", "sig1", 0)
	if err := store.Insert(ctx, inv); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	// Same id
	if err := store.Insert(ctx, inv); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for id, got %v", err)
	}

	// Same signature, new id
	again := newInvestment(uuid.New(), uuid.New(), "2", "sig1", time.Minute)
	if err := store.Insert(ctx, again); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for signature, got %v", err)
	}
}

func TestInvestmentStore_InvalidInput(t *testing.T) {
	store := NewInvestmentStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}

	zero := newInvestment(uuid.New(), uuid.New(), "0", "sig", 0)
	if err := store.Insert(ctx, zero); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero amount, got %v", err)
	}
}

func TestInvestmentStore_NotFound(t *testing.T) {
	store := NewInvestmentStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, uuid.New()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetBySignature(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInvestmentStore_OrderingAndTotals(t *testing.T) {
	store := NewInvestmentStore()
	ctx := context.Background()

	project := uuid.New()
	alice, bob := uuid.New(), uuid.New()

	// Insert out of order
	for _, inv := range []*domain.Investment{
		newInvestment(project, alice, "0.25", "sig3", 3*time.Minute),
		newInvestment(project, bob, "1.5", "sig1", time.Minute),
		newInvestment(project, alice, "0.5", "sig2", 2*time.Minute),
		newInvestment(uuid.New(), alice, "9", "sig4", 0),
	} {
		if err := store.Insert(ctx, inv); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByProjectID(ctx, project)
	if err != nil {
		t.Fatalf("GetByProjectID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 investments, got %d", len(got))
	}
	for i, want := range []string{"sig1", "sig2", "sig3"} {
		if got[i].TransactionSignature != want {
			t.Errorf("Position %d: got %s, want %s", i, got[i].TransactionSignature, want)
		}
	}

	byAlice, _ := store.GetByInvestorID(ctx, alice)
	if len(byAlice) != 3 {
		t.Errorf("Expected 3 investments by alice, got %d", len(byAlice))
	}

	totals, err := store.FundingTotals(ctx, project)
	if err != nil {
		t.Fatalf("FundingTotals failed: %v", err)
	}
	if !totals.TotalRaised.Equal(decimal.RequireFromString("2.25")) {
		t.Errorf("TotalRaised: got %s, want 2.25", totals.TotalRaised)
	}
	if totals.InvestorCount != 2 {
		t.Errorf("InvestorCount: got %d, want 2", totals.InvestorCount)
	}

	empty, _ := store.FundingTotals(ctx, uuid.New())
	if !empty.TotalRaised.IsZero() || empty.InvestorCount != 0 {
		t.Errorf("Expected zero totals, got %+v", empty)
	}
}

func TestInvestmentStore_ReturnsCopies(t *testing.T) {
	store := NewInvestmentStore()
	ctx := context.Background()

	inv := newInvestment(uuid.New(), uuid.New(), "1", "sig1", 0)
	if err := store.Insert(ctx, inv); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	inv.TransactionSignature = "mutated"

	got, _ := store.GetByID(ctx, inv.ID)
	got.Amount = decimal.NewFromInt(100)

	again, _ := store.GetByID(ctx, inv.ID)
	if again.TransactionSignature != "sig1" || !again.Amount.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Store was mutated externally: %+v", again)
	}
}

func TestInvestmentStore_Concurrent(t *testing.T) {
	store := NewInvestmentStore()
	ctx := context.Background()
	project := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inv := newInvestment(project, uuid.New(), "0.1", uuid.NewString(), time.Duration(i)*time.Second)
			if err := store.Insert(ctx, inv); err != nil {
				t.Errorf("Insert failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	totals, _ := store.FundingTotals(ctx, project)
	if !totals.TotalRaised.Equal(decimal.NewFromInt(5)) {
		t.Errorf("TotalRaised: got %s, want 5", totals.TotalRaised)
	}
	if totals.InvestorCount != 50 {
		t.Errorf("InvestorCount: got %d, want 50", totals.InvestorCount)
	}
}
