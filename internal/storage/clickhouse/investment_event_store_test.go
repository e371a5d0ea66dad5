package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capitoro/internal/domain"
	"capitoro/internal/storage"
)

func TestInvestmentEventStore(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewInvestmentEventStore(conn)
	ctx := context.Background()
	project := uuid.New()
	alice, bob := uuid.New(), uuid.New()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := &domain.Investment{
		ID: uuid.New(), InvestorID: alice, ProjectID: project,
		Amount: decimal.RequireFromString("0.5"), TransactionSignature: "sig1", CreatedAt: now,
	}
	second := &domain.Investment{
		ID: uuid.New(), InvestorID: bob, ProjectID: project,
		Amount: decimal.RequireFromString("1.25"), TransactionSignature: "sig2", CreatedAt: now.Add(time.Minute),
	}

	t.Run("record and aggregate", func(t *testing.T) {
		require.NoError(t, store.Record(ctx, first))
		require.NoError(t, store.Record(ctx, second))

		totals, err := store.ProjectFunding(ctx, project)
		require.NoError(t, err)
		assert.True(t, totals.TotalRaised.Equal(decimal.RequireFromString("1.75")), "got %s", totals.TotalRaised)
		assert.Equal(t, 2, totals.InvestorCount)
	})

	t.Run("re-record collapses", func(t *testing.T) {
		require.NoError(t, store.Record(ctx, first))

		totals, err := store.ProjectFunding(ctx, project)
		require.NoError(t, err)
		assert.True(t, totals.TotalRaised.Equal(decimal.RequireFromString("1.75")), "got %s", totals.TotalRaised)
	})

	t.Run("unknown project", func(t *testing.T) {
		totals, err := store.ProjectFunding(ctx, uuid.New())
		require.NoError(t, err)
		assert.True(t, totals.TotalRaised.IsZero())
		assert.Equal(t, 0, totals.InvestorCount)
	})

	t.Run("invalid input", func(t *testing.T) {
		assert.ErrorIs(t, store.Record(ctx, nil), storage.ErrInvalidInput)
	})
}
