package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capitoro/internal/domain"
	solanastub "capitoro/internal/solana/stub"
	"capitoro/internal/storage"
	"capitoro/internal/storage/memory"
)

func storedProject(t *testing.T, projects *memory.ProjectStore) *domain.Project {
	t.Helper()
	p := &domain.Project{
		ID:                 uuid.New(),
		EntrepreneurID:     uuid.New(),
		EntrepreneurWallet: solanastub.Address(2).String(),
		Name:               "Campus Compost",
		Category:           "other",
		Stage:              domain.StageIdea,
		FundingGoal:        decimal.NewFromInt(5),
		CreatedAt:          time.Now().UTC(),
	}
	require.NoError(t, projects.Insert(context.Background(), p))
	return p
}

func TestBuildRequest(t *testing.T) {
	projectID := uuid.New()

	req, err := buildRequest("0.5", projectID.String(), "", true)
	require.NoError(t, err)
	assert.Equal(t, projectID, req.ProjectID)
	assert.Equal(t, "0.5", req.Amount.String())
	assert.NotEqual(t, uuid.Nil, req.InvestorID)

	_, err = buildRequest("0.5", "", "", true)
	assert.ErrorIs(t, err, errProjectRequired, "persisted investments need a real project")

	req, err = buildRequest("0.5", "", "", false)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, req.ProjectID)

	_, err = buildRequest("0.5", "not-a-uuid", "", false)
	assert.Error(t, err)

	_, err = buildRequest("abc", projectID.String(), "", true)
	assert.Error(t, err)
}

func TestResolveRecipient_ProjectWallet(t *testing.T) {
	projects := memory.NewProjectStore()
	p := storedProject(t, projects)
	ctx := context.Background()

	req, err := buildRequest("0.5", p.ID.String(), "", true)
	require.NoError(t, err)
	require.NoError(t, resolveRecipient(ctx, projects, &req, ""))
	assert.Equal(t, p.EntrepreneurWallet, req.RecipientWallet)

	req, err = buildRequest("0.5", p.ID.String(), "", true)
	require.NoError(t, err)
	require.NoError(t, resolveRecipient(ctx, projects, &req, p.EntrepreneurWallet), "matching -to is accepted")
	assert.Equal(t, p.EntrepreneurWallet, req.RecipientWallet)
}

func TestResolveRecipient_Rejections(t *testing.T) {
	projects := memory.NewProjectStore()
	p := storedProject(t, projects)
	ctx := context.Background()

	req, err := buildRequest("0.5", uuid.New().String(), "", true)
	require.NoError(t, err)
	err = resolveRecipient(ctx, projects, &req, "")
	assert.ErrorIs(t, err, storage.ErrNotFound, "unknown project fails before any transfer")
	assert.Empty(t, req.RecipientWallet)

	req, err = buildRequest("0.5", p.ID.String(), "", true)
	require.NoError(t, err)
	err = resolveRecipient(ctx, projects, &req, solanastub.Address(3).String())
	assert.Error(t, err, "-to must be the project wallet")
	assert.Empty(t, req.RecipientWallet)
}

func TestResolveRecipient_NotPersisted(t *testing.T) {
	ctx := context.Background()
	req, err := buildRequest("0.5", "", "", false)
	require.NoError(t, err)

	assert.Error(t, resolveRecipient(ctx, nil, &req, ""))

	to := solanastub.Address(2).String()
	require.NoError(t, resolveRecipient(ctx, nil, &req, to))
	assert.Equal(t, to, req.RecipientWallet)
}
