package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solanastub "capitoro/internal/solana/stub"
)

func walletAddress(seed byte) string {
	return solanastub.Address(seed).String()
}

func validProject() *Project {
	return &Project{
		ID:                 uuid.New(),
		EntrepreneurID:     uuid.New(),
		EntrepreneurWallet: walletAddress(1),
		Name:               "Campus Compost",
		Description:        "Composting for dorms",
		Category:           "other",
		Stage:              StageIdea,
		FundingGoal:        decimal.NewFromInt(5),
	}
}

func TestProject_Validate(t *testing.T) {
	require.NoError(t, validProject().Validate())

	tests := []struct {
		name   string
		mutate func(p *Project)
	}{
		{"empty name", func(p *Project) { p.Name = "  " }},
		{"missing entrepreneur", func(p *Project) { p.EntrepreneurID = uuid.Nil }},
		{"bad wallet", func(p *Project) { p.EntrepreneurWallet = "abc" }},
		{"goal below minimum", func(p *Project) { p.FundingGoal = decimal.RequireFromString("0.09") }},
		{"unknown category", func(p *Project) { p.Category = "crypto-casino" }},
		{"unknown stage", func(p *Project) { p.Stage = "ipo" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProject()
			tt.mutate(p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestProject_Validate_MinimumGoal(t *testing.T) {
	p := validProject()
	p.FundingGoal = decimal.RequireFromString("0.1")
	assert.NoError(t, p.Validate())
}

func TestProject_Validate_WalletIsInvalidAddress(t *testing.T) {
	p := validProject()
	p.EntrepreneurWallet = ""
	assert.ErrorIs(t, p.Validate(), ErrInvalidAddress)
}

func TestProjectFilter_Matches(t *testing.T) {
	p := validProject()

	assert.True(t, ProjectFilter{}.Matches(p))
	assert.True(t, ProjectFilter{Category: "other"}.Matches(p))
	assert.False(t, ProjectFilter{Category: "fintech"}.Matches(p))
	assert.True(t, ProjectFilter{Search: "COMPOST"}.Matches(p))
	assert.True(t, ProjectFilter{Search: "dorms"}.Matches(p))
	assert.False(t, ProjectFilter{Search: "rocket"}.Matches(p))
}

func TestInvestment_Validate(t *testing.T) {
	inv := Investment{
		ID:                   uuid.New(),
		InvestorID:           uuid.New(),
		ProjectID:            uuid.New(),
		Amount:               decimal.RequireFromString("0.5"),
		TransactionSignature: "sig",
	}
	require.NoError(t, inv.Validate())

	zero := inv
	zero.Amount = decimal.Zero
	assert.Error(t, zero.Validate())

	unsigned := inv
	unsigned.TransactionSignature = ""
	assert.Error(t, unsigned.Validate())
}

func TestFundingTotals_ProgressPct(t *testing.T) {
	tests := []struct {
		raised string
		goal   string
		want   string
	}{
		{"0", "10", "0"},
		{"2.5", "10", "25"},
		{"10", "10", "100"},
		{"15", "10", "100"},
		{"0.5", "0", "50"},
		{"0.5", "-3", "50"},
	}

	for _, tt := range tests {
		f := FundingTotals{TotalRaised: decimal.RequireFromString(tt.raised)}
		got := f.ProgressPct(decimal.RequireFromString(tt.goal))
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"raised=%s goal=%s: got %s want %s", tt.raised, tt.goal, got, tt.want)
	}
}

func TestWalletBalance(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := WalletBalance{Address: "a", Lamports: 1_500_000_000, FetchedAt: now}

	assert.Equal(t, "1.5", b.SOL().String())
	assert.False(t, b.Stale(now.Add(5*time.Minute), 5*time.Minute))
	assert.True(t, b.Stale(now.Add(5*time.Minute+time.Nanosecond), 5*time.Minute))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, KindUnknown, Kind(errors.New("boom")))
	assert.Equal(t, KindNetwork, Kind(fmt.Errorf("%w: timeout", ErrNetwork)))

	rejected := fmt.Errorf("%w: %w", ErrSigning, ErrUserRejected)
	assert.Equal(t, KindUserRejected, Kind(rejected))

	invalid := fmt.Errorf("%w: %w", ErrInsufficientFunds, ErrInvalidAmount)
	assert.Equal(t, KindInvalidAmount, Kind(invalid))
	assert.ErrorIs(t, invalid, ErrInsufficientFunds)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Transaction failed to confirm", UserMessage(fmt.Errorf("x: %w", ErrConfirmation)))
	assert.Equal(t, "An error occurred during the investment process", UserMessage(errors.New("boom")))
}

func TestFormatSOL(t *testing.T) {
	assert.Equal(t, "1.50 SOL", FormatSOL(decimal.RequireFromString("1.5")))
	assert.Equal(t, "0.00 SOL", FormatSOL(decimal.Zero))
	assert.Equal(t, "2.00 SOL", FormatSOL(decimal.RequireFromString("1.999")))
}

func TestTruncateAddress(t *testing.T) {
	assert.Equal(t, "7xKXtg...gAsU", TruncateAddress("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"))
	assert.Equal(t, "short", TruncateAddress("short"))
}

func TestExplorerURL(t *testing.T) {
	assert.Equal(t, "https://explorer.solana.com/tx/abc?cluster=devnet", ExplorerURL("abc", "devnet"))
	assert.Equal(t, "https://explorer.solana.com/tx/abc", ExplorerURL("abc", "mainnet-beta"))
}

func TestParseAmount(t *testing.T) {
	valid := map[string]string{
		"0.5":   "0.5",
		".25":   "0.25",
		"2":     "2",
		"3.":    "3",
		"0.000": "0",
	}
	for in, want := range valid {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s: got %s", in, got)
	}

	for _, in := range []string{"", ".", "-1", "1e5", "1.2.3", "abc", " 1"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}
