package investment_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"capitoro/internal/balance"
	"capitoro/internal/domain"
	"capitoro/internal/investment"
	"capitoro/internal/solana"
	solanastub "capitoro/internal/solana/stub"
	"capitoro/internal/storage"
	"capitoro/internal/storage/memory"
	"capitoro/internal/wallet"
	walletstub "capitoro/internal/wallet/stub"
)

const sol = uint64(1_000_000_000)

type harness struct {
	rpc       *solanastub.RPCClient
	provider  *walletstub.Provider
	session   *wallet.Session
	reader    *balance.Reader
	store     *memory.InvestmentStore
	analytics *memory.AnalyticsStore
	submitter *investment.Submitter
	flow      *investment.Flow

	investor  solana.PublicKey
	recipient solana.PublicKey
	project   uuid.UUID
	investorI uuid.UUID
}

type harnessOption func(*investment.Options)

func withConfirmer(c solana.Confirmer) harnessOption {
	return func(o *investment.Options) { o.Confirmer = c }
}

func withStore(s storage.InvestmentStore) harnessOption {
	return func(o *investment.Options) { o.Store = s }
}

func withAnalytics(a storage.InvestmentAnalytics) harnessOption {
	return func(o *investment.Options) { o.Analytics = a }
}

func immediately(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		rpc:       solanastub.NewRPCClient(),
		provider:  walletstub.NewProvider(1),
		store:     memory.NewInvestmentStore(),
		analytics: memory.NewAnalyticsStore(),
		recipient: walletstub.NewProvider(2).Address(),
		project:   uuid.New(),
		investorI: uuid.New(),
	}
	h.investor = h.provider.Address()
	h.session = wallet.NewSession(h.provider, nil)
	h.reader = balance.NewReader(h.rpc, balance.Options{
		Sleep: func(context.Context, time.Duration) error { return nil },
	})

	o := investment.Options{
		RPC:       h.rpc,
		Balances:  h.reader,
		Confirmer: solana.NewPollingConfirmer(h.rpc, solana.WithAfterFunc(immediately)),
		Store:     h.store,
		Analytics: h.analytics,
		Now:       func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	for _, opt := range opts {
		opt(&o)
	}

	var err error
	h.submitter, err = investment.NewSubmitter(o)
	require.NoError(t, err)
	h.flow = investment.NewFlow(h.submitter, h.reader, h.session, nil)

	_, ok, err := h.session.Connect(context.Background(), false)
	require.NoError(t, err)
	require.True(t, ok)
	return h
}

func (h *harness) request(amount string) investment.Request {
	return investment.Request{
		InvestorWallet:  h.investor.String(),
		RecipientWallet: h.recipient.String(),
		Amount:          decimal.RequireFromString(amount),
		ProjectID:       h.project,
		InvestorID:      h.investorI,
	}
}

func (h *harness) fund(lamports uint64) {
	h.rpc.SetBalance(h.investor, lamports)
}

// nothingSent asserts that the flow stopped before touching the chain.
func (h *harness) nothingSent(t *testing.T) {
	t.Helper()
	require.Zero(t, h.rpc.Calls("sendTransaction"), "sendTransaction calls")
	require.Zero(t, h.store.Len(), "recorded investments")
}

type confirmerFunc func(ctx context.Context, sig solana.Signature, lastValid uint64) error

func (f confirmerFunc) Confirm(ctx context.Context, sig solana.Signature, lastValid uint64) error {
	return f(ctx, sig, lastValid)
}

type failingStore struct {
	storage.InvestmentStore
	err error
}

func (s failingStore) Insert(context.Context, *domain.Investment) error {
	return s.err
}

type failingAnalytics struct {
	storage.InvestmentAnalytics
	err error
}

func (a failingAnalytics) Record(context.Context, *domain.Investment) error {
	return a.err
}
