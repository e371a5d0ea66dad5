package investment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capitoro/internal/domain"
	"capitoro/internal/investment"
	"capitoro/internal/solana"
	solanastub "capitoro/internal/solana/stub"
)

func TestSubmit_TransfersAndRecords(t *testing.T) {
	h := newHarness(t)
	h.fund(2 * sol)
	ctx := context.Background()

	inv, err := h.submitter.Submit(ctx, h.session, h.request("0.5"))
	require.NoError(t, err)

	sent := h.rpc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []solana.Transfer{{From: h.investor, To: h.recipient, Lamports: 500_000_000}}, solana.Transfers(sent[0]))
	assert.Equal(t, h.investor, sent[0].Message.AccountKeys[0])
	assert.Equal(t, solana.TransactionID(sent[0]).String(), inv.TransactionSignature)

	stored, err := h.store.GetBySignature(ctx, inv.TransactionSignature)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("0.5")), "amount %s", stored.Amount)
	assert.Equal(t, h.project, stored.ProjectID)
	assert.Equal(t, h.investorI, stored.InvestorID)

	assert.Equal(t, 1, h.analytics.Len())
	assert.Equal(t, 500_000_000*uint64(1), h.rpc.Balance(h.recipient))
}

func TestSubmit_FloorsToWholeLamports(t *testing.T) {
	h := newHarness(t)
	h.fund(2 * sol)

	inv, err := h.submitter.Submit(context.Background(), h.session, h.request("0.1234567899"))
	require.NoError(t, err)

	transfers := solana.Transfers(h.rpc.Sent()[0])
	require.Len(t, transfers, 1)
	assert.Equal(t, uint64(123_456_789), transfers[0].Lamports)
	assert.True(t, inv.Amount.Equal(decimal.RequireFromString("0.123456789")), "amount %s", inv.Amount)
}

func TestSubmit_InsufficientFunds(t *testing.T) {
	h := newHarness(t)
	h.fund(sol / 10)

	_, err := h.submitter.Submit(context.Background(), h.session, h.request("0.5"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.NotErrorIs(t, err, domain.ErrInvalidAmount)

	h.nothingSent(t)
	assert.Zero(t, h.rpc.Calls("getLatestBlockhash"))
	assert.Zero(t, h.provider.SignCalls())
}

func TestSubmit_InvalidAmount(t *testing.T) {
	for _, amount := range []string{"0", "-1", "0.0000000001"} {
		t.Run(amount, func(t *testing.T) {
			h := newHarness(t)
			h.fund(2 * sol)

			_, err := h.submitter.Submit(context.Background(), h.session, h.request(amount))
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
			require.ErrorIs(t, err, domain.ErrInvalidAmount)
			assert.Equal(t, domain.KindInvalidAmount, domain.Kind(err))

			h.nothingSent(t)
			assert.Zero(t, h.rpc.Calls("getBalance"))
		})
	}
}

func TestSubmit_InvalidAddress(t *testing.T) {
	h := newHarness(t)
	h.fund(2 * sol)

	req := h.request("0.5")
	req.RecipientWallet = "abc"
	_, err := h.submitter.Submit(context.Background(), h.session, req)
	require.ErrorIs(t, err, domain.ErrInvalidAddress)
	h.nothingSent(t)
}

func TestSubmit_BalanceNetworkError(t *testing.T) {
	h := newHarness(t)
	h.rpc.BalanceErrs = []error{errors.New("connection refused")}

	_, err := h.submitter.Submit(context.Background(), h.session, h.request("0.5"))
	require.ErrorIs(t, err, domain.ErrNetwork)
	h.nothingSent(t)
}

func TestSubmit_BlockhashNetworkError(t *testing.T) {
	h := newHarness(t)
	h.fund(2 * sol)
	h.rpc.BlockhashErrs = []error{errors.New("node unavailable")}

	_, err := h.submitter.Submit(context.Background(), h.session, h.request("0.5"))
	require.ErrorIs(t, err, domain.ErrNetwork)
	assert.Zero(t, h.provider.SignCalls())
	h.nothingSent(t)
}

func TestSubmit_UserRejectsSignature(t *testing.T) {
	h := newHarness(t)
	h.fund(2 * sol)
	h.provider.RejectSign = true

	_, err := h.submitter.Submit(context.Background(), h.session, h.request("0.5"))
	require.ErrorIs(t, err, domain.ErrSigning)
	require.ErrorIs(t, err, domain.ErrUserRejected)
	assert.Equal(t, domain.KindUserRejected, domain.Kind(err))
	h.nothingSent(t)
}

type rawSigner struct{ err error }

func (s rawSigner) SignTransaction(context.Context, *solana.Transaction) (*solana.Transaction, error) {
	return nil, s.err
}

func TestSubmit_SignerErrorsAreSigningErrors(t *testing.T) {
	h := newHarness(t)
	h.fund(2 * sol)

	_, err := h.submitter.Submit(context.Background(), rawSigner{err: errors.New("device unplugged")}, h.request("0.5"))
	require.ErrorIs(t, err, domain.ErrSigning)
	h.nothingSent(t)
}

func TestSubmit_SubmissionRejected(t *testing.T) {
	h := newHarness(t)
	h.fund(2 * sol)
	h.rpc.SendErrs = []error{solanastub.ErrSendRejected}

	_, err := h.submitter.Submit(context.Background(), h.session, h.request("0.5"))
	require.ErrorIs(t, err, domain.ErrSubmission)
	require.ErrorIs(t, err, solanastub.ErrSendRejected)
	assert.Zero(t, h.store.Len())
}

func TestSubmit_ConfirmationFailed(t *testing.T) {
	var gotLastValid uint64
	h := newHarness(t, withConfirmer(confirmerFunc(func(_ context.Context, _ solana.Signature, lastValid uint64) error {
		gotLastValid = lastValid
		return solana.ErrTransactionFailed
	})))
	h.fund(2 * sol)

	_, err := h.submitter.Submit(context.Background(), h.session, h.request("0.5"))
	require.ErrorIs(t, err, domain.ErrConfirmation)
	require.ErrorIs(t, err, solana.ErrTransactionFailed)
	assert.Equal(t, h.rpc.Blockhash.LastValidBlockHeight, gotLastValid)
	assert.Equal(t, 1, h.rpc.Calls("sendTransaction"))
	assert.Zero(t, h.store.Len())
}

func TestSubmit_PersistenceFailureIsNotCompensated(t *testing.T) {
	storeErr := errors.New("database is down")
	h := newHarness(t, withStore(failingStore{err: storeErr}))
	h.fund(2 * sol)

	_, err := h.submitter.Submit(context.Background(), h.session, h.request("0.5"))
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.ErrorIs(t, err, storeErr)
	assert.Equal(t, domain.KindPersistence, domain.Kind(err))

	var unrecorded *investment.UnrecordedTransferError
	require.ErrorAs(t, err, &unrecorded)
	assert.Equal(t, solana.TransactionID(h.rpc.Sent()[0]), unrecorded.Signature)
	assert.True(t, unrecorded.Investment.Amount.Equal(decimal.RequireFromString("0.5")))

	// the transfer stays on chain
	assert.Equal(t, 500_000_000*uint64(1), h.rpc.Balance(h.recipient))
}

func TestSubmit_AnalyticsFailureIsIgnored(t *testing.T) {
	h := newHarness(t, withAnalytics(failingAnalytics{err: errors.New("clickhouse down")}))
	h.fund(2 * sol)

	inv, err := h.submitter.Submit(context.Background(), h.session, h.request("0.5"))
	require.NoError(t, err)
	assert.Equal(t, 1, h.store.Len())
	assert.NotNil(t, inv)
}

func TestNewSubmitter_RequiresDependencies(t *testing.T) {
	_, err := investment.NewSubmitter(investment.Options{})
	assert.Error(t, err)
}
