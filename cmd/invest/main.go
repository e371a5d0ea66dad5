// Package main is a one-shot CLI that reads a wallet balance or transfers
// SOL from a local keypair to a project wallet and records the investment.
//
// Usage:
//
//	invest -balance <address> [-refresh]
//	invest -keypair ~/.config/solana/id.json -project <uuid> -amount 0.5 [-investor <uuid>] [-yes]
//	USE_MEMORY=true invest -keypair ~/.config/solana/id.json -to <address> -amount 0.5 [-yes]
//
// With PostgreSQL configured the project must exist and its wallet is the
// recipient. Otherwise nothing outlives the run and -to names the recipient.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"capitoro/internal/balance"
	"capitoro/internal/config"
	"capitoro/internal/domain"
	"capitoro/internal/investment"
	"capitoro/internal/logger"
	"capitoro/internal/solana"
	"capitoro/internal/storage"
	"capitoro/internal/storage/memory"
	"capitoro/internal/storage/migrations"
	pgstore "capitoro/internal/storage/postgres"
	"capitoro/internal/wallet"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path to a .env file (ignored if missing)")
	balanceOf := flag.String("balance", "", "Print the balance of this address and exit")
	refresh := flag.Bool("refresh", false, "Bypass the balance cache")
	keypair := flag.String("keypair", os.Getenv("WALLET_KEYPAIR"), "Investor keypair file (Solana CLI JSON)")
	to := flag.String("to", "", "Recipient wallet address (defaults to the project wallet)")
	amount := flag.String("amount", "", "Amount in SOL, e.g. 0.5")
	projectID := flag.String("project", "", "Project ID (required with PostgreSQL, generated otherwise)")
	investorID := flag.String("investor", "", "Investor ID (generated when empty)")
	yes := flag.Bool("yes", false, "Sign without prompting")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fatal(err)
	}
	log := logger.Must(cfg.LogLevel)
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Balance reads and submission own their retry policy.
	rpcOpts := []solana.ClientOption{solana.WithMaxRetries(0)}
	if cfg.RPCRateLimit > 0 {
		rpcOpts = append(rpcOpts, solana.WithRateLimit(cfg.RPCRateLimit, 1))
	}
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, rpcOpts...)
	reader := balance.NewReader(rpc, balance.Options{TTL: cfg.BalanceCacheTTL, Logger: log})

	if *balanceOf != "" {
		bal, err := reader.GetBalance(ctx, *balanceOf, *refresh)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%s: %s\n", domain.TruncateAddress(*balanceOf), domain.FormatSOL(bal))
		return
	}

	if *keypair == "" || *amount == "" {
		flag.Usage()
		os.Exit(2)
	}

	led, err := openLedger(ctx, cfg, log)
	if err != nil {
		fatal(err)
	}
	defer led.close()

	req, err := buildRequest(*amount, *projectID, *investorID, led.projects != nil)
	if err != nil {
		fatal(err)
	}
	if err := resolveRecipient(ctx, led.projects, &req, *to); err != nil {
		fatal(err)
	}

	key, err := wallet.LoadKeypair(*keypair)
	if err != nil {
		fatal(err)
	}
	opts := []wallet.KeypairOption{wallet.WithTrusted(true)}
	if !*yes {
		opts = append(opts, wallet.WithApprover(wallet.PromptApprover(os.Stdin, os.Stdout)))
	}
	provider, err := wallet.NewKeypairProvider(key, opts...)
	if err != nil {
		fatal(err)
	}
	session := wallet.NewSession(provider, log)
	address, _, err := session.Connect(ctx, true)
	if err != nil {
		fatal(err)
	}
	req.InvestorWallet = address.String()

	submitter, err := investment.NewSubmitter(investment.Options{
		RPC:       rpc,
		Balances:  reader,
		Confirmer: solana.NewPollingConfirmer(rpc, solana.WithConfirmTimeout(cfg.ConfirmTimeout)),
		Store:     led.investments,
		Logger:    log,
	})
	if err != nil {
		fatal(err)
	}
	flow := investment.NewFlow(submitter, reader, session, log)

	bal, err := flow.RefreshBalance(ctx, req.InvestorWallet, *refresh)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Wallet %s balance %s\n", domain.TruncateAddress(req.InvestorWallet), domain.FormatSOL(bal))

	inv, err := flow.Submit(ctx, req)
	if err != nil {
		fatal(err)
	}

	snap := flow.Snapshot()
	fmt.Printf("Investment successful: %s to %s\n", domain.FormatSOL(inv.Amount), domain.TruncateAddress(req.RecipientWallet))
	fmt.Printf("Signature: %s\n", inv.TransactionSignature)
	fmt.Printf("Explorer:  %s\n", domain.ExplorerURL(inv.TransactionSignature, cfg.Cluster))
	if snap.Balance != nil {
		fmt.Printf("Remaining: %s\n", domain.FormatSOL(*snap.Balance))
	}
}

// errProjectRequired is returned when investments are persisted without a project.
var errProjectRequired = errors.New("-project is required when investments are recorded in PostgreSQL")

func buildRequest(amount, projectID, investorID string, requireProject bool) (investment.Request, error) {
	sol, err := domain.ParseAmount(amount)
	if err != nil {
		return investment.Request{}, err
	}
	if requireProject && projectID == "" {
		return investment.Request{}, errProjectRequired
	}
	req := investment.Request{
		Amount:     sol,
		ProjectID:  uuid.New(),
		InvestorID: uuid.New(),
	}
	if projectID != "" {
		if req.ProjectID, err = uuid.Parse(projectID); err != nil {
			return investment.Request{}, fmt.Errorf("project: %w", err)
		}
	}
	if investorID != "" {
		if req.InvestorID, err = uuid.Parse(investorID); err != nil {
			return investment.Request{}, fmt.Errorf("investor: %w", err)
		}
	}
	return req, nil
}

// resolveRecipient pays the project's wallet when projects are stored, so
// the investment row it produces satisfies the ledger's project reference.
// Without a project store -to names the recipient.
func resolveRecipient(ctx context.Context, projects storage.ProjectStore, req *investment.Request, to string) error {
	if projects == nil {
		if to == "" {
			return errors.New("-to is required when investments are not persisted")
		}
		req.RecipientWallet = to
		return nil
	}

	p, err := projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return fmt.Errorf("project %s: %w", req.ProjectID, err)
	}
	if to != "" && to != p.EntrepreneurWallet {
		return fmt.Errorf("-to %s is not the wallet of project %q (%s)", to, p.Name, p.EntrepreneurWallet)
	}
	req.RecipientWallet = p.EntrepreneurWallet
	return nil
}

// ledger is where the investment is recorded. projects is nil when nothing
// is persisted.
type ledger struct {
	investments storage.InvestmentStore
	projects    storage.ProjectStore
	close       func()
}

// openLedger records into PostgreSQL when configured, otherwise into a
// throwaway in-memory store.
func openLedger(ctx context.Context, cfg *config.Config, log *zap.Logger) (*ledger, error) {
	if cfg.UseMemory || cfg.PostgresDSN == "" {
		log.Debug("investment will not be persisted beyond this run")
		return &ledger{investments: memory.NewInvestmentStore(), close: func() {}}, nil
	}
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &ledger{
		investments: pgstore.NewInvestmentStore(pool),
		projects:    pgstore.NewProjectStore(pool),
		close:       pool.Close,
	}, nil
}

func fatal(err error) {
	msg := domain.UserMessage(err)
	if domain.Kind(err) == domain.KindUnknown {
		msg = err.Error()
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	fmt.Fprintf(os.Stderr, "detail: %v\n", err)
	os.Exit(1)
}
