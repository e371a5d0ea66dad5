// Package main runs the investment API: balance reads, the server-side
// wallet session, investment submission and the project ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"capitoro/internal/api"
	"capitoro/internal/balance"
	"capitoro/internal/config"
	"capitoro/internal/investment"
	"capitoro/internal/logger"
	"capitoro/internal/solana"
	"capitoro/internal/storage"
	chstore "capitoro/internal/storage/clickhouse"
	"capitoro/internal/storage/memory"
	"capitoro/internal/storage/migrations"
	pgstore "capitoro/internal/storage/postgres"
	"capitoro/internal/wallet"
)

// stores holds the storage implementations the API runs on.
type stores struct {
	projects    storage.ProjectStore
	investments storage.InvestmentStore
	analytics   storage.InvestmentAnalytics
}

func main() {
	envFile := flag.String("env-file", ".env", "Path to a .env file (ignored if missing)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Must(config.DefaultLogLevel).Fatal("load config", zap.Error(err))
	}

	log := logger.Must(cfg.LogLevel)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
	log.Info("shutdown complete")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	// Balance reads and submission own their retry policy.
	rpcOpts := []solana.ClientOption{solana.WithMaxRetries(0)}
	if cfg.RPCRateLimit > 0 {
		rpcOpts = append(rpcOpts, solana.WithRateLimit(cfg.RPCRateLimit, 1))
	}
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, rpcOpts...)

	confirmer, closeWS := createConfirmer(ctx, cfg, rpc, log)
	defer closeWS()

	reader := balance.NewReader(rpc, balance.Options{
		TTL:    cfg.BalanceCacheTTL,
		Logger: log,
	})

	session, err := createSession(ctx, cfg, log)
	if err != nil {
		return err
	}

	submitter, err := investment.NewSubmitter(investment.Options{
		RPC:       rpc,
		Balances:  reader,
		Confirmer: confirmer,
		Store:     st.investments,
		Analytics: st.analytics,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	flow := investment.NewFlow(submitter, reader, session, log)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewServer(api.Deps{
			Balances:    reader,
			Session:     session,
			Flow:        flow,
			Projects:    st.projects,
			Investments: st.investments,
			Analytics:   st.analytics,
			Cluster:     cfg.Cluster,
			Logger:      log,
		}).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("cluster", cfg.Cluster))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	// In-flight investments get the confirmation timeout to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ConfirmTimeout+5*time.Second)
	defer shutdownCancel()

	go func() {
		select {
		case sig := <-sigCh:
			log.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	return srv.Shutdown(shutdownCtx)
}

// createStores creates the in-memory stores or the PostgreSQL ledger with an
// optional ClickHouse mirror. Migrations run before the stores are returned.
func createStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		log.Info("using in-memory storage")
		return &stores{
			projects:    memory.NewProjectStore(),
			investments: memory.NewInvestmentStore(),
			analytics:   memory.NewAnalyticsStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("postgres ready")

	st := &stores{
		projects:    pgstore.NewProjectStore(pool),
		investments: pgstore.NewInvestmentStore(pool),
	}
	cleanup := pool.Close

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("clickhouse analytics mirror ready")
		st.analytics = chstore.NewInvestmentEventStore(conn)
		cleanup = func() {
			if err := conn.Close(); err != nil {
				log.Warn("close clickhouse", zap.Error(err))
			}
			pool.Close()
		}
	}

	return st, cleanup, nil
}

// createConfirmer prefers signature subscriptions and polls when no
// WebSocket endpoint is configured or it cannot be reached.
func createConfirmer(ctx context.Context, cfg *config.Config, rpc solana.RPCClient, log *zap.Logger) (solana.Confirmer, func()) {
	polling := solana.NewPollingConfirmer(rpc, solana.WithConfirmTimeout(cfg.ConfirmTimeout))
	if cfg.WSEndpoint == "" {
		return polling, func() {}
	}

	ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, nil)
	if err != nil {
		log.Warn("websocket unavailable, confirming by polling", zap.Error(err))
		return polling, func() {}
	}
	return solana.NewWSConfirmer(ws, polling), func() {
		if err := ws.Close(); err != nil {
			log.Warn("close websocket", zap.Error(err))
		}
	}
}

// createSession loads the server wallet and reconnects silently if it is
// trusted. Without a keypair the session has no wallet installed.
func createSession(ctx context.Context, cfg *config.Config, log *zap.Logger) (*wallet.Session, error) {
	if cfg.WalletKeypair == "" {
		log.Warn("no wallet keypair configured, investments are disabled")
		return wallet.NewSession(nil, log), nil
	}

	key, err := wallet.LoadKeypair(cfg.WalletKeypair)
	if err != nil {
		return nil, err
	}
	provider, err := wallet.NewKeypairProvider(key, wallet.WithTrusted(cfg.WalletTrusted))
	if err != nil {
		return nil, err
	}

	session := wallet.NewSession(provider, log)
	if _, ok, err := session.Connect(ctx, true); err != nil {
		return nil, err
	} else if !ok {
		log.Info("wallet not trusted, waiting for an explicit connect")
	}
	return session, nil
}
