// Package balance reads native wallet balances through a TTL cache, retrying
// rate-limited node responses with exponential backoff.
package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"capitoro/internal/domain"
	"capitoro/internal/observability"
	"capitoro/internal/solana"
)

// DefaultTTL is how long a cached balance is served without a node query.
const DefaultTTL = 5 * time.Minute

// Clock returns the current time.
type Clock func() time.Time

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Options configures a Reader. Zero values select the defaults.
type Options struct {
	TTL          time.Duration
	MaxRetries   int // rate-limit retries after the first attempt
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Clock        Clock
	Sleep        Sleeper
	Logger       *zap.Logger
}

func (o *Options) applyDefaults() {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Sleep == nil {
		o.Sleep = SleepContext
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Reader is the balance reader.
type Reader struct {
	rpc   solana.RPCClient
	cache *Cache
	opts  Options
	log   *zap.Logger
}

// NewReader creates a Reader with its own cache.
func NewReader(rpc solana.RPCClient, opts Options) *Reader {
	opts.applyDefaults()
	return &Reader{
		rpc:   rpc,
		cache: NewCache(),
		opts:  opts,
		log:   opts.Logger.Named("balance"),
	}
}

// GetBalance returns the SOL balance of address. A cached reading younger
// than the TTL is returned without a node query unless force is set.
func (r *Reader) GetBalance(ctx context.Context, address string, force bool) (decimal.Decimal, error) {
	pk, err := solana.ParsePublicKey(address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", domain.ErrInvalidAddress, err)
	}

	if !force {
		if b, ok := r.cache.Get(address); ok && !b.Stale(r.opts.Clock(), r.opts.TTL) {
			observability.RecordBalanceLookup("hit")
			return b.SOL(), nil
		}
		observability.RecordBalanceLookup("miss")
	} else {
		observability.RecordBalanceLookup("forced")
	}

	lamports, err := r.fetch(ctx, pk)
	if err != nil {
		return decimal.Zero, err
	}

	b := domain.WalletBalance{
		Address:   address,
		Lamports:  lamports,
		FetchedAt: r.opts.Clock(),
	}
	r.cache.Put(b)
	return b.SOL(), nil
}

// fetch queries the node, retrying only rate-limit failures.
func (r *Reader) fetch(ctx context.Context, pk solana.PublicKey) (uint64, error) {
	for attempt := 0; ; attempt++ {
		lamports, err := r.rpc.GetBalance(ctx, pk)
		if err == nil {
			return lamports, nil
		}
		if !solana.IsRateLimited(err) {
			return 0, fmt.Errorf("%w: get balance %s: %w", domain.ErrNetwork, pk, err)
		}
		if attempt >= r.opts.MaxRetries {
			return 0, fmt.Errorf("%w: rate limited after %d retries: %w", domain.ErrNetwork, attempt, err)
		}

		delay := Backoff(attempt+1, r.opts.InitialDelay, r.opts.MaxDelay)
		r.log.Warn("rate limited, retrying balance query",
			zap.String("address", pk.String()),
			zap.Int("retry", attempt+1),
			zap.Duration("delay", delay),
		)
		observability.RecordRateLimitRetry()

		if err := r.opts.Sleep(ctx, delay); err != nil {
			return 0, fmt.Errorf("%w: %w", domain.ErrNetwork, err)
		}
	}
}

// Lookup returns the cached reading for address without querying the node.
func (r *Reader) Lookup(address string) (domain.WalletBalance, bool) {
	return r.cache.Get(address)
}

// Debit subtracts amount from the cached reading of address, flooring at
// zero. FetchedAt is kept, so the next expiry still triggers a node query.
// It reports false when nothing is cached.
func (r *Reader) Debit(address string, amount decimal.Decimal) (decimal.Decimal, bool) {
	lamports, err := solana.SOLToLamports(amount)
	if err != nil {
		return decimal.Zero, false
	}
	b, ok := r.cache.Update(address, func(b *domain.WalletBalance) {
		if b.Lamports < lamports {
			b.Lamports = 0
			return
		}
		b.Lamports -= lamports
	})
	if !ok {
		return decimal.Zero, false
	}
	return b.SOL(), true
}

// Invalidate drops the cached reading for address.
func (r *Reader) Invalidate(address string) {
	r.cache.Delete(address)
}
