package reconcile

import (
	"context"

	"go.uber.org/zap"

	"coinapp-api/internal/client/circle"
	"coinapp-api/internal/db"
	"coinapp-api/internal/helpers"
	"coinapp-api/internal/logger"
	"coinapp-api/internal/metrics"
)

// BalanceFetcher fetches token balances from the wallet provider.
type BalanceFetcher interface {
	GetWalletBalances(ctx context.Context, blockchain, walletAddress string) (*circle.WalletBalancesResponse, error)
}

// BalanceStore persists refreshed balances to the local wallet cache.
type BalanceStore interface {
	UpdateWalletBalance(ctx context.Context, arg db.UpdateWalletBalanceParams) error
}

// BalanceSyncClient pulls a wallet's authoritative USDC balance from the
// provider and writes it through to the local cache. The UI reads the cache,
// so refresh errors resolve to "0" rather than surfacing; a stale or zero
// balance display beats an error page here.
type BalanceSyncClient struct {
	fetcher BalanceFetcher
	store   BalanceStore
}

// NewBalanceSyncClient creates a balance sync client.
func NewBalanceSyncClient(fetcher BalanceFetcher, store BalanceStore) *BalanceSyncClient {
	return &BalanceSyncClient{fetcher: fetcher, store: store}
}

// Refresh fetches the current USDC balance for the wallet on the chain named
// by chainName and caches it on the wallet row. Always returns a usable
// decimal string; "0" stands in for both an empty balance and an
// unreachable provider.
func (c *BalanceSyncClient) Refresh(ctx context.Context, wallet db.Wallet, chainName string) string {
	blockchain := helpers.BlockchainForChain(chainName)

	balance, ok := c.fetch(ctx, blockchain, wallet.WalletAddress)
	if ok {
		metrics.BalanceRefreshTotal.WithLabelValues("ok").Inc()
		c.writeThrough(ctx, wallet, blockchain, balance)
		return balance
	}

	// alternateChainRetry: one attempt against the other supported chain.
	// Wallet rows created by older onboarding paths sometimes carry the
	// wrong network label, which makes the first call 404; the balance
	// usually lives on the other chain in that case.
	alternate := helpers.AlternateBlockchain(blockchain)
	logger.Log.Warn("Balance fetch failed, retrying on alternate chain",
		zap.String("walletAddress", wallet.WalletAddress),
		zap.String("blockchain", blockchain),
		zap.String("alternate", alternate))

	balance, ok = c.fetch(ctx, alternate, wallet.WalletAddress)
	if ok {
		metrics.BalanceRefreshTotal.WithLabelValues("alternate_chain").Inc()
		c.writeThrough(ctx, wallet, alternate, balance)
		return balance
	}

	metrics.BalanceRefreshTotal.WithLabelValues("fallback_zero").Inc()
	logger.Log.Error("Balance fetch failed on both chains, falling back to zero",
		zap.String("walletAddress", wallet.WalletAddress))
	return "0"
}

func (c *BalanceSyncClient) fetch(ctx context.Context, blockchain, walletAddress string) (string, bool) {
	resp, err := c.fetcher.GetWalletBalances(ctx, blockchain, walletAddress)
	if err != nil {
		logger.Log.Warn("Failed to fetch wallet balances",
			zap.String("blockchain", blockchain),
			zap.String("walletAddress", walletAddress),
			zap.Error(err))
		return "", false
	}
	return resp.USDCAmount(), true
}

// writeThrough caches the fetched balance on the wallet row. A write failure
// is logged and otherwise ignored; the fetched value is still returned to the
// caller and the next refresh will retry the write.
func (c *BalanceSyncClient) writeThrough(ctx context.Context, wallet db.Wallet, blockchain, balance string) {
	if !wallet.CircleWalletID.Valid || wallet.CircleWalletID.String == "" {
		return
	}
	err := c.store.UpdateWalletBalance(ctx, db.UpdateWalletBalanceParams{
		Balance:        balance,
		CircleWalletID: wallet.CircleWalletID.String,
		Blockchain:     wallet.Blockchain,
	})
	if err != nil {
		logger.Log.Error("Failed to cache wallet balance",
			zap.String("walletId", wallet.ID.String()),
			zap.String("blockchain", blockchain),
			zap.Error(err))
	}
}
