package reconcile

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"coinapp-api/internal/db"
	"coinapp-api/internal/helpers"
	"coinapp-api/internal/logger"
)

// ErrWalletNotFound is returned when no locally tracked wallet matches an
// address under any comparison mode.
var ErrWalletNotFound = errors.New("wallet not found")

// resolverScanLimit caps the candidate set the resolver compares against.
// Matching requires normalization logic that cannot be pushed into a SQL
// equality filter, so candidates are scanned in process. This is a known
// scaling ceiling; past a few thousand wallets the table needs a normalized
// address column with an indexed lookup instead.
const resolverScanLimit = 50

// WalletLister provides the bounded candidate page the resolver scans.
type WalletLister interface {
	ListWallets(ctx context.Context, limit int32) ([]db.Wallet, error)
}

// WalletResolver maps an on-chain address plus chain tag to a locally known
// wallet row. Provider and local storage disagree on address casing and 0x
// prefixing, so resolution falls through three comparison modes of
// decreasing precision: exact, prefix-toggled, then fuzzy.
type WalletResolver struct {
	store WalletLister
}

// NewWalletResolver creates a resolver over the given wallet store.
func NewWalletResolver(store WalletLister) *WalletResolver {
	return &WalletResolver{store: store}
}

// Resolve finds the wallet owning address on the given blockchain. An empty
// blockchain matches any chain. Returns ErrWalletNotFound when every
// comparison mode misses.
func (r *WalletResolver) Resolve(ctx context.Context, address, blockchain string) (db.Wallet, error) {
	normalized := helpers.NormalizeAddress(address)
	if normalized == "" {
		return db.Wallet{}, ErrWalletNotFound
	}

	wallets, err := r.store.ListWallets(ctx, resolverScanLimit)
	if err != nil {
		return db.Wallet{}, errors.Wrap(err, "failed to list wallets for resolution")
	}

	chain := helpers.ChainForBlockchain(blockchain)

	// Exact match first so a precise address can never lose to a fuzzy
	// cross-match on another wallet.
	for _, w := range wallets {
		if helpers.NormalizeAddress(w.WalletAddress) == normalized && chainMatches(w, blockchain, chain) {
			return w, nil
		}
	}

	// Toggle the 0x prefix.
	toggled := togglePrefix(normalized)
	for _, w := range wallets {
		if helpers.NormalizeAddress(w.WalletAddress) == toggled && chainMatches(w, blockchain, chain) {
			return w, nil
		}
	}

	// Fuzzy: compare only the hex content on both sides.
	stripped := helpers.StripNonHex(normalized)
	if stripped != "" {
		for _, w := range wallets {
			if helpers.StripNonHex(w.WalletAddress) == stripped && chainMatches(w, blockchain, chain) {
				logger.Log.Debug("Wallet resolved via fuzzy address match",
					zap.String("address", address),
					zap.String("walletId", w.ID.String()))
				return w, nil
			}
		}
	}

	return db.Wallet{}, ErrWalletNotFound
}

func chainMatches(w db.Wallet, blockchain string, chain helpers.Chain) bool {
	if blockchain == "" {
		return true
	}
	return helpers.ChainForName(w.Blockchain) == chain
}

func togglePrefix(normalized string) string {
	if strings.HasPrefix(normalized, "0x") {
		return strings.TrimPrefix(normalized, "0x")
	}
	return "0x" + normalized
}
