package helpers

import "strings"

// Chain is the local blockchain identifier stored on wallet rows.
type Chain string

const (
	ChainPolygon Chain = "POLYGON"
	ChainBase    Chain = "BASE"
)

// ParseChain maps a user-supplied chain name ("polygon"/"base", any case) to
// the stored identifier. The second return is false for anything else.
func ParseChain(s string) (Chain, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ChainPolygon):
		return ChainPolygon, true
	case string(ChainBase):
		return ChainBase, true
	default:
		return "", false
	}
}

// BlockchainForChain converts a local chain/network name to Circle's
// blockchain parameter. Unknown names deliberately fall back to the Polygon
// testnet rather than erroring; wallets created before the chain column was
// populated reliably carry free-text network names.
func BlockchainForChain(name string) string {
	normalized := strings.ToLower(name)
	if strings.Contains(normalized, "polygon") {
		return "MATIC-AMOY"
	}
	if strings.Contains(normalized, "base") {
		return "BASE-SEPOLIA"
	}
	return "MATIC-AMOY"
}

// AlternateBlockchain returns the other supported Circle blockchain. The
// balance sync client retries against it when the first chain's endpoint
// fails, treating cross-chain mislabeling as the most likely transient cause.
func AlternateBlockchain(blockchain string) string {
	if strings.Contains(blockchain, "MATIC") {
		return "BASE-SEPOLIA"
	}
	return "MATIC-AMOY"
}

// ChainForBlockchain maps a Circle blockchain tag from a notification back to
// the local chain identifier.
func ChainForBlockchain(blockchain string) Chain {
	if strings.Contains(blockchain, "MATIC") {
		return ChainPolygon
	}
	return ChainBase
}

// ChainForName maps a stored network name, in any of its historical shapes
// ("POLYGON", "Polygon Amoy", "base"), to the chain identifier. Unknown
// names default to Polygon, matching the rest of the chain fallbacks.
func ChainForName(name string) Chain {
	normalized := strings.ToLower(name)
	if strings.Contains(normalized, "polygon") || strings.Contains(normalized, "matic") {
		return ChainPolygon
	}
	if strings.Contains(normalized, "base") {
		return ChainBase
	}
	return ChainPolygon
}

// NetworkMetadataForBlockchain derives the display name and numeric id
// recorded on reconciled ledger rows from a notification's blockchain tag.
func NetworkMetadataForBlockchain(blockchain string) (name string, id int32) {
	if strings.Contains(blockchain, "MATIC") {
		return "Polygon Amoy", 80002
	}
	return "Base Sepolia", 421614
}

// Chain ids accepted by the transaction list/detail endpoints.
const (
	NetworkIDPolygonAmoy int32 = 80002
	NetworkIDBaseSepolia int32 = 84532
)

// BlockchainForNetworkID maps a request networkId to Circle's blockchain
// parameter. The second return is false for unsupported networks.
func BlockchainForNetworkID(networkID int32) (string, bool) {
	switch networkID {
	case NetworkIDPolygonAmoy:
		return "MATIC-AMOY", true
	case NetworkIDBaseSepolia:
		return "BASE-SEPOLIA", true
	default:
		return "", false
	}
}

// NetworkNameForID returns the display name for a supported networkId.
func NetworkNameForID(networkID int32) string {
	switch networkID {
	case NetworkIDPolygonAmoy:
		return "Polygon Amoy"
	case NetworkIDBaseSepolia:
		return "Base Sepolia"
	default:
		return ""
	}
}
