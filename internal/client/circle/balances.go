package circle

import (
	"context"
	"fmt"
	"time"

	httpClient "coinapp-api/internal/client/http"

	"github.com/google/uuid"
)

// Token describes the token side of a balance entry
type Token struct {
	ID           string    `json:"id"`
	Blockchain   string    `json:"blockchain"`
	TokenAddress string    `json:"tokenAddress"`
	Standard     string    `json:"standard"`
	Name         string    `json:"name"`
	Symbol       string    `json:"symbol"`
	Decimals     int       `json:"decimals"`
	IsNative     bool      `json:"isNative"`
	UpdateDate   time.Time `json:"updateDate"`
	CreateDate   time.Time `json:"createDate"`
}

// TokenBalance is one entry in a wallet's balance list
type TokenBalance struct {
	Token      Token  `json:"token"`
	Amount     string `json:"amount"`
	UpdateDate string `json:"updateDate"`
}

// WalletBalancesResponse represents the response from the wallet balances endpoint
type WalletBalancesResponse struct {
	Data struct {
		TokenBalances []TokenBalance `json:"tokenBalances"`
	} `json:"data"`
}

// GetWalletBalances retrieves token balances for a wallet address on a given
// blockchain. The address variant of the endpoint is used (rather than the
// wallet-id variant) because webhook notifications only carry addresses.
func (c *CircleClient) GetWalletBalances(ctx context.Context, blockchain, walletAddress string) (*WalletBalancesResponse, error) {
	if walletAddress == "" {
		return nil, fmt.Errorf("wallet address is required")
	}
	if err := ValidateBlockchains([]string{blockchain}); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(
		ctx,
		fmt.Sprintf("wallets/%s/%s/balances", blockchain, walletAddress),
		httpClient.WithBearerToken(c.apiKey),
		httpClient.WithHeader("X-Request-Id", uuid.NewString()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet balances: %w", err)
	}
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}

	var response WalletBalancesResponse
	if err := c.httpClient.ProcessJSONResponse(resp, &response); err != nil {
		return nil, fmt.Errorf("failed to process wallet balances response: %w", err)
	}

	return &response, nil
}

// USDCAmount extracts the USDC balance from a balances response. A missing
// USDC entry is a valid steady state and reads as "0".
func (r *WalletBalancesResponse) USDCAmount() string {
	for _, balance := range r.Data.TokenBalances {
		if balance.Token.Symbol == "USDC" {
			if balance.Amount == "" {
				return "0"
			}
			return balance.Amount
		}
	}
	return "0"
}
