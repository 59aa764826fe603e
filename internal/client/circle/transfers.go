package circle

import (
	"context"
	"fmt"
	"time"

	httpClient "coinapp-api/internal/client/http"
)

// Transfer represents a Circle transfer record
type Transfer struct {
	ID            string `json:"id"`
	WalletID      string `json:"walletId"`
	WalletAddress string `json:"walletAddress"`
	From          string `json:"from"`
	FromAddress   string `json:"fromAddress"`
	To            string `json:"to"`
	ToAddress     string `json:"toAddress"`
	Amount        string `json:"amount"`
	Blockchain    string `json:"blockchain"`
	State         string `json:"state"`
	TokenID       string `json:"tokenId"`
	TokenAddress  string `json:"tokenAddress"`
	TransferType  string `json:"transferType"`
	TxHash        string `json:"txHash"`
	UserOpHash    string `json:"userOpHash"`
	CreateDate    string `json:"createDate"`
	UpdateDate    string `json:"updateDate"`
}

// SourceAddress returns the best-known sender address. The API populates
// either from or fromAddress depending on the transfer type.
func (t *Transfer) SourceAddress() string {
	if t.FromAddress != "" {
		return t.FromAddress
	}
	return t.From
}

// DestinationAddress returns the best-known recipient address.
func (t *Transfer) DestinationAddress() string {
	if t.ToAddress != "" {
		return t.ToAddress
	}
	return t.To
}

// TransferResponse represents the response from getting a single transfer
type TransferResponse struct {
	Data struct {
		Transfer Transfer `json:"transfer"`
	} `json:"data"`
}

// GetTransfer retrieves a transfer by its Circle id
func (c *CircleClient) GetTransfer(ctx context.Context, transferID string) (*TransferResponse, error) {
	if transferID == "" {
		return nil, fmt.Errorf("transfer ID is required")
	}

	resp, err := c.httpClient.Get(
		ctx,
		fmt.Sprintf("transfers/%s", transferID),
		httpClient.WithBearerToken(c.apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}

	var response TransferResponse
	if err := c.httpClient.ProcessJSONResponse(resp, &response); err != nil {
		return nil, fmt.Errorf("failed to process transfer response: %w", err)
	}

	return &response, nil
}

// TransferListResponse represents the response from listing transfers
type TransferListResponse struct {
	Data struct {
		Transfers  []Transfer `json:"transfers"`
		HasMore    bool       `json:"hasMore"`
		PageAfter  string     `json:"pageAfter"`
		PageBefore string     `json:"pageBefore"`
	} `json:"data"`
}

// ListTransfersParams represents query parameters for listing transfers
type ListTransfersParams struct {
	WalletAddresses *string
	Blockchain      *string
	TxHash          *string
	From            *time.Time
	To              *time.Time
	PageSize        *int
	PageAfter       *string
	PageBefore      *string
}

// ListTransfers retrieves transfers matching the specified parameters.
// Supports filtering by wallet address, blockchain and transaction hash, plus
// cursor pagination.
func (c *CircleClient) ListTransfers(ctx context.Context, params *ListTransfersParams) (*TransferListResponse, error) {
	options := []httpClient.RequestOption{
		httpClient.WithBearerToken(c.apiKey),
	}

	if params != nil {
		if params.WalletAddresses != nil && *params.WalletAddresses != "" {
			options = append(options, httpClient.WithQueryParam("walletAddresses", *params.WalletAddresses))
		}
		if params.Blockchain != nil && *params.Blockchain != "" {
			options = append(options, httpClient.WithQueryParam("blockchain", *params.Blockchain))
		}
		if params.TxHash != nil && *params.TxHash != "" {
			options = append(options, httpClient.WithQueryParam("txHash", *params.TxHash))
		}
		if params.From != nil {
			options = append(options, httpClient.WithQueryParam("from", params.From.Format(time.RFC3339)))
		}
		if params.To != nil {
			options = append(options, httpClient.WithQueryParam("to", params.To.Format(time.RFC3339)))
		}
		if params.PageSize != nil {
			options = append(options, httpClient.WithQueryParam("pageSize", fmt.Sprintf("%d", *params.PageSize)))
		}
		if params.PageAfter != nil && *params.PageAfter != "" {
			options = append(options, httpClient.WithQueryParam("pageAfter", *params.PageAfter))
		}
		if params.PageBefore != nil && *params.PageBefore != "" {
			options = append(options, httpClient.WithQueryParam("pageBefore", *params.PageBefore))
		}
	}

	resp, err := c.httpClient.Get(
		ctx,
		"transfers",
		options...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}

	var response TransferListResponse
	if err := c.httpClient.ProcessJSONResponse(resp, &response); err != nil {
		return nil, fmt.Errorf("failed to process transfer list response: %w", err)
	}

	return &response, nil
}

// TransactionReceipt represents an on-chain receipt lookup. It carries the
// least information of any lookup path: status and gas but no amounts.
type TransactionReceipt struct {
	TransactionHash   string `json:"transactionHash"`
	From              string `json:"from"`
	To                string `json:"to"`
	Status            string `json:"status"`
	GasUsed           string `json:"gasUsed"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
	BlockNumber       string `json:"blockNumber"`
}

// Succeeded reports whether the receipt's EVM status marks the transaction as
// successful.
func (r *TransactionReceipt) Succeeded() bool {
	return r.Status == "0x1"
}

// TransactionReceiptResponse represents the response from the receipt endpoint
type TransactionReceiptResponse struct {
	Data TransactionReceipt `json:"data"`
}

// GetTransactionReceipt retrieves the on-chain receipt for a transaction hash
func (c *CircleClient) GetTransactionReceipt(ctx context.Context, blockchain, txHash string) (*TransactionReceiptResponse, error) {
	if txHash == "" {
		return nil, fmt.Errorf("transaction hash is required")
	}
	if err := ValidateBlockchains([]string{blockchain}); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(
		ctx,
		fmt.Sprintf("transactions/%s/%s/receipt", blockchain, txHash),
		httpClient.WithBearerToken(c.apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}

	var response TransactionReceiptResponse
	if err := c.httpClient.ProcessJSONResponse(resp, &response); err != nil {
		return nil, fmt.Errorf("failed to process transaction receipt response: %w", err)
	}

	return &response, nil
}
