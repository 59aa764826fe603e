package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"coinapp-api/internal/client/circle"
	"coinapp-api/internal/helpers"
	"coinapp-api/internal/reconcile"
)

// TransactionHandler handles transaction listing and detail lookups
type TransactionHandler struct {
	common *CommonServices
}

// NewTransactionHandler creates a new TransactionHandler instance
func NewTransactionHandler(common *CommonServices) *TransactionHandler {
	return &TransactionHandler{common: common}
}

// ListTransactionsRequest represents the request body for listing transactions
type ListTransactionsRequest struct {
	WalletID   string `json:"walletId" binding:"required"`
	NetworkID  *int32 `json:"networkId"`
	PageSize   *int   `json:"pageSize"`
	PageAfter  string `json:"pageAfter"`
	PageBefore string `json:"pageBefore"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// TransactionListItem is one entry in the transaction list response
type TransactionListItem struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Amount          string `json:"amount"`
	Timestamp       string `json:"timestamp"`
	NetworkID       int32  `json:"networkId"`
	NetworkName     string `json:"networkName"`
	State           string `json:"state"`
	TransactionType string `json:"transactionType"`
	TokenID         string `json:"tokenId"`
	TransferType    string `json:"transferType"`
	UserOpHash      string `json:"userOpHash"`
	UpdateDate      string `json:"updateDate"`
	ID              string `json:"id"`
}

// Pagination carries the cursor state from the provider's response
type Pagination struct {
	HasMore    bool   `json:"hasMore"`
	PageAfter  string `json:"pageAfter,omitempty"`
	PageBefore string `json:"pageBefore,omitempty"`
}

// ListTransactionsResponse represents the transaction list response
type ListTransactionsResponse struct {
	Transactions []TransactionListItem `json:"transactions"`
	Pagination   Pagination            `json:"pagination"`
}

// ListTransactions proxies the provider's transfer history for a wallet
// address, classifying each transfer as sent or received relative to the
// queried wallet.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var req ListTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request parameters", err)
		return
	}
	if !helpers.IsAddressValid(req.WalletID) {
		sendError(c, http.StatusBadRequest, "Invalid request parameters",
			errors.New("invalid Ethereum wallet address format"))
		return
	}

	networkID := helpers.NetworkIDPolygonAmoy
	if req.NetworkID != nil {
		networkID = *req.NetworkID
	}
	blockchain, ok := helpers.BlockchainForNetworkID(networkID)
	if !ok {
		sendError(c, http.StatusBadRequest, fmt.Sprintf("Unsupported network ID: %d", networkID), nil)
		return
	}

	pageSize := 50
	if req.PageSize != nil {
		pageSize = *req.PageSize
	}

	params := &circle.ListTransfersParams{
		WalletAddresses: &req.WalletID,
		Blockchain:      &blockchain,
		PageSize:        &pageSize,
	}
	if req.PageAfter != "" {
		params.PageAfter = &req.PageAfter
	}
	if req.PageBefore != "" {
		params.PageBefore = &req.PageBefore
	}
	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			sendError(c, http.StatusBadRequest, "Invalid request parameters", err)
			return
		}
		params.From = &from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			sendError(c, http.StatusBadRequest, "Invalid request parameters", err)
			return
		}
		params.To = &to
	}

	resp, err := h.common.circle.ListTransfers(c.Request.Context(), params)
	if err != nil {
		sendError(c, http.StatusBadGateway, "Failed to fetch transfers", err)
		return
	}

	networkName := helpers.NetworkNameForID(networkID)
	queried := strings.ToLower(req.WalletID)
	items := make([]TransactionListItem, 0, len(resp.Data.Transfers))
	for _, transfer := range resp.Data.Transfers {
		transactionType := "received"
		if strings.ToLower(transfer.SourceAddress()) == queried {
			transactionType = "sent"
		}
		items = append(items, TransactionListItem{
			Hash:            transfer.TxHash,
			From:            transfer.FromAddress,
			To:              transfer.ToAddress,
			Amount:          transfer.Amount,
			Timestamp:       transfer.CreateDate,
			NetworkID:       networkID,
			NetworkName:     networkName,
			State:           transfer.State,
			TransactionType: transactionType,
			TokenID:         transfer.TokenID,
			TransferType:    transfer.TransferType,
			UserOpHash:      transfer.UserOpHash,
			UpdateDate:      transfer.UpdateDate,
			ID:              transfer.ID,
		})
	}

	sendSuccess(c, http.StatusOK, ListTransactionsResponse{
		Transactions: items,
		Pagination: Pagination{
			HasMore:    resp.Data.HasMore,
			PageAfter:  resp.Data.PageAfter,
			PageBefore: resp.Data.PageBefore,
		},
	})
}

// GetTransaction resolves a single transaction by id or hash through the
// fetch cascade.
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id := c.Param("id")

	networkID := helpers.NetworkIDPolygonAmoy
	if raw := c.Query("networkId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			sendError(c, http.StatusBadRequest, fmt.Sprintf("Unsupported network ID: %s", raw), err)
			return
		}
		networkID = int32(parsed)
	}
	if _, ok := helpers.BlockchainForNetworkID(networkID); !ok {
		sendError(c, http.StatusBadRequest, fmt.Sprintf("Unsupported network ID: %d", networkID), nil)
		return
	}

	detail, err := h.common.fetcher.Fetch(c.Request.Context(), id, networkID)
	if err != nil {
		if errors.Is(err, reconcile.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Transaction not found"})
			return
		}
		sendError(c, http.StatusInternalServerError, "Internal server error while fetching transaction", err)
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{"transaction": detail})
}
