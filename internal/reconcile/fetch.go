package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"coinapp-api/internal/client/circle"
	"coinapp-api/internal/db"
	"coinapp-api/internal/helpers"
	"coinapp-api/internal/logger"
)

// ErrTransactionNotFound is returned when every lookup strategy in the fetch
// cascade comes up empty.
var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionDetail is the normalized shape every lookup strategy resolves
// into, local or remote.
type TransactionDetail struct {
	ID              string   `json:"id"`
	Amounts         []string `json:"amounts"`
	State           string   `json:"state"`
	CreateDate      string   `json:"createDate"`
	Blockchain      string   `json:"blockchain"`
	TransactionType string   `json:"transactionType"`
	UpdateDate      string   `json:"updateDate"`
	Description     string   `json:"description"`
	NetworkID       int32    `json:"networkId"`
	NetworkName     string   `json:"networkName"`
	From            string   `json:"from"`
	To              string   `json:"to"`
	GasUsed         string   `json:"gasUsed"`
	GasPrice        string   `json:"gasPrice"`
	TxHash          string   `json:"txHash"`
	WalletID        string   `json:"walletId"`
	WalletAddress   string   `json:"walletAddress"`
	TokenAddress    string   `json:"tokenAddress"`
}

// FetchStore is the ledger access the fetcher needs: local lookups plus the
// opportunistic write-back insert.
type FetchStore interface {
	GetTransaction(ctx context.Context, id string) (db.Transaction, error)
	GetTransactionByCircleID(ctx context.Context, circleTransactionID string) (db.Transaction, error)
	GetWallet(ctx context.Context, id uuid.UUID) (db.Wallet, error)
	CreateTransaction(ctx context.Context, arg db.CreateTransactionParams) (db.Transaction, error)
}

// RemoteTransactionSource is the slice of the Circle API the fetch cascade
// queries.
type RemoteTransactionSource interface {
	GetTransfer(ctx context.Context, transferID string) (*circle.TransferResponse, error)
	ListTransfers(ctx context.Context, params *circle.ListTransfersParams) (*circle.TransferListResponse, error)
	GetTransactionReceipt(ctx context.Context, blockchain, txHash string) (*circle.TransactionReceiptResponse, error)
}

// TransactionFetcher resolves a single transaction by id or hash through a
// cascade of strategies: local ledger, direct remote lookup, remote hash
// search, then the bare receipt. Remote hits are written back into the local
// ledger when the involved wallet is known, so the next lookup stays local.
type TransactionFetcher struct {
	store    FetchStore
	remote   RemoteTransactionSource
	resolver AddressResolver
}

// NewTransactionFetcher creates a fetcher.
func NewTransactionFetcher(store FetchStore, remote RemoteTransactionSource, resolver AddressResolver) *TransactionFetcher {
	return &TransactionFetcher{store: store, remote: remote, resolver: resolver}
}

// Fetch runs the lookup cascade for id on the network identified by
// networkID (already validated by the caller). Returns
// ErrTransactionNotFound when every strategy misses.
func (f *TransactionFetcher) Fetch(ctx context.Context, id string, networkID int32) (*TransactionDetail, error) {
	if detail := f.fetchLocal(ctx, id, networkID); detail != nil {
		return detail, nil
	}
	if detail := f.fetchRemoteByID(ctx, id, networkID); detail != nil {
		return detail, nil
	}
	if helpers.IsTransactionHash(id) {
		if detail := f.fetchRemoteByHash(ctx, id, networkID); detail != nil {
			return detail, nil
		}
		if detail := f.fetchReceipt(ctx, id, networkID); detail != nil {
			return detail, nil
		}
	}
	return nil, ErrTransactionNotFound
}

// fetchLocal checks the ledger first. Hash-shaped ids live in the
// circle_transaction_id column; anything else is a primary key.
func (f *TransactionFetcher) fetchLocal(ctx context.Context, id string, networkID int32) *TransactionDetail {
	var (
		tx  db.Transaction
		err error
	)
	if strings.HasPrefix(id, "0x") {
		tx, err = f.store.GetTransactionByCircleID(ctx, id)
	} else {
		tx, err = f.store.GetTransaction(ctx, id)
	}
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			logger.Log.Error("Local transaction lookup failed", zap.String("id", id), zap.Error(err))
		}
		return nil
	}

	rowNetworkID := networkID
	if tx.NetworkID.Valid {
		rowNetworkID = tx.NetworkID.Int32
	}
	blockchain, ok := helpers.BlockchainForNetworkID(rowNetworkID)
	if !ok {
		blockchain, _ = helpers.BlockchainForNetworkID(networkID)
	}
	networkName := tx.NetworkName.String
	if networkName == "" {
		networkName = helpers.NetworkNameForID(networkID)
	}

	createDate := time.Now().UTC().Format(time.RFC3339)
	if tx.CreatedAt.Valid {
		createDate = tx.CreatedAt.Time.UTC().Format(time.RFC3339)
	}
	description := tx.Description.String
	if description == "" {
		description = tx.TransactionType + " on " + networkName
	}

	walletAddress := ""
	if wallet, walletErr := f.store.GetWallet(ctx, tx.WalletID); walletErr == nil {
		walletAddress = wallet.WalletAddress
	}

	return &TransactionDetail{
		ID:              tx.ID,
		Amounts:         []string{tx.Amount},
		State:           strings.ToLower(tx.Status),
		CreateDate:      createDate,
		Blockchain:      blockchain,
		TransactionType: strings.ToLower(tx.TransactionType),
		UpdateDate:      createDate,
		Description:     description,
		NetworkID:       rowNetworkID,
		NetworkName:     networkName,
		From:            walletAddress,
		To:              "",
		GasUsed:         "N/A",
		GasPrice:        "N/A",
		TxHash:          tx.CircleTransactionID,
		WalletID:        tx.WalletID.String(),
		WalletAddress:   walletAddress,
		TokenAddress:    tx.CircleContractAddress.String,
	}
}

func (f *TransactionFetcher) fetchRemoteByID(ctx context.Context, id string, networkID int32) *TransactionDetail {
	resp, err := f.remote.GetTransfer(ctx, id)
	if err != nil || resp.Data.Transfer.ID == "" {
		return nil
	}
	transfer := resp.Data.Transfer
	detail := f.detailFromTransfer(&transfer, networkID)
	f.writeBack(ctx, &transfer, networkID)
	return detail
}

func (f *TransactionFetcher) fetchRemoteByHash(ctx context.Context, txHash string, networkID int32) *TransactionDetail {
	resp, err := f.remote.ListTransfers(ctx, &circle.ListTransfersParams{TxHash: &txHash})
	if err != nil || len(resp.Data.Transfers) == 0 {
		return nil
	}
	transfer := resp.Data.Transfers[0]
	detail := f.detailFromTransfer(&transfer, networkID)
	f.writeBack(ctx, &transfer, networkID)
	return detail
}

// fetchReceipt is the last resort. A receipt knows nothing about amounts,
// only outcome, gas and the endpoint addresses.
func (f *TransactionFetcher) fetchReceipt(ctx context.Context, txHash string, networkID int32) *TransactionDetail {
	blockchain, _ := helpers.BlockchainForNetworkID(networkID)
	resp, err := f.remote.GetTransactionReceipt(ctx, blockchain, txHash)
	if err != nil || resp.Data.TransactionHash == "" {
		return nil
	}
	receipt := resp.Data

	state := "failed"
	if receipt.Succeeded() {
		state = "confirmed"
	}
	networkName := helpers.NetworkNameForID(networkID)
	now := time.Now().UTC().Format(time.RFC3339)

	detail := &TransactionDetail{
		ID:              receipt.TransactionHash,
		Amounts:         []string{"0"},
		State:           state,
		CreateDate:      now,
		Blockchain:      blockchain,
		TransactionType: "contract_interaction",
		UpdateDate:      now,
		Description:     "Transaction on " + networkName,
		NetworkID:       networkID,
		NetworkName:     networkName,
		From:            receipt.From,
		To:              receipt.To,
		GasUsed:         receipt.GasUsed,
		GasPrice:        receipt.EffectiveGasPrice,
		TxHash:          receipt.TransactionHash,
	}

	if wallet, resolveErr := f.resolver.Resolve(ctx, receipt.From, ""); resolveErr == nil {
		f.insertBestEffort(ctx, db.CreateTransactionParams{
			ID:                  receipt.TransactionHash,
			WalletID:            wallet.ID,
			ProfileID:           wallet.ProfileID,
			TransactionType:     "contract_interaction",
			Amount:              "0",
			Currency:            pgText("UNKNOWN"),
			Status:              state,
			CircleTransactionID: receipt.TransactionHash,
			NetworkID:           pgtype.Int4{Int32: networkID, Valid: true},
			NetworkName:         pgText(networkName),
			Description:         pgText("Transaction on " + networkName),
		})
	}
	return detail
}

func (f *TransactionFetcher) detailFromTransfer(transfer *circle.Transfer, networkID int32) *TransactionDetail {
	blockchain := transfer.Blockchain
	if blockchain == "" {
		blockchain, _ = helpers.BlockchainForNetworkID(networkID)
	}
	networkName := helpers.NetworkNameForID(networkID)

	transactionType := transfer.TransferType
	if transactionType == "" {
		transactionType = "transfer"
	}
	amount := transfer.Amount
	if amount == "" {
		amount = "0"
	}
	state := transfer.State
	if state == "" {
		state = "unknown"
	}
	now := time.Now().UTC().Format(time.RFC3339)
	createDate := transfer.CreateDate
	if createDate == "" {
		createDate = now
	}
	updateDate := transfer.UpdateDate
	if updateDate == "" {
		updateDate = now
	}

	return &TransactionDetail{
		ID:              transfer.ID,
		Amounts:         []string{amount},
		State:           strings.ToLower(state),
		CreateDate:      createDate,
		Blockchain:      blockchain,
		TransactionType: strings.ToLower(transactionType),
		UpdateDate:      updateDate,
		Description:     transactionType + " on " + blockchain,
		NetworkID:       networkID,
		NetworkName:     networkName,
		From:            transfer.SourceAddress(),
		To:              transfer.DestinationAddress(),
		GasUsed:         "N/A",
		GasPrice:        "N/A",
		TxHash:          transfer.TxHash,
		WalletID:        transfer.WalletID,
		WalletAddress:   transfer.WalletAddress,
		TokenAddress:    transfer.TokenAddress,
	}
}

// writeBack caches a remote transfer into the local ledger. Backfill is
// best-effort caching, not the source of truth; failure is logged only.
func (f *TransactionFetcher) writeBack(ctx context.Context, transfer *circle.Transfer, networkID int32) {
	address := transfer.WalletAddress
	if address == "" {
		address = transfer.SourceAddress()
	}
	wallet, err := f.resolver.Resolve(ctx, address, transfer.Blockchain)
	if err != nil {
		logger.Log.Warn("No local wallet for fetched transfer, skipping write-back",
			zap.String("transferId", transfer.ID))
		return
	}

	transactionType := transfer.TransferType
	if transactionType == "" {
		transactionType = "transfer"
	}
	amount := transfer.Amount
	if amount == "" {
		amount = "0"
	}
	status := transfer.State
	if status == "" {
		status = "unknown"
	}
	correlationID := transfer.TxHash
	if correlationID == "" {
		correlationID = transfer.ID
	}
	networkName := helpers.NetworkNameForID(networkID)

	f.insertBestEffort(ctx, db.CreateTransactionParams{
		ID:                    transfer.ID,
		WalletID:              wallet.ID,
		ProfileID:             wallet.ProfileID,
		TransactionType:       transactionType,
		Amount:                amount,
		Currency:              pgText("USDC"),
		Status:                status,
		CircleTransactionID:   correlationID,
		NetworkID:             pgtype.Int4{Int32: networkID, Valid: true},
		NetworkName:           pgText(networkName),
		CircleContractAddress: pgText(transfer.TokenAddress),
		Description:           pgText(transactionType + " on " + transfer.Blockchain),
	})
}

func (f *TransactionFetcher) insertBestEffort(ctx context.Context, params db.CreateTransactionParams) {
	if _, err := f.store.CreateTransaction(ctx, params); err != nil {
		if db.IsUniqueViolation(err) {
			return
		}
		logger.Log.Warn("Failed to write back fetched transaction",
			zap.String("id", params.ID),
			zap.Error(err))
	}
}
