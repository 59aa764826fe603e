package reconcile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"coinapp-api/internal/client/circle"
	"coinapp-api/internal/db"
)

type mockFetchStore struct {
	mock.Mock
}

func (m *mockFetchStore) GetTransaction(ctx context.Context, id string) (db.Transaction, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(db.Transaction), args.Error(1)
}

func (m *mockFetchStore) GetTransactionByCircleID(ctx context.Context, circleTransactionID string) (db.Transaction, error) {
	args := m.Called(ctx, circleTransactionID)
	return args.Get(0).(db.Transaction), args.Error(1)
}

func (m *mockFetchStore) GetWallet(ctx context.Context, id uuid.UUID) (db.Wallet, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(db.Wallet), args.Error(1)
}

func (m *mockFetchStore) CreateTransaction(ctx context.Context, arg db.CreateTransactionParams) (db.Transaction, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.Transaction), args.Error(1)
}

type mockRemoteSource struct {
	mock.Mock
}

func (m *mockRemoteSource) GetTransfer(ctx context.Context, transferID string) (*circle.TransferResponse, error) {
	args := m.Called(ctx, transferID)
	if resp := args.Get(0); resp != nil {
		return resp.(*circle.TransferResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRemoteSource) ListTransfers(ctx context.Context, params *circle.ListTransfersParams) (*circle.TransferListResponse, error) {
	args := m.Called(ctx, params)
	if resp := args.Get(0); resp != nil {
		return resp.(*circle.TransferListResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRemoteSource) GetTransactionReceipt(ctx context.Context, blockchain, txHash string) (*circle.TransactionReceiptResponse, error) {
	args := m.Called(ctx, blockchain, txHash)
	if resp := args.Get(0); resp != nil {
		return resp.(*circle.TransactionReceiptResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

const testTxHash = "0x1111111111111111111111111111111111111111111111111111111111111111"

func TestFetch_LocalRowByPrimaryKey(t *testing.T) {
	walletID := uuid.New()
	store := new(mockFetchStore)
	remote := new(mockRemoteSource)
	resolver := new(mockResolver)

	store.On("GetTransaction", mock.Anything, "txn-1").Return(db.Transaction{
		ID:                  "txn-1",
		WalletID:            walletID,
		TransactionType:     "USDC_TRANSFER_IN",
		Amount:              "12.5",
		Status:              "COMPLETE",
		CircleTransactionID: testTxHash,
		NetworkID:           pgtype.Int4{Int32: 80002, Valid: true},
		NetworkName:         pgtype.Text{String: "Polygon Amoy", Valid: true},
	}, nil)
	store.On("GetWallet", mock.Anything, walletID).Return(db.Wallet{
		ID:            walletID,
		WalletAddress: "0xaaa",
	}, nil)

	f := NewTransactionFetcher(store, remote, resolver)
	detail, err := f.Fetch(context.Background(), "txn-1", 80002)

	assert.NoError(t, err)
	assert.Equal(t, "txn-1", detail.ID)
	assert.Equal(t, "complete", detail.State)
	assert.Equal(t, "usdc_transfer_in", detail.TransactionType)
	assert.Equal(t, []string{"12.5"}, detail.Amounts)
	assert.Equal(t, int32(80002), detail.NetworkID)
	assert.Equal(t, "Polygon Amoy", detail.NetworkName)
	assert.Equal(t, testTxHash, detail.TxHash)
	assert.Equal(t, "0xaaa", detail.WalletAddress)
	remote.AssertNotCalled(t, "GetTransfer")
}

func TestFetch_LocalRowByHashUsesCircleIDColumn(t *testing.T) {
	walletID := uuid.New()
	store := new(mockFetchStore)
	remote := new(mockRemoteSource)
	resolver := new(mockResolver)

	store.On("GetTransactionByCircleID", mock.Anything, testTxHash).Return(db.Transaction{
		ID:                  testTxHash,
		WalletID:            walletID,
		TransactionType:     "USDC_TRANSFER_OUT",
		Amount:              "1",
		Status:              "CONFIRMED",
		CircleTransactionID: testTxHash,
	}, nil)
	store.On("GetWallet", mock.Anything, walletID).Return(db.Wallet{}, errors.New("gone"))

	f := NewTransactionFetcher(store, remote, resolver)
	detail, err := f.Fetch(context.Background(), testTxHash, 80002)

	assert.NoError(t, err)
	assert.Equal(t, "confirmed", detail.State)
	// Row carries no network metadata; the query's network fills in.
	assert.Equal(t, int32(80002), detail.NetworkID)
	assert.Equal(t, "MATIC-AMOY", detail.Blockchain)
	assert.Equal(t, "", detail.WalletAddress)
	store.AssertNotCalled(t, "GetTransaction")
}

func TestFetch_RemoteByIDWritesBack(t *testing.T) {
	wallet := db.Wallet{ID: uuid.New(), ProfileID: uuid.New(), Blockchain: "POLYGON", WalletAddress: "0xaaa"}
	store := new(mockFetchStore)
	remote := new(mockRemoteSource)
	resolver := new(mockResolver)

	store.On("GetTransaction", mock.Anything, "transfer-1").Return(db.Transaction{}, pgx.ErrNoRows)

	resp := &circle.TransferResponse{}
	resp.Data.Transfer = circle.Transfer{
		ID:            "transfer-1",
		WalletAddress: "0xaaa",
		Amount:        "5",
		State:         "COMPLETE",
		TxHash:        testTxHash,
		Blockchain:    "MATIC-AMOY",
	}
	remote.On("GetTransfer", mock.Anything, "transfer-1").Return(resp, nil)
	resolver.On("Resolve", mock.Anything, "0xaaa", "MATIC-AMOY").Return(wallet, nil)
	store.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(arg db.CreateTransactionParams) bool {
		return arg.ID == "transfer-1" && arg.CircleTransactionID == testTxHash && arg.Amount == "5"
	})).Return(db.Transaction{}, nil)

	f := NewTransactionFetcher(store, remote, resolver)
	detail, err := f.Fetch(context.Background(), "transfer-1", 80002)

	assert.NoError(t, err)
	assert.Equal(t, "transfer-1", detail.ID)
	assert.Equal(t, "complete", detail.State)
	assert.Equal(t, []string{"5"}, detail.Amounts)
	store.AssertExpectations(t)
}

func TestFetch_WriteBackFailureDoesNotFailFetch(t *testing.T) {
	store := new(mockFetchStore)
	remote := new(mockRemoteSource)
	resolver := new(mockResolver)

	store.On("GetTransaction", mock.Anything, "transfer-1").Return(db.Transaction{}, pgx.ErrNoRows)

	resp := &circle.TransferResponse{}
	resp.Data.Transfer = circle.Transfer{ID: "transfer-1", From: "0xstranger", State: "COMPLETE"}
	remote.On("GetTransfer", mock.Anything, "transfer-1").Return(resp, nil)
	resolver.On("Resolve", mock.Anything, "0xstranger", "").Return(db.Wallet{}, ErrWalletNotFound)

	f := NewTransactionFetcher(store, remote, resolver)
	detail, err := f.Fetch(context.Background(), "transfer-1", 80002)

	assert.NoError(t, err)
	assert.Equal(t, "transfer-1", detail.ID)
	store.AssertNotCalled(t, "CreateTransaction")
}

func TestFetch_RemoteByHashAfterDirectMiss(t *testing.T) {
	store := new(mockFetchStore)
	remote := new(mockRemoteSource)
	resolver := new(mockResolver)

	store.On("GetTransactionByCircleID", mock.Anything, testTxHash).Return(db.Transaction{}, pgx.ErrNoRows)
	remote.On("GetTransfer", mock.Anything, testTxHash).Return(nil, errors.New("404"))

	list := &circle.TransferListResponse{}
	list.Data.Transfers = []circle.Transfer{{
		ID:     "transfer-2",
		From:   "0xstranger",
		Amount: "3",
		State:  "COMPLETE",
		TxHash: testTxHash,
	}}
	remote.On("ListTransfers", mock.Anything, mock.MatchedBy(func(params *circle.ListTransfersParams) bool {
		return params.TxHash != nil && *params.TxHash == testTxHash
	})).Return(list, nil)
	resolver.On("Resolve", mock.Anything, "0xstranger", "").Return(db.Wallet{}, ErrWalletNotFound)

	f := NewTransactionFetcher(store, remote, resolver)
	detail, err := f.Fetch(context.Background(), testTxHash, 80002)

	assert.NoError(t, err)
	assert.Equal(t, "transfer-2", detail.ID)
	assert.Equal(t, testTxHash, detail.TxHash)
}

func TestFetch_ReceiptFallbackMapsOutcome(t *testing.T) {
	store := new(mockFetchStore)
	remote := new(mockRemoteSource)
	resolver := new(mockResolver)

	store.On("GetTransactionByCircleID", mock.Anything, testTxHash).Return(db.Transaction{}, pgx.ErrNoRows)
	remote.On("GetTransfer", mock.Anything, testTxHash).Return(nil, errors.New("404"))
	remote.On("ListTransfers", mock.Anything, mock.Anything).Return(&circle.TransferListResponse{}, nil)

	receipt := &circle.TransactionReceiptResponse{}
	receipt.Data = circle.TransactionReceipt{
		TransactionHash:   testTxHash,
		From:              "0xstranger",
		To:                "0xcontract",
		Status:            "0x1",
		GasUsed:           "21000",
		EffectiveGasPrice: "1500000000",
	}
	remote.On("GetTransactionReceipt", mock.Anything, "MATIC-AMOY", testTxHash).Return(receipt, nil)
	resolver.On("Resolve", mock.Anything, "0xstranger", "").Return(db.Wallet{}, ErrWalletNotFound)

	f := NewTransactionFetcher(store, remote, resolver)
	detail, err := f.Fetch(context.Background(), testTxHash, 80002)

	assert.NoError(t, err)
	assert.Equal(t, "confirmed", detail.State)
	assert.Equal(t, "contract_interaction", detail.TransactionType)
	assert.Equal(t, "21000", detail.GasUsed)
	assert.Equal(t, "0xcontract", detail.To)
	store.AssertNotCalled(t, "CreateTransaction")
}

func TestFetch_FailedReceiptStateMapsToFailed(t *testing.T) {
	wallet := db.Wallet{ID: uuid.New(), ProfileID: uuid.New()}
	store := new(mockFetchStore)
	remote := new(mockRemoteSource)
	resolver := new(mockResolver)

	store.On("GetTransactionByCircleID", mock.Anything, testTxHash).Return(db.Transaction{}, pgx.ErrNoRows)
	remote.On("GetTransfer", mock.Anything, testTxHash).Return(nil, errors.New("404"))
	remote.On("ListTransfers", mock.Anything, mock.Anything).Return(&circle.TransferListResponse{}, nil)

	receipt := &circle.TransactionReceiptResponse{}
	receipt.Data = circle.TransactionReceipt{TransactionHash: testTxHash, From: "0xaaa", Status: "0x0"}
	remote.On("GetTransactionReceipt", mock.Anything, "MATIC-AMOY", testTxHash).Return(receipt, nil)
	resolver.On("Resolve", mock.Anything, "0xaaa", "").Return(wallet, nil)
	store.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(arg db.CreateTransactionParams) bool {
		return arg.Status == "failed" && arg.Currency.String == "UNKNOWN"
	})).Return(db.Transaction{}, nil)

	f := NewTransactionFetcher(store, remote, resolver)
	detail, err := f.Fetch(context.Background(), testTxHash, 80002)

	assert.NoError(t, err)
	assert.Equal(t, "failed", detail.State)
	store.AssertExpectations(t)
}

func TestFetch_CascadeMissReturnsNotFound(t *testing.T) {
	store := new(mockFetchStore)
	remote := new(mockRemoteSource)
	resolver := new(mockResolver)

	store.On("GetTransactionByCircleID", mock.Anything, testTxHash).Return(db.Transaction{}, pgx.ErrNoRows)
	remote.On("GetTransfer", mock.Anything, testTxHash).Return(nil, errors.New("404"))
	remote.On("ListTransfers", mock.Anything, mock.Anything).Return(&circle.TransferListResponse{}, nil)
	remote.On("GetTransactionReceipt", mock.Anything, "MATIC-AMOY", testTxHash).
		Return(nil, errors.New("404"))

	f := NewTransactionFetcher(store, remote, resolver)
	detail, err := f.Fetch(context.Background(), testTxHash, 80002)

	assert.Nil(t, detail)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestFetch_NonHashIDSkipsHashStrategies(t *testing.T) {
	store := new(mockFetchStore)
	remote := new(mockRemoteSource)
	resolver := new(mockResolver)

	store.On("GetTransaction", mock.Anything, "txn-missing").Return(db.Transaction{}, pgx.ErrNoRows)
	remote.On("GetTransfer", mock.Anything, "txn-missing").Return(nil, errors.New("404"))

	f := NewTransactionFetcher(store, remote, resolver)
	_, err := f.Fetch(context.Background(), "txn-missing", 80002)

	assert.ErrorIs(t, err, ErrTransactionNotFound)
	remote.AssertNotCalled(t, "ListTransfers")
	remote.AssertNotCalled(t, "GetTransactionReceipt")
}
