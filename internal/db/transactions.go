package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const transactionColumns = `id, wallet_id, profile_id, transaction_type, amount::text, currency, status, circle_transaction_id, network_id, network_name, circle_contract_address, description, created_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.WalletID,
		&i.ProfileID,
		&i.TransactionType,
		&i.Amount,
		&i.Currency,
		&i.Status,
		&i.CircleTransactionID,
		&i.NetworkID,
		&i.NetworkName,
		&i.CircleContractAddress,
		&i.Description,
		&i.CreatedAt,
	)
	return i, err
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = $1
`

// GetTransaction looks up a ledger row by its primary key.
func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransaction, id)
	return scanTransaction(row)
}

const getTransactionByCircleID = `-- name: GetTransactionByCircleID :one
SELECT ` + transactionColumns + `
FROM transactions
WHERE circle_transaction_id = $1
`

// GetTransactionByCircleID looks up a ledger row by the remote correlation id
// (a Circle transfer id or a transaction hash, depending on the write path).
func (q *Queries) GetTransactionByCircleID(ctx context.Context, circleTransactionID string) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionByCircleID, circleTransactionID)
	return scanTransaction(row)
}

const updateTransactionStatus = `-- name: UpdateTransactionStatus :exec
UPDATE transactions
SET status = $2
WHERE id = $1
`

// UpdateTransactionStatusParams holds parameters for UpdateTransactionStatus.
type UpdateTransactionStatusParams struct {
	ID     string
	Status string
}

// UpdateTransactionStatus records a remote state transition. Status is the
// only column reconciliation ever mutates on an existing row.
func (q *Queries) UpdateTransactionStatus(ctx context.Context, arg UpdateTransactionStatusParams) error {
	_, err := q.db.Exec(ctx, updateTransactionStatus, arg.ID, arg.Status)
	return err
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (
	id, wallet_id, profile_id, transaction_type, amount, currency, status,
	circle_transaction_id, network_id, network_name, circle_contract_address, description
) VALUES (
	$1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12
)
RETURNING ` + transactionColumns + `
`

// CreateTransactionParams holds parameters for CreateTransaction.
type CreateTransactionParams struct {
	ID                    string
	WalletID              uuid.UUID
	ProfileID             uuid.UUID
	TransactionType       string
	Amount                string
	Currency              pgtype.Text
	Status                string
	CircleTransactionID   string
	NetworkID             pgtype.Int4
	NetworkName           pgtype.Text
	CircleContractAddress pgtype.Text
	Description           pgtype.Text
}

// CreateTransaction inserts a new ledger row. A unique index on
// (wallet_id, circle_transaction_id) backstops concurrent deliveries of the
// same notification; callers should treat a unique violation as a lost race.
func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, createTransaction,
		arg.ID,
		arg.WalletID,
		arg.ProfileID,
		arg.TransactionType,
		arg.Amount,
		arg.Currency,
		arg.Status,
		arg.CircleTransactionID,
		arg.NetworkID,
		arg.NetworkName,
		arg.CircleContractAddress,
		arg.Description,
	)
	return scanTransaction(row)
}
