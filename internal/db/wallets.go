package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const walletColumns = `id, profile_id, blockchain, wallet_address, circle_wallet_id, balance::text, passkey_credential, created_at, updated_at`

func scanWallet(row interface{ Scan(...interface{}) error }) (Wallet, error) {
	var i Wallet
	err := row.Scan(
		&i.ID,
		&i.ProfileID,
		&i.Blockchain,
		&i.WalletAddress,
		&i.CircleWalletID,
		&i.Balance,
		&i.PasskeyCredential,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listWallets = `-- name: ListWallets :many
SELECT ` + walletColumns + `
FROM wallets
ORDER BY created_at
LIMIT $1
`

// ListWallets returns a capped page of wallets. The wallet resolver scans
// this page client-side because its matching rules (prefix and fuzzy modes)
// are not expressible as a simple equality filter. Known scaling ceiling:
// acceptable only while the wallet table stays small.
func (q *Queries) ListWallets(ctx context.Context, limit int32) ([]Wallet, error) {
	rows, err := q.db.Query(ctx, listWallets, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Wallet
	for rows.Next() {
		i, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getWallet = `-- name: GetWallet :one
SELECT ` + walletColumns + `
FROM wallets
WHERE id = $1
`

// GetWallet looks up a wallet row by its primary key.
func (q *Queries) GetWallet(ctx context.Context, id uuid.UUID) (Wallet, error) {
	row := q.db.QueryRow(ctx, getWallet, id)
	return scanWallet(row)
}

const getWalletByAddressAndBlockchain = `-- name: GetWalletByAddressAndBlockchain :one
SELECT ` + walletColumns + `
FROM wallets
WHERE lower(wallet_address) = lower($1) AND blockchain = $2
`

// GetWalletByAddressAndBlockchainParams holds parameters for GetWalletByAddressAndBlockchain.
type GetWalletByAddressAndBlockchainParams struct {
	WalletAddress string
	Blockchain    string
}

// GetWalletByAddressAndBlockchain performs the indexed exact lookup used by
// the balance endpoint.
func (q *Queries) GetWalletByAddressAndBlockchain(ctx context.Context, arg GetWalletByAddressAndBlockchainParams) (Wallet, error) {
	row := q.db.QueryRow(ctx, getWalletByAddressAndBlockchain, arg.WalletAddress, arg.Blockchain)
	return scanWallet(row)
}

const getWalletsByProfileID = `-- name: GetWalletsByProfileID :many
SELECT ` + walletColumns + `
FROM wallets
WHERE profile_id = $1
ORDER BY blockchain
`

// GetWalletsByProfileID returns all wallets owned by a profile.
func (q *Queries) GetWalletsByProfileID(ctx context.Context, profileID uuid.UUID) ([]Wallet, error) {
	rows, err := q.db.Query(ctx, getWalletsByProfileID, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Wallet
	for rows.Next() {
		i, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getWalletByProfileAndBlockchain = `-- name: GetWalletByProfileAndBlockchain :one
SELECT ` + walletColumns + `
FROM wallets
WHERE profile_id = $1 AND blockchain = $2
`

// GetWalletByProfileAndBlockchainParams holds parameters for GetWalletByProfileAndBlockchain.
type GetWalletByProfileAndBlockchainParams struct {
	ProfileID  uuid.UUID
	Blockchain string
}

// GetWalletByProfileAndBlockchain returns the profile's wallet for one chain.
// At most one exists per (profile_id, blockchain).
func (q *Queries) GetWalletByProfileAndBlockchain(ctx context.Context, arg GetWalletByProfileAndBlockchainParams) (Wallet, error) {
	row := q.db.QueryRow(ctx, getWalletByProfileAndBlockchain, arg.ProfileID, arg.Blockchain)
	return scanWallet(row)
}

const createWallet = `-- name: CreateWallet :one
INSERT INTO wallets (profile_id, blockchain, wallet_address, circle_wallet_id, passkey_credential)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + walletColumns + `
`

// CreateWalletParams holds parameters for CreateWallet.
type CreateWalletParams struct {
	ProfileID         uuid.UUID
	Blockchain        string
	WalletAddress     string
	CircleWalletID    pgtype.Text
	PasskeyCredential pgtype.Text
}

// CreateWallet inserts a new wallet row at onboarding time.
func (q *Queries) CreateWallet(ctx context.Context, arg CreateWalletParams) (Wallet, error) {
	row := q.db.QueryRow(ctx, createWallet,
		arg.ProfileID,
		arg.Blockchain,
		arg.WalletAddress,
		arg.CircleWalletID,
		arg.PasskeyCredential,
	)
	return scanWallet(row)
}

const updateWalletCredential = `-- name: UpdateWalletCredential :one
UPDATE wallets
SET wallet_address = $2,
    circle_wallet_id = $3,
    passkey_credential = $4,
    updated_at = now()
WHERE id = $1
RETURNING ` + walletColumns + `
`

// UpdateWalletCredentialParams holds parameters for UpdateWalletCredential.
type UpdateWalletCredentialParams struct {
	ID                uuid.UUID
	WalletAddress     string
	CircleWalletID    pgtype.Text
	PasskeyCredential pgtype.Text
}

// UpdateWalletCredential rewrites the address and passkey credential of an
// existing wallet, used when a passkey is re-registered.
func (q *Queries) UpdateWalletCredential(ctx context.Context, arg UpdateWalletCredentialParams) (Wallet, error) {
	row := q.db.QueryRow(ctx, updateWalletCredential,
		arg.ID,
		arg.WalletAddress,
		arg.CircleWalletID,
		arg.PasskeyCredential,
	)
	return scanWallet(row)
}

const updateCredentialByProfile = `-- name: UpdateCredentialByProfile :exec
UPDATE wallets
SET passkey_credential = $2,
    updated_at = now()
WHERE profile_id = $1
`

// UpdateCredentialByProfileParams holds parameters for UpdateCredentialByProfile.
type UpdateCredentialByProfileParams struct {
	ProfileID         uuid.UUID
	PasskeyCredential pgtype.Text
}

// UpdateCredentialByProfile replaces the stored passkey credential on every
// wallet a profile owns. Both chain wallets share one credential.
func (q *Queries) UpdateCredentialByProfile(ctx context.Context, arg UpdateCredentialByProfileParams) error {
	_, err := q.db.Exec(ctx, updateCredentialByProfile, arg.ProfileID, arg.PasskeyCredential)
	return err
}

const updateWalletBalance = `-- name: UpdateWalletBalance :exec
UPDATE wallets
SET balance = $1::numeric,
    updated_at = now()
WHERE circle_wallet_id = $2 AND blockchain = $3
`

// UpdateWalletBalanceParams holds parameters for UpdateWalletBalance.
type UpdateWalletBalanceParams struct {
	Balance        string
	CircleWalletID string
	Blockchain     string
}

// UpdateWalletBalance writes a freshly fetched balance through to the local
// cache, keyed the way the balance sync client addresses wallets.
func (q *Queries) UpdateWalletBalance(ctx context.Context, arg UpdateWalletBalanceParams) error {
	_, err := q.db.Exec(ctx, updateWalletBalance, arg.Balance, arg.CircleWalletID, arg.Blockchain)
	return err
}
