package db

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Profile is a row in the profiles table. Authentication itself is delegated
// to Supabase; auth_user_id links back to its user record.
type Profile struct {
	ID         uuid.UUID
	AuthUserID uuid.UUID
	Email      pgtype.Text
	CreatedAt  pgtype.Timestamptz
	UpdatedAt  pgtype.Timestamptz
}

// Wallet is a row in the wallets table. Balances are read and written as
// decimal strings; the column is numeric. wallet_address is the natural
// external key for matching but is not canonically cased at write time, so
// lookups must tolerate case and 0x-prefix variance.
type Wallet struct {
	ID                uuid.UUID
	ProfileID         uuid.UUID
	Blockchain        string
	WalletAddress     string
	CircleWalletID    pgtype.Text
	Balance           string
	PasskeyCredential pgtype.Text
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

// Transaction is a row in the transactions ledger. The id is the remote
// transfer id when one is available; circle_transaction_id carries the remote
// correlation id or transaction hash. status mirrors the remote state
// vocabulary and is not normalized.
type Transaction struct {
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
	CreatedAt             pgtype.Timestamptz
}
