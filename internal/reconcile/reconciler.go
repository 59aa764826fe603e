package reconcile

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"coinapp-api/internal/db"
	"coinapp-api/internal/helpers"
	"coinapp-api/internal/logger"
	"coinapp-api/internal/metrics"
)

// TransactionStore is the slice of the ledger the reconciler writes through.
type TransactionStore interface {
	GetTransactionByCircleID(ctx context.Context, circleTransactionID string) (db.Transaction, error)
	CreateTransaction(ctx context.Context, arg db.CreateTransactionParams) (db.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, arg db.UpdateTransactionStatusParams) error
}

// AddressResolver maps notification addresses to local wallet rows.
type AddressResolver interface {
	Resolve(ctx context.Context, address, blockchain string) (db.Wallet, error)
}

// BalanceRefresher triggers an authoritative balance pull for a wallet.
type BalanceRefresher interface {
	Refresh(ctx context.Context, wallet db.Wallet, chainName string) string
}

// errNotTerminal signals a delivery in a non-terminal state: there is nothing
// to record yet, so Process counts it as dropped rather than processed.
var errNotTerminal = errors.New("notification state is not terminal")

// Reconciler merges webhook notifications into the local ledger. Each
// notification runs through authenticate (done by the caller), attribute,
// persist, then an optional balance refresh; a failure at any stage is
// logged and the notification dropped, never bubbled up to the webhook
// response.
type Reconciler struct {
	store    TransactionStore
	resolver AddressResolver
	balances BalanceRefresher
}

// NewReconciler creates a reconciler.
func NewReconciler(store TransactionStore, resolver AddressResolver, balances BalanceRefresher) *Reconciler {
	return &Reconciler{store: store, resolver: resolver, balances: balances}
}

// Process dispatches a verified notification to its type handler. The
// returned error is for logging and metrics only; webhook handlers must
// acknowledge the delivery regardless, or the provider retries a
// notification we will never handle differently.
func (r *Reconciler) Process(ctx context.Context, env *Envelope) error {
	var err error
	switch env.NotificationType {
	case NotificationTypeTransfers:
		err = r.processTransfer(ctx, env.Notification)
	case NotificationTypeUserOperation:
		err = r.processUserOperation(ctx, env.Notification)
	case NotificationTypeInboundTransfer:
		err = r.processModularTransfer(ctx, env.Notification, true)
	case NotificationTypeOutboundTransfer:
		err = r.processModularTransfer(ctx, env.Notification, false)
	default:
		metrics.WebhookNotificationsTotal.WithLabelValues(env.NotificationType, "unrecognized").Inc()
		logger.Log.Warn("Dropping unrecognized notification type",
			zap.String("notificationType", env.NotificationType))
		return nil
	}

	if errors.Is(err, errNotTerminal) {
		metrics.WebhookNotificationsTotal.WithLabelValues(env.NotificationType, "dropped").Inc()
		return nil
	}
	if err != nil {
		metrics.WebhookNotificationsTotal.WithLabelValues(env.NotificationType, "failed").Inc()
		logger.Log.Error("Failed to reconcile notification",
			zap.String("notificationType", env.NotificationType),
			zap.Error(err))
		return err
	}
	metrics.WebhookNotificationsTotal.WithLabelValues(env.NotificationType, "processed").Inc()
	return nil
}

func (r *Reconciler) processTransfer(ctx context.Context, raw json.RawMessage) error {
	var n TransferNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return errors.Wrap(err, "failed to parse transfers notification")
	}
	if n.ID == "" {
		return errors.New("transfers notification missing id")
	}

	existing, err := r.store.GetTransactionByCircleID(ctx, n.ID)
	switch {
	case err == nil:
		if existing.Status != n.State {
			if err := r.store.UpdateTransactionStatus(ctx, db.UpdateTransactionStatusParams{
				ID:     existing.ID,
				Status: n.State,
			}); err != nil {
				return errors.Wrap(err, "failed to update transfer status")
			}
		}
	case errors.Is(err, pgx.ErrNoRows):
		// First sighting of this transfer. Attribution requires a local
		// wallet; transfers touching no known wallet are dropped.
		wallet, resolveErr := r.resolver.Resolve(ctx, n.RelevantAddress(), n.Blockchain)
		if resolveErr != nil {
			logger.Log.Warn("No local wallet for transfer notification, dropping",
				zap.String("transferId", n.ID),
				zap.String("address", n.RelevantAddress()))
			return nil
		}
		if err := r.upsertTransaction(ctx, wallet, r.transferDirection(wallet, &n), upsertParams{
			correlationID: n.ID,
			state:         n.State,
			amount:        n.Amount,
			tokenAddress:  n.TokenAddress,
			blockchain:    n.Blockchain,
		}); err != nil {
			return err
		}
	default:
		return errors.Wrap(err, "failed to look up transfer")
	}

	if !IsTerminalState(n.State) {
		return nil
	}
	address := n.RelevantAddress()
	if address == "" {
		return nil
	}
	wallet, err := r.resolver.Resolve(ctx, address, n.Blockchain)
	if err != nil {
		logger.Log.Warn("No wallet to refresh for completed transfer",
			zap.String("transferId", n.ID),
			zap.String("address", address))
		return nil
	}
	r.balances.Refresh(ctx, wallet, string(helpers.ChainForBlockchain(n.Blockchain)))
	return nil
}

func (r *Reconciler) processUserOperation(ctx context.Context, raw json.RawMessage) error {
	var n UserOperationNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return errors.Wrap(err, "failed to parse userOperation notification")
	}

	// Non-terminal operations are dropped without a trace; the terminal
	// delivery carries everything needed to record them.
	if !IsTerminalState(n.State) {
		return errNotTerminal
	}

	wallet, err := r.resolver.Resolve(ctx, n.Sender, n.Blockchain)
	if err != nil {
		// Sender-unresolvable operations are lost, not queued. Accepted
		// limitation: the wallet was created outside this system.
		logger.Log.Error("No local wallet for userOperation sender, dropping",
			zap.String("sender", n.Sender),
			zap.String("userOpHash", n.UserOpHash))
		return nil
	}

	correlationID := n.TxHash
	if correlationID == "" {
		correlationID = n.UserOpHash
	}
	if correlationID == "" {
		logger.Log.Error("userOperation notification carries no transaction hash",
			zap.String("sender", n.Sender))
	} else {
		// Operations are assumed outbound; the wallet signs and pays for
		// them, so inbound value via a user operation does not occur here.
		if err := r.upsertTransaction(ctx, wallet, TransactionTypeTransferOut, upsertParams{
			correlationID: correlationID,
			state:         n.State,
			amount:        n.Amount,
			tokenAddress:  n.TokenAddress,
			blockchain:    n.Blockchain,
		}); err != nil {
			return err
		}
	}

	r.balances.Refresh(ctx, wallet, string(helpers.ChainForBlockchain(n.Blockchain)))
	return nil
}

func (r *Reconciler) processModularTransfer(ctx context.Context, raw json.RawMessage, inbound bool) error {
	var n ModularTransferNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return errors.Wrap(err, "failed to parse modular transfer notification")
	}

	if !IsTerminalState(n.State) {
		return errNotTerminal
	}

	transactionType := TransactionTypeTransferOut
	if inbound {
		transactionType = TransactionTypeTransferIn
	}

	relevant := n.WalletAddress
	if relevant == "" {
		if inbound {
			relevant = n.To
		} else {
			relevant = n.From
		}
	}
	if relevant == "" {
		return errors.Errorf("no address in %s notification", transactionType)
	}

	wallet, err := r.resolver.Resolve(ctx, relevant, n.Blockchain)
	if err != nil {
		// The primary address missed. The counterparty side or the
		// explicit walletAddress may still name a wallet we track.
		other := n.To
		if inbound {
			other = n.From
		}
		wallet, err = r.resolveFallback(ctx, []string{other, n.WalletAddress}, relevant, n.Blockchain)
		if err != nil {
			logger.Log.Error("No local wallet for modular transfer, dropping",
				zap.String("address", relevant),
				zap.String("txHash", n.TxHash))
			return nil
		}
	}

	if n.TxHash == "" {
		return errors.New("modular transfer notification missing txHash")
	}
	if err := r.upsertTransaction(ctx, wallet, transactionType, upsertParams{
		correlationID: n.TxHash,
		state:         n.State,
		amount:        n.Amount,
		tokenAddress:  n.TokenAddress,
		blockchain:    n.Blockchain,
	}); err != nil {
		return err
	}

	r.balances.Refresh(ctx, wallet, string(helpers.ChainForBlockchain(n.Blockchain)))
	return nil
}

func (r *Reconciler) resolveFallback(ctx context.Context, candidates []string, alreadyTried, blockchain string) (db.Wallet, error) {
	for _, address := range candidates {
		if address == "" || address == alreadyTried {
			continue
		}
		wallet, err := r.resolver.Resolve(ctx, address, blockchain)
		if err == nil {
			return wallet, nil
		}
	}
	return db.Wallet{}, ErrWalletNotFound
}

// transferDirection classifies a generic transfer relative to the resolved
// wallet: incoming when the wallet sits on the destination side. Transfers
// with no endpoint information default to incoming.
func (r *Reconciler) transferDirection(wallet db.Wallet, n *TransferNotification) string {
	walletHex := helpers.StripNonHex(helpers.NormalizeAddress(wallet.WalletAddress))
	if n.Source != nil && helpers.StripNonHex(helpers.NormalizeAddress(n.Source.Address)) == walletHex {
		return TransactionTypeTransferOut
	}
	return TransactionTypeTransferIn
}

type upsertParams struct {
	correlationID string
	state         string
	amount        string
	tokenAddress  string
	blockchain    string
}

// upsertTransaction is the shared insert-or-update path. Repeat notifications
// for a correlation id only ever move the status column; everything else on
// the row is immutable after the first write.
//
// The read-then-write is racy across concurrent deliveries of the same
// notification. The unique index on (wallet_id, circle_transaction_id)
// backstops the race; a unique violation here means another delivery won the
// insert, so this one retries as a status update.
func (r *Reconciler) upsertTransaction(ctx context.Context, wallet db.Wallet, transactionType string, p upsertParams) error {
	existing, err := r.store.GetTransactionByCircleID(ctx, p.correlationID)
	if err == nil {
		if existing.Status == p.state {
			return nil
		}
		return errors.Wrap(r.store.UpdateTransactionStatus(ctx, db.UpdateTransactionStatusParams{
			ID:     existing.ID,
			Status: p.state,
		}), "failed to update transaction status")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrap(err, "failed to look up transaction")
	}

	networkName, networkID := helpers.NetworkMetadataForBlockchain(p.blockchain)
	amount := p.amount
	if amount == "" {
		amount = "0"
	}
	verb := "Sent"
	if transactionType == TransactionTypeTransferIn {
		verb = "Received"
	}

	_, err = r.store.CreateTransaction(ctx, db.CreateTransactionParams{
		ID:                    p.correlationID,
		WalletID:              wallet.ID,
		ProfileID:             wallet.ProfileID,
		TransactionType:       transactionType,
		Amount:                amount,
		Currency:              pgText("USDC"),
		Status:                p.state,
		CircleTransactionID:   p.correlationID,
		NetworkID:             pgtype.Int4{Int32: networkID, Valid: true},
		NetworkName:           pgText(networkName),
		CircleContractAddress: pgText(p.tokenAddress),
		Description:           pgText(verb + " USDC via " + networkName),
	})
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err) {
		existing, lookupErr := r.store.GetTransactionByCircleID(ctx, p.correlationID)
		if lookupErr != nil {
			return errors.Wrap(lookupErr, "failed to re-read transaction after insert race")
		}
		if existing.Status == p.state {
			return nil
		}
		return errors.Wrap(r.store.UpdateTransactionStatus(ctx, db.UpdateTransactionStatusParams{
			ID:     existing.ID,
			Status: p.state,
		}), "failed to update transaction status after insert race")
	}
	return errors.Wrap(err, "failed to create transaction")
}

func pgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
