package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Notification types Circle delivers to the webhook endpoint.
const (
	NotificationTypeTransfers        = "transfers"
	NotificationTypeInboundTransfer  = "modularWallet.inboundTransfer"
	NotificationTypeOutboundTransfer = "modularWallet.outboundTransfer"
	NotificationTypeUserOperation    = "modularWallet.userOperation"
)

// Transfer states. COMPLETE and CONFIRMED are terminal; everything else is a
// transient state that may still transition.
const (
	StateComplete  = "COMPLETE"
	StateConfirmed = "CONFIRMED"
)

// Transaction types recorded on the local ledger.
const (
	TransactionTypeTransferIn  = "USDC_TRANSFER_IN"
	TransactionTypeTransferOut = "USDC_TRANSFER_OUT"
)

// IsTerminalState reports whether a transfer or operation state admits no
// further transitions. Comparison is case-insensitive because the two webhook
// product surfaces disagree on casing.
func IsTerminalState(state string) bool {
	upper := strings.ToUpper(state)
	return upper == StateComplete || upper == StateConfirmed
}

// Envelope is the outer shape of every webhook delivery. The notification
// payload stays raw until the type discriminant selects a concrete shape.
type Envelope struct {
	NotificationType string          `json:"notificationType"`
	Notification     json.RawMessage `json:"notification"`
}

// AddressRef wraps the nested address objects on transfer notifications.
type AddressRef struct {
	Address string `json:"address"`
}

// TransferNotification is the payload for "transfers" deliveries.
type TransferNotification struct {
	ID            string      `json:"id"`
	State         string      `json:"state"`
	WalletAddress string      `json:"walletAddress"`
	Source        *AddressRef `json:"source"`
	Destination   *AddressRef `json:"destination"`
	Amount        string      `json:"amount"`
	TokenAddress  string      `json:"tokenAddress"`
	Blockchain    string      `json:"blockchain"`
	TxHash        string      `json:"txHash"`
}

// RelevantAddress returns the address a balance refresh should target,
// preferring the explicit walletAddress field over the transfer endpoints.
func (n *TransferNotification) RelevantAddress() string {
	if n.WalletAddress != "" {
		return n.WalletAddress
	}
	if n.Destination != nil && n.Destination.Address != "" {
		return n.Destination.Address
	}
	if n.Source != nil {
		return n.Source.Address
	}
	return ""
}

// ModularTransferNotification is the payload for the modular wallet
// inbound/outbound transfer deliveries.
type ModularTransferNotification struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	WalletAddress string `json:"walletAddress"`
	From          string `json:"from"`
	To            string `json:"to"`
	Amount        string `json:"amount"`
	TokenAddress  string `json:"tokenAddress"`
	Blockchain    string `json:"blockchain"`
	TxHash        string `json:"txHash"`
}

// UserOperationNotification is the payload for "modularWallet.userOperation"
// deliveries.
type UserOperationNotification struct {
	ID           string `json:"id"`
	State        string `json:"state"`
	Sender       string `json:"sender"`
	To           string `json:"to"`
	Amount       string `json:"amount"`
	TokenAddress string `json:"tokenAddress"`
	UserOpHash   string `json:"userOpHash"`
	TxHash       string `json:"txHash"`
	Blockchain   string `json:"blockchain"`
}

// ParseEnvelope decodes the outer webhook body. The inner notification is
// validated later, per type, by the reconciler's dispatch.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "failed to parse webhook body")
	}
	if env.NotificationType == "" {
		return nil, errors.New("missing notificationType")
	}
	return &env, nil
}
