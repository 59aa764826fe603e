package stripe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v82"
)

// OnrampSession mirrors the crypto onramp session resource. The stripe-go SDK
// does not model the crypto onramp endpoints, so calls go through the raw
// backend the way other unversioned resources do.
type OnrampSession struct {
	stripe.APIResource
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// OnrampSessionTransactionDetailsParams describe the requested onramp purchase.
type OnrampSessionTransactionDetailsParams struct {
	WalletAddress                *string   `form:"wallet_address"`
	DestinationCurrency          *string   `form:"destination_currency"`
	DestinationExchangeAmount    *string   `form:"destination_exchange_amount"`
	DestinationNetwork           *string   `form:"destination_network"`
	SupportedDestinationNetworks []*string `form:"supported_destination_networks"`
}

// OnrampSessionParams is the parameter set for creating an onramp session.
type OnrampSessionParams struct {
	stripe.Params      `form:"*"`
	TransactionDetails *OnrampSessionTransactionDetailsParams `form:"transaction_details"`
}

// OnrampClient creates Stripe crypto onramp sessions.
type OnrampClient struct {
	key     string
	backend stripe.Backend
}

// NewOnrampClient returns a client authenticated with the given secret key.
func NewOnrampClient(apiKey string) *OnrampClient {
	return &OnrampClient{
		key:     apiKey,
		backend: stripe.GetBackend(stripe.APIBackend),
	}
}

// CreateOnrampSession creates a crypto onramp session and returns its client
// secret for the embedded checkout widget.
func (c *OnrampClient) CreateOnrampSession(ctx context.Context, params *OnrampSessionParams) (*OnrampSession, error) {
	if params == nil || params.TransactionDetails == nil {
		return nil, fmt.Errorf("transaction details are required")
	}
	params.Context = ctx

	session := &OnrampSession{}
	if err := c.backend.Call(http.MethodPost, "/v1/crypto/onramp_sessions", c.key, params, session); err != nil {
		return nil, fmt.Errorf("failed to create onramp session: %w", err)
	}
	return session, nil
}
