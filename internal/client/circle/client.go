package circle

import (
	"fmt"

	httpClient "coinapp-api/internal/client/http"
)

const (
	// CircleAPIBaseURL is the base for the Buidl wallet endpoints
	CircleAPIBaseURL = "https://api.circle.com/v1/w3s/buidl"

	// CircleNotificationsBaseURL is the base for webhook notification key lookups
	CircleNotificationsBaseURL = "https://api.circle.com/v2/notifications"
)

// Blockchain constants for use with the Circle API
const (
	BlockchainMATICAmoy   = "MATIC-AMOY"
	BlockchainBASESepolia = "BASE-SEPOLIA"
)

// AllBlockchains is a slice containing all supported blockchain values
var AllBlockchains = []string{
	BlockchainMATICAmoy, BlockchainBASESepolia,
}

// ValidateBlockchains checks if the provided blockchains are valid
// Returns an error if no blockchains are provided or if any blockchain is invalid
func ValidateBlockchains(blockchains []string) error {
	if len(blockchains) == 0 {
		return fmt.Errorf("at least one blockchain must be specified")
	}

	validBlockchains := make(map[string]bool)
	for _, chain := range AllBlockchains {
		validBlockchains[chain] = true
	}

	for _, chain := range blockchains {
		if !validBlockchains[chain] {
			return fmt.Errorf("invalid blockchain specified: %s", chain)
		}
	}

	return nil
}

// CircleClient talks to the Circle Buidl wallet API and the notifications API.
type CircleClient struct {
	apiKey              string
	httpClient          *httpClient.HTTPClient
	notificationsClient *httpClient.HTTPClient
}

// ClientOption configures a CircleClient.
type ClientOption func(*CircleClient)

// WithHTTPClient overrides the Buidl API transport. Used by tests to point the
// client at an httptest server.
func WithHTTPClient(hc *httpClient.HTTPClient) ClientOption {
	return func(c *CircleClient) {
		c.httpClient = hc
	}
}

// WithNotificationsClient overrides the notifications API transport.
func WithNotificationsClient(hc *httpClient.HTTPClient) ClientOption {
	return func(c *CircleClient) {
		c.notificationsClient = hc
	}
}

// NewCircleClient creates a client authenticated with the given API key.
func NewCircleClient(apiKey string, options ...ClientOption) *CircleClient {
	c := &CircleClient{
		apiKey: apiKey,
		httpClient: httpClient.NewHTTPClient(
			httpClient.WithBaseURL(CircleAPIBaseURL),
		),
		notificationsClient: httpClient.NewHTTPClient(
			httpClient.WithBaseURL(CircleNotificationsBaseURL),
		),
	}
	for _, option := range options {
		option(c)
	}
	return c
}
