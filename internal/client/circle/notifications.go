package circle

import (
	"context"
	"fmt"

	httpClient "coinapp-api/internal/client/http"
)

// PublicKeyResponse represents the response from the notification public key endpoint
type PublicKeyResponse struct {
	Data struct {
		ID         string `json:"id"`
		Algorithm  string `json:"algorithm"`
		PublicKey  string `json:"publicKey"`
		CreateDate string `json:"createDate"`
	} `json:"data"`
}

// GetNotificationPublicKey retrieves the public key Circle signs webhook
// payloads with. Keys rotate, so the key id from the delivery headers selects
// which one to fetch.
func (c *CircleClient) GetNotificationPublicKey(ctx context.Context, keyID string) (*PublicKeyResponse, error) {
	if keyID == "" {
		return nil, fmt.Errorf("key ID is required")
	}

	resp, err := c.notificationsClient.Get(
		ctx,
		fmt.Sprintf("publicKey/%s", keyID),
		httpClient.WithBearerToken(c.apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification public key: %w", err)
	}
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}

	var response PublicKeyResponse
	if err := c.httpClient.ProcessJSONResponse(resp, &response); err != nil {
		return nil, fmt.Errorf("failed to process public key response: %w", err)
	}

	return &response, nil
}
