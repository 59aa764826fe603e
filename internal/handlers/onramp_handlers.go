package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	sdk "github.com/stripe/stripe-go/v82"

	"coinapp-api/internal/client/stripe"
	"coinapp-api/internal/db"
	"coinapp-api/internal/helpers"
)

// OnrampHandler handles Stripe crypto onramp session creation
type OnrampHandler struct {
	common *CommonServices
}

// NewOnrampHandler creates a new OnrampHandler instance
func NewOnrampHandler(common *CommonServices) *OnrampHandler {
	return &OnrampHandler{common: common}
}

// OnrampRequest represents the request body for creating an onramp session
type OnrampRequest struct {
	Chain string `json:"chain"`
}

// OnrampResponse carries the client secret for the embedded onramp widget
type OnrampResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// CreateOnrampSession creates a Stripe crypto onramp session targeting the
// authenticated user's wallet on the requested chain.
func (h *OnrampHandler) CreateOnrampSession(c *gin.Context) {
	var req OnrampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	profile, ok := h.common.currentProfile(c)
	if !ok {
		return
	}

	blockchain := strings.ToUpper(req.Chain)
	if blockchain == "" {
		blockchain = string(helpers.ChainPolygon)
	}

	wallet, err := h.common.db.GetWalletByProfileAndBlockchain(c.Request.Context(), db.GetWalletByProfileAndBlockchainParams{
		ProfileID:  profile.ID,
		Blockchain: blockchain,
	})
	if err != nil {
		handleDBError(c, err, "Wallet not found")
		return
	}

	session, err := h.common.onramp.CreateOnrampSession(c.Request.Context(), &stripe.OnrampSessionParams{
		TransactionDetails: &stripe.OnrampSessionTransactionDetailsParams{
			WalletAddress:             sdk.String(wallet.WalletAddress),
			DestinationCurrency:       sdk.String("usdc"),
			DestinationExchangeAmount: sdk.String("10"),
			DestinationNetwork:        sdk.String(req.Chain),
			SupportedDestinationNetworks: []*string{
				sdk.String("base"),
				sdk.String("polygon"),
			},
		},
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal server error while requesting Stripe onramp url", err)
		return
	}

	sendSuccess(c, http.StatusOK, OnrampResponse{ClientSecret: session.ClientSecret})
}
