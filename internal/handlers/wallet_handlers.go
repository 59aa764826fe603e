package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"coinapp-api/internal/db"
	"coinapp-api/internal/helpers"
	"coinapp-api/internal/logger"
)

// WalletHandler handles wallet-related operations
type WalletHandler struct {
	common *CommonServices
}

// NewWalletHandler creates a new WalletHandler instance
func NewWalletHandler(common *CommonServices) *WalletHandler {
	return &WalletHandler{common: common}
}

// BalanceRequest represents the request body for a balance query
type BalanceRequest struct {
	WalletID   string `json:"walletId" binding:"required"`
	Blockchain string `json:"blockchain" binding:"required"`
}

// BalanceResponse represents the balance query response
type BalanceResponse struct {
	Balance string `json:"balance"`
}

// GetBalance refreshes and returns the wallet's USDC balance. Balance
// lookups never hard-fail once the wallet row is found; an unreachable
// provider resolves to "0".
func (h *WalletHandler) GetBalance(c *gin.Context) {
	var req BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid walletId format", err)
		return
	}
	chain, ok := helpers.ParseChain(req.Blockchain)
	if !ok {
		sendError(c, http.StatusBadRequest, "Invalid walletId format", errors.Errorf("unsupported blockchain %q", req.Blockchain))
		return
	}

	wallet, err := h.common.db.GetWalletByAddressAndBlockchain(c.Request.Context(), db.GetWalletByAddressAndBlockchainParams{
		WalletAddress: strings.ToLower(req.WalletID),
		Blockchain:    string(chain),
	})
	if err != nil {
		handleDBError(c, err, "Wallet not found in database")
		return
	}

	balance := h.common.balances.Refresh(c.Request.Context(), wallet, wallet.Blockchain)
	sendSuccess(c, http.StatusOK, BalanceResponse{Balance: balance})
}

// SetupWalletsRequest represents the request body for passkey wallet setup
type SetupWalletsRequest struct {
	Credential    string `json:"credential" binding:"required"`
	CircleAddress string `json:"circleAddress"`
}

// SetupWalletsResponse represents the wallet setup response
type SetupWalletsResponse struct {
	Message        string `json:"message"`
	PolygonAddress string `json:"polygonAddress"`
	BaseAddress    string `json:"baseAddress"`
	Success        bool   `json:"success"`
	RedirectURL    string `json:"redirectUrl"`
}

var publicKeyPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40,}$`)

// SetupWallets creates or rewrites the profile's wallet pair at passkey
// registration time. One smart account address serves both chains, so the
// Polygon and Base rows share the address and credential.
func (h *WalletHandler) SetupWallets(c *gin.Context) {
	var req SetupWalletsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Credential is required", err)
		return
	}

	profile, ok := h.common.currentProfile(c)
	if !ok {
		return
	}

	walletAddress := req.CircleAddress
	if walletAddress == "" {
		address, err := addressFromCredential(req.Credential)
		if err != nil {
			sendError(c, http.StatusInternalServerError, "Failed to set up wallets", err)
			return
		}
		walletAddress = address
	}

	credential := pgtype.Text{String: req.Credential, Valid: true}
	circleWalletID := pgtype.Text{String: walletAddress, Valid: true}

	existing, err := h.common.db.GetWalletsByProfileID(c.Request.Context(), profile.ID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to set up wallets", err)
		return
	}

	if len(existing) > 0 {
		for _, wallet := range existing {
			if wallet.Blockchain != string(helpers.ChainPolygon) && wallet.Blockchain != string(helpers.ChainBase) {
				continue
			}
			if _, err := h.common.db.UpdateWalletCredential(c.Request.Context(), db.UpdateWalletCredentialParams{
				ID:                wallet.ID,
				WalletAddress:     walletAddress,
				CircleWalletID:    circleWalletID,
				PasskeyCredential: credential,
			}); err != nil {
				logger.Log.Error("Failed to update wallet during setup",
					zap.String("walletId", wallet.ID.String()),
					zap.String("blockchain", wallet.Blockchain),
					zap.Error(err))
			}
		}
	} else {
		for _, chain := range []helpers.Chain{helpers.ChainPolygon, helpers.ChainBase} {
			if _, err := h.common.db.CreateWallet(c.Request.Context(), db.CreateWalletParams{
				ProfileID:         profile.ID,
				Blockchain:        string(chain),
				WalletAddress:     walletAddress,
				CircleWalletID:    circleWalletID,
				PasskeyCredential: credential,
			}); err != nil {
				sendError(c, http.StatusInternalServerError, "Could not create wallets", err)
				return
			}
		}
	}

	sendSuccess(c, http.StatusCreated, SetupWalletsResponse{
		Message:        "Wallets created successfully",
		PolygonAddress: walletAddress,
		BaseAddress:    walletAddress,
		Success:        true,
		RedirectURL:    "/dashboard",
	})
}

// addressFromCredential derives the wallet address from the registered
// passkey's public key when the client did not supply a provider-generated
// address.
func addressFromCredential(credential string) (string, error) {
	var parsed struct {
		PublicKey string `json:"publicKey"`
	}
	if err := json.Unmarshal([]byte(credential), &parsed); err != nil {
		return "", errors.Wrap(err, "failed to parse credential")
	}
	if !publicKeyPattern.MatchString(parsed.PublicKey) {
		return "", errors.Errorf("invalid public key format: %s", parsed.PublicKey)
	}
	return strings.ToLower(parsed.PublicKey[:42]), nil
}

// CredentialResponse represents the stored passkey credential
type CredentialResponse struct {
	Credential string `json:"credential"`
}

// GetCredential returns the authenticated user's stored passkey credential.
func (h *WalletHandler) GetCredential(c *gin.Context) {
	profile, ok := h.common.currentProfile(c)
	if !ok {
		return
	}

	wallets, err := h.common.db.GetWalletsByProfileID(c.Request.Context(), profile.ID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal server error", err)
		return
	}
	if len(wallets) == 0 {
		sendError(c, http.StatusNotFound, "Wallet not found in database", nil)
		return
	}
	if !wallets[0].PasskeyCredential.Valid || wallets[0].PasskeyCredential.String == "" {
		sendError(c, http.StatusNotFound, "Passkey credential not found for user", nil)
		return
	}

	sendSuccess(c, http.StatusOK, CredentialResponse{Credential: wallets[0].PasskeyCredential.String})
}

// UpdateCredentialRequest represents the request body for a credential update
type UpdateCredentialRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// UpdateCredential replaces the stored passkey credential after a passkey
// re-registration.
func (h *WalletHandler) UpdateCredential(c *gin.Context) {
	var req UpdateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid credential format", err)
		return
	}

	profile, ok := h.common.currentProfile(c)
	if !ok {
		return
	}

	if err := h.common.db.UpdateCredentialByProfile(c.Request.Context(), db.UpdateCredentialByProfileParams{
		ProfileID:         profile.ID,
		PasskeyCredential: pgtype.Text{String: req.Credential, Valid: true},
	}); err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to update credential in database", err)
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{"success": true})
}
