package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"coinapp-api/internal/client/circle"
	"coinapp-api/internal/client/stripe"
	"coinapp-api/internal/db"
	"coinapp-api/internal/logger"
	"coinapp-api/internal/reconcile"
)

// CommonServices holds common dependencies used across handlers
type CommonServices struct {
	db         *db.Queries
	circle     *circle.CircleClient
	onramp     *stripe.OnrampClient
	verifier   *reconcile.SignatureVerifier
	reconciler *reconcile.Reconciler
	balances   *reconcile.BalanceSyncClient
	fetcher    *reconcile.TransactionFetcher
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// NewCommonServices creates a new instance of CommonServices
func NewCommonServices(
	queries *db.Queries,
	circleClient *circle.CircleClient,
	onramp *stripe.OnrampClient,
	verifier *reconcile.SignatureVerifier,
	reconciler *reconcile.Reconciler,
	balances *reconcile.BalanceSyncClient,
	fetcher *reconcile.TransactionFetcher,
) *CommonServices {
	return &CommonServices{
		db:         queries,
		circle:     circleClient,
		onramp:     onramp,
		verifier:   verifier,
		reconciler: reconciler,
		balances:   balances,
		fetcher:    fetcher,
	}
}

// sendError is a helper function that combines logging and error response
// It logs the error with the given message and sends a JSON error response
func sendError(c *gin.Context, statusCode int, message string, err error) {
	logger.Log.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// handleDBError is a helper function that handles database errors and returns appropriate HTTP status codes
func handleDBError(c *gin.Context, err error, notFoundMsg string) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		sendError(c, http.StatusNotFound, notFoundMsg, err)
	default:
		sendError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// sendSuccess is a helper function that sends a success response
func sendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// currentProfile resolves the authenticated Supabase user to their profile
// row. Writes the error response itself; callers return on !ok.
func (s *CommonServices) currentProfile(c *gin.Context) (db.Profile, bool) {
	supabaseID := c.GetString("supabase_id")
	if supabaseID == "" {
		sendError(c, http.StatusUnauthorized, "Not authenticated", nil)
		return db.Profile{}, false
	}
	authUserID, err := uuid.Parse(supabaseID)
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid user ID in session", err)
		return db.Profile{}, false
	}
	profile, err := s.db.GetProfileByAuthUserID(c.Request.Context(), authUserID)
	if err != nil {
		handleDBError(c, err, "Profile not found for user")
		return db.Profile{}, false
	}
	return profile, true
}
