package server

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"coinapp-api/internal/client/aws"
	"coinapp-api/internal/client/circle"
	httpClient "coinapp-api/internal/client/http"
	"coinapp-api/internal/client/stripe"
	"coinapp-api/internal/db"
	"coinapp-api/internal/handlers"
	"coinapp-api/internal/logger"
	"coinapp-api/internal/metrics"
	"coinapp-api/internal/reconcile"
)

// Handler Definitions
var (
	webhookHandler     *handlers.WebhookHandler
	walletHandler      *handlers.WalletHandler
	transactionHandler *handlers.TransactionHandler
	onrampHandler      *handlers.OnrampHandler
	healthHandler      *handlers.HealthHandler

	circleClient *circle.CircleClient

	// Database
	dbQueries *db.Queries
)

func InitializeHandlers() {
	ctx := context.Background()

	// Get database connection string from environment
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Log.Fatal("DATABASE_URL environment variable is required")
	}

	// Create a connection pool using pgxpool
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		logger.Log.Fatal("Unable to parse database connection string", zap.Error(err))
	}

	// Configure the connection pool
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	// Create the connection pool
	connPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Log.Fatal("Unable to create connection pool", zap.Error(err))
	}

	// Create queries instance with the connection pool
	dbQueries = db.New(connPool)

	circleAPIKey, stripeAPIKey := loadAPIKeys(ctx)

	collector := metrics.NewCollector()
	circleClient = circle.NewCircleClient(circleAPIKey,
		circle.WithHTTPClient(httpClient.NewHTTPClient(
			httpClient.WithBaseURL(circle.CircleAPIBaseURL),
			httpClient.WithMetricsCollector(collector),
		)),
		circle.WithNotificationsClient(httpClient.NewHTTPClient(
			httpClient.WithBaseURL(circle.CircleNotificationsBaseURL),
			httpClient.WithMetricsCollector(collector),
		)),
	)

	onrampClient := stripe.NewOnrampClient(stripeAPIKey)

	verifier := reconcile.NewSignatureVerifier(circleClient)
	resolver := reconcile.NewWalletResolver(dbQueries)
	balances := reconcile.NewBalanceSyncClient(circleClient, dbQueries)
	reconciler := reconcile.NewReconciler(dbQueries, resolver, balances)
	fetcher := reconcile.NewTransactionFetcher(dbQueries, circleClient, resolver)

	commonServices := handlers.NewCommonServices(
		dbQueries,
		circleClient,
		onrampClient,
		verifier,
		reconciler,
		balances,
		fetcher,
	)

	// API Handler initialization
	webhookHandler = handlers.NewWebhookHandler(commonServices)
	walletHandler = handlers.NewWalletHandler(commonServices)
	transactionHandler = handlers.NewTransactionHandler(commonServices)
	onrampHandler = handlers.NewOnrampHandler(commonServices)
	healthHandler = handlers.NewHealthHandler()
}

// loadAPIKeys resolves the Circle and Stripe keys, preferring Secrets Manager
// ARNs over plain environment variables.
func loadAPIKeys(ctx context.Context) (circleKey, stripeKey string) {
	secrets, err := aws.NewSecretsManagerClient(ctx)
	if err != nil {
		logger.Log.Warn("Secrets Manager unavailable, reading API keys from environment", zap.Error(err))
		circleKey = os.Getenv("CIRCLE_API_KEY")
		stripeKey = os.Getenv("STRIPE_SECRET_KEY")
	} else {
		circleKey, err = secrets.GetSecretString(ctx, "CIRCLE_API_KEY_SECRET_ARN", "CIRCLE_API_KEY")
		if err != nil {
			logger.Log.Fatal("Unable to resolve Circle API key", zap.Error(err))
		}
		stripeKey, err = secrets.GetSecretString(ctx, "STRIPE_SECRET_KEY_SECRET_ARN", "STRIPE_SECRET_KEY")
		if err != nil {
			logger.Log.Fatal("Unable to resolve Stripe secret key", zap.Error(err))
		}
	}

	if circleKey == "" {
		logger.Log.Fatal("CIRCLE_API_KEY environment variable is required")
	}
	if stripeKey == "" {
		logger.Log.Fatal("STRIPE_SECRET_KEY environment variable is required")
	}
	return circleKey, stripeKey
}

func InitializeRoutes(router *gin.Engine) {
	// Configure and apply CORS middleware
	router.Use(configureCORS())

	// Health check and metrics
	router.GET("/healthz", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// if we are not in production, log the request body
	if os.Getenv("GIN_MODE") != "release" {
		router.Use(handlers.LogRequest())
	}

	// Webhook routes are authenticated by signature, not by session
	router.POST("/api/webhooks/circle", webhookHandler.HandleCircleNotification)
	router.HEAD("/api/webhooks/circle", webhookHandler.HandleCircleNotificationHead)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Protected routes (authentication required)
		protected := v1.Group("/")
		protected.Use(handlers.AuthMiddleware())
		{
			wallet := protected.Group("/wallet")
			{
				wallet.POST("/balance", walletHandler.GetBalance)
				wallet.POST("/setup", walletHandler.SetupWallets)
				wallet.GET("/credential", walletHandler.GetCredential)
				wallet.POST("/credential", walletHandler.UpdateCredential)

				wallet.POST("/transactions", transactionHandler.ListTransactions)
				wallet.GET("/transactions/:id", transactionHandler.GetTransaction)
			}

			stripeGroup := protected.Group("/stripe")
			{
				stripeGroup.POST("/onramp", onrampHandler.CreateOnrampSession)
			}
		}
	}
}

// configureCORS returns a configured CORS middleware
func configureCORS() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		// Default to localhost if not set
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		corsConfig.AllowOrigins = origins
	}

	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodHead, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "x-circle-signature", "x-circle-key-id"}

	return cors.New(corsConfig)
}
