//go:build !lambda
// +build !lambda

package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"coinapp-api/internal/logger"
	"coinapp-api/internal/server"
)

func main() {

	err := godotenv.Load()
	if err != nil {
		// A missing .env file is fine when variables are set directly in
		// the environment.
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	// Initialize logger first
	logger.InitLogger(os.Getenv("STAGE"))

	r := gin.Default()
	server.InitializeHandlers()
	server.InitializeRoutes(r)

	log.Printf("Server starting on :8000")
	if err := r.Run(":8000"); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
