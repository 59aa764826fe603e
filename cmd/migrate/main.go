package main

import (
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"coinapp-api/internal/db"
)

func main() {
	command := flag.String("command", "up", "goose command to run (up, down, status, version)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	conn, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set goose dialect: %v", err)
	}
	goose.SetBaseFS(db.Migrations)

	switch *command {
	case "up":
		err = goose.Up(conn, "migrations")
	case "down":
		err = goose.Down(conn, "migrations")
	case "status":
		err = goose.Status(conn, "migrations")
	case "version":
		err = goose.Version(conn, "migrations")
	default:
		log.Fatalf("Unknown command: %s", *command)
	}
	if err != nil {
		log.Fatalf("Migration %s failed: %v", *command, err)
	}
}
