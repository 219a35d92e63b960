package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/famlink/assist-server-go/internal/database"
	"github.com/famlink/assist-server-go/internal/repository"
	"github.com/famlink/assist-server-go/internal/service"
)

// Mints an auth session for a user and prints the bearer token once.
// Needs DATABASE_URL and AUTH_SESSION_SECRET in the environment.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/mint-token.go <user-id>\n")
		os.Exit(1)
	}

	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintf(os.Stderr, "Error: DATABASE_URL is not set\n")
		os.Exit(1)
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	authService := service.NewAuthService(
		repository.NewAuthSessionRepository(db.DB),
		os.Getenv("AUTH_SESSION_SECRET"),
	)

	token, session, err := authService.MintSession(context.Background(), os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", token)
	fmt.Fprintf(os.Stderr, "expires %s\n", session.ExpiresAt.Format("2006-01-02"))
}
