package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/osinthub/search-api/internal/domain/apikey"
	"github.com/osinthub/search-api/internal/storage/postgres"
	"github.com/osinthub/search-api/internal/util"
	"go.uber.org/zap"
)

func main() {
	userIDStr := flag.String("user", "", "Owner user ID (UUID)")
	planStr := flag.String("plan", string(apikey.PlanBasic), "Plan: basic, pro or enterprise")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	userID, err := uuid.Parse(*userIDStr)
	if err != nil {
		log.Fatalf("Invalid -user value %q: %v", *userIDStr, err)
	}

	plan, ok := apikey.ParsePlan(*planStr)
	if !ok {
		log.Fatalf("Unknown plan %q", *planStr)
	}

	keyValue, err := util.GenerateKeyValue()
	if err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	repo := postgres.NewAPIKeyRepository(pool, logger)

	deactivated, err := repo.DeactivateActiveByOwner(context.Background(), userID)
	if err != nil {
		log.Fatalf("Failed to deactivate previous keys: %v", err)
	}
	if deactivated > 0 {
		fmt.Printf("Deactivated %d previously active key(s)\n", deactivated)
	}

	expiresAt := time.Now().AddDate(0, apikey.KeyValidity, 0)
	newKey := &apikey.APIKey{
		UserID:        userID,
		KeyValue:      keyValue,
		Plan:          plan,
		Status:        apikey.StatusActive,
		RequestsLimit: apikey.PlanLimits[plan],
		ExpiresAt:     &expiresAt,
	}

	keyID, err := repo.Create(context.Background(), newKey)
	if err != nil {
		log.Fatalf("Failed to save API key to database: %v", err)
	}

	fmt.Printf("Generated API Key (SAVE THIS securely!):\n%s\n\n", keyValue)
	fmt.Printf("Plan: %s (limit %d requests)\n", plan, apikey.PlanLimits[plan])
	fmt.Printf("Expires: %s\n", expiresAt.Format(time.RFC3339))
	fmt.Printf("\nAPI Key saved to database with ID: %s\n", keyID)
}
