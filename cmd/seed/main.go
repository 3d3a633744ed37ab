package main

import (
	"context"
	"errors"
	"log"

	"classtrack/internal/account"
	"classtrack/internal/apperr"
	"classtrack/internal/config"
	"classtrack/internal/store"
)

// Seed ensures the schema exists and creates the initial admin account.
func main() {
	cfg := config.Load()
	if cfg.SeedAdminPass == "" {
		log.Fatal("SEED_ADMIN_PASS is required")
	}

	ctx := context.Background()
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema bootstrap failed: %v", err)
	}

	svc := account.NewService(account.NewRepository(db.Client))
	acct, err := svc.Create(ctx, cfg.SeedAdminUser, cfg.SeedAdminPass, account.RoleAdmin)
	if errors.Is(err, apperr.ErrConflict) {
		log.Printf("admin %q already exists, nothing to do", cfg.SeedAdminUser)
		return
	}
	if err != nil {
		log.Fatalf("seed admin failed: %v", err)
	}
	log.Printf("seed complete: admin %q (id %d)", acct.Username, acct.ID)
}
