// seed inserts development identities for local testing. Run with go run ./cmd/seed.
// Idempotent: skips inserts if the dev identity already exists.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"festival-companion/backend/internal/config"
	"festival-companion/backend/internal/db"
	identitydomain "festival-companion/backend/internal/identity/domain"
	identityrepo "festival-companion/backend/internal/identity/repository"
	"festival-companion/backend/internal/platform/logging"
	"festival-companion/backend/internal/security"
	subdomain "festival-companion/backend/internal/subscription/domain"
	subrepo "festival-companion/backend/internal/subscription/repository"
)

const (
	devHandle      = "dev-device-alice"
	devName        = "Alice"
	devGroup       = "carpool-north-gate"
	memberHandle   = "dev-device-bob"
	memberName     = "Bob"
	freshHandle    = "dev-device-new"
	devAdminID     = "dev-admin-001"
	devPushBaseURL = "https://push.example.invalid/"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer conn.Close()

	ctx := context.Background()
	identities := identityrepo.NewPostgresRepository(conn)
	subs := subrepo.NewPostgresRepository(conn)

	existing, err := identities.Get(ctx, devHandle)
	if err != nil {
		logger.Fatal("seed check", zap.Error(err))
	}
	if existing.Meaningful() {
		logger.Info("seed already applied; skipping", zap.String("device_handle", devHandle))
		printAdminToken(cfg, logger)
		return
	}

	now := time.Now().UTC()
	seeds := []*identitydomain.Identity{
		{DeviceHandle: devHandle, DisplayName: devName, GroupRef: devGroup, Active: true, UpdatedAt: now},
		{DeviceHandle: memberHandle, DisplayName: memberName, GroupRef: devGroup, Active: true, UpdatedAt: now},
		identitydomain.NewFresh(freshHandle, now),
	}
	for _, i := range seeds {
		if err := identities.Put(ctx, i); err != nil {
			logger.Fatal("create identity", zap.String("device_handle", i.DeviceHandle), zap.Error(err))
		}
	}
	if err := subs.Save(ctx, &subdomain.Subscription{
		DeviceHandle: devHandle,
		Endpoint:     devPushBaseURL + devHandle,
		P256dh:       "dev-p256dh",
		Auth:         "dev-auth",
		CreatedAt:    now,
	}); err != nil {
		logger.Fatal("create push subscription", zap.Error(err))
	}

	logger.Info("seed completed")
	fmt.Printf("Exportable identity: %s (%s)\n", devHandle, devName)
	fmt.Printf("Occupied target:     %s (%s)\n", memberHandle, memberName)
	fmt.Printf("Fresh target:        %s\n", freshHandle)
	printAdminToken(cfg, logger)
}

// printAdminToken prints a bearer token for the admin API when a signing key is configured.
func printAdminToken(cfg *config.Config, logger *zap.Logger) {
	if cfg.JWTPrivateKey == "" {
		return
	}
	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		logger.Warn("load admin key pair", zap.Error(err))
		return
	}
	tokens, err := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AdminTTL())
	if err != nil {
		logger.Warn("admin token provider", zap.Error(err))
		return
	}
	token, expiresAt, err := tokens.IssueAdmin(devAdminID)
	if err != nil {
		logger.Warn("issue admin token", zap.Error(err))
		return
	}
	fmt.Printf("Admin token (expires %s):\n%s\n", expiresAt.Format(time.RFC3339), token)
}
