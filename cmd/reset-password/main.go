package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/database"
	"github.com/stemsi/proctor-backend/internal/logger"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
	"github.com/stemsi/proctor-backend/internal/service"
	"golang.org/x/term"
)

// reset-password sets a new password for any profile and signs a student
// out of the device they are logged in on.
//
//	go run ./cmd/reset-password someone@example.com
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		fmt.Println("Usage: reset-password <email>")
		os.Exit(1)
	}
	email := strings.TrimSpace(os.Args[1])

	ctx := context.Background()

	// ─── Connect to PostgreSQL and Redis ───────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	profiles := repository.NewProfileRepository(pool)
	authService := service.NewAuthService(cfg, rdb, profiles)

	profile, err := profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			fmt.Printf("Error: no profile with email %s\n", email)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Failed to look up profile")
	}

	fmt.Printf("=== Reset password for %s (%s) ===\n", profile.FullName(), profile.Role)
	fmt.Print("Enter New Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	if len(bytePassword) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		os.Exit(1)
	}

	hash, err := authService.HashPassword(string(bytePassword))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}
	if err := profiles.UpdatePassword(ctx, profile.ID, hash); err != nil {
		log.Fatal().Err(err).Msg("Failed to update password")
	}

	if profile.Role == model.RoleStudent {
		if err := authService.Logout(ctx, profile.ID); err != nil {
			log.Warn().Err(err).Msg("Password updated but the active session was not cleared")
		}
	}

	fmt.Println("Password updated.")
}
