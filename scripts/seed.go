package main

import (
	"context"
	"fmt"
	"log"

	"github.com/go-demo/matchmaker/internal/config"
	"github.com/go-demo/matchmaker/internal/model"
	"github.com/go-demo/matchmaker/internal/pkg/database"
	"github.com/go-demo/matchmaker/internal/pkg/utils"
	"github.com/go-demo/matchmaker/internal/repository"
	"github.com/go-demo/matchmaker/internal/service"
	"go.uber.org/zap"
)

func main() {
	log.Println("Starting database seed...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := zap.NewNop()
	db, err := database.NewPostgres(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if err := database.Migrate(ctx, db, logger); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
	)
	authService := service.NewAuthService(userRepo, jwtManager, logger)

	log.Println("Creating players...")
	players := []struct {
		username string
		game     model.Game
		platform model.Platform
	}{
		{"alice", model.GameLittleBigPlanet2, model.PlatformPS3},
		{"bob", model.GameLittleBigPlanet2, model.PlatformPS3},
		{"charlie", model.GameLittleBigPlanet2, model.PlatformRPCS3},
		{"diana", model.GameLittleBigPlanet3, model.PlatformPS3},
		{"evan", model.GameLittleBigPlanetVita, model.PlatformVita},
	}

	sessions := make([]*service.SessionResult, 0, len(players))
	for _, p := range players {
		session, err := authService.IssueSession(ctx, p.username, p.game, p.platform)
		if err != nil {
			log.Printf("Failed to create session for %s: %v", p.username, err)
			continue
		}
		sessions = append(sessions, session)
		log.Printf("Ready: %s (%s on %s)", p.username, p.game, p.platform)
	}

	if len(sessions) < 2 {
		log.Println("Not enough players, skipping forced match")
		return
	}

	// Queue one forced match so the next FindBestRoom from the first player
	// lands them in the second player's room
	if err := userRepo.SetForceMatch(ctx, sessions[0].User.ID, sessions[1].User.ID); err != nil {
		log.Printf("Failed to queue forced match: %v", err)
	} else {
		log.Printf("Queued forced match: %s -> %s", sessions[0].User.Username, sessions[1].User.Username)
	}

	log.Println("Seed completed successfully!")
	fmt.Println("\n--- Test Sessions ---")
	for _, s := range sessions {
		fmt.Printf("Username: %s, ID: %s\nToken: %s\n\n", s.User.Username, s.User.ID, s.TokenPair.AccessToken)
	}
	fmt.Println("Moderator ids go in MODERATORS to unlock the force-match endpoints.")
}
