package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/matchmaker/internal/config"
	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/handler"
	"github.com/go-demo/matchmaker/internal/middleware"
	"github.com/go-demo/matchmaker/internal/pkg/cache"
	"github.com/go-demo/matchmaker/internal/pkg/database"
	"github.com/go-demo/matchmaker/internal/pkg/utils"
	"github.com/go-demo/matchmaker/internal/repository"
	"github.com/go-demo/matchmaker/internal/service"
	"github.com/go-demo/matchmaker/internal/ws"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "1.0.0"

// @title           Matchmaker API
// @version         1.0
// @description     Room matchmaking for LittleBigPlanet clients
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:10061
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting matchmaker",
		zap.String("mode", cfg.Server.Mode),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("dive_in_enabled", cfg.Matching.DiveInEnabled),
	)

	gin.SetMode(cfg.Server.Mode)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize database
	db, err := database.NewPostgres(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db, logger)

	if err := database.Migrate(ctx, db, logger); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	// Redis is optional; without it rate limits are per instance and rooms are not mirrored
	var redisClient *redis.Client
	observers := []repository.RoomObserver{}
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer cache.Close(redisClient, logger)

		mirror := cache.NewRoomMirror(redisClient, cfg.Matching.RoomTTL, logger)
		go mirror.Run(ctx)
		observers = append(observers, mirror)
	}

	// Room feed
	hub := ws.NewHub(logger)
	go hub.Run(ctx)
	observers = append(observers, hub)

	// Room directory
	rooms := repository.NewRoomDirectory(logger, observers...)
	go rooms.Run(ctx, cfg.Matching.SweepInterval, cfg.Matching.RoomTTL)

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager, logger)
	userService := service.NewUserService(userRepo, logger)
	roomService := service.NewRoomService(rooms, userRepo, logger)
	matchService := service.NewMatchService(rooms, userRepo, service.NewRandomSource(), cfg.Matching, logger)

	logger.Info("Match methods registered", zap.Strings("methods", matchService.MethodNames()))

	// Initialize handlers
	handlers := &routeHandlers{
		auth:  handler.NewAuthHandler(authService),
		match: handler.NewMatchHandler(matchService, userService, roomService, logger),
		room:  handler.NewRoomHandler(roomService),
		user:  handler.NewUserHandler(userService),
		ws:    ws.NewHandler(hub, jwtManager, logger),
	}

	router := setupRouter(cfg, logger, jwtManager, db, redisClient, handlers)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Server is running",
			zap.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stops the sweeper, the mirror and the room feed
	stop()

	logger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var zapLevel zapcore.Level
	switch cfg.Level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = "stdout"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{outputPath},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	return logger
}

type routeHandlers struct {
	auth  *handler.AuthHandler
	match *handler.MatchHandler
	room  *handler.RoomHandler
	user  *handler.UserHandler
	ws    *ws.Handler
}

func setupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *utils.JWTManager,
	db *sqlx.DB,
	redisClient *redis.Client,
	h *routeHandlers,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	limiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	startedAt := time.Now()

	// Health check
	router.GET("/health", func(c *gin.Context) {
		health := &response.HealthResponse{
			Status:    "healthy",
			Version:   version,
			Uptime:    time.Since(startedAt).Round(time.Second).String(),
			Timestamp: time.Now().Format(time.RFC3339),
			Services:  map[string]string{"database": "up"},
		}

		status := http.StatusOK
		if err := db.PingContext(c.Request.Context()); err != nil {
			health.Status = "degraded"
			health.Services["database"] = "down"
			status = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			health.Services["redis"] = "up"
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				health.Status = "degraded"
				health.Services["redis"] = "down"
				status = http.StatusServiceUnavailable
			}
		}

		c.JSON(status, health)
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Room feed
	router.GET("/ws/rooms", h.ws.ServeWS)

	// Game client routes
	lbp := router.Group("/lbp")
	lbp.Use(middleware.Auth(jwtManager))
	lbp.Use(middleware.MatchRateLimit(limiter, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	{
		lbp.POST("/match", h.match.Match)
		lbp.POST("/goodbye", h.match.Goodbye)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(limiter))
	{
		v1.POST("/auth/refresh", h.auth.RefreshToken)

		rooms := v1.Group("/rooms")
		rooms.Use(middleware.OptionalAuth(jwtManager))
		{
			rooms.GET("", h.room.List)
			rooms.GET("/stats", h.room.Stats)
		}

		users := v1.Group("/users")
		users.Use(middleware.Auth(jwtManager))
		users.Use(middleware.RequireUser(cfg.Matching.Moderators...))
		{
			users.PUT("/:id/force-match", h.user.SetForceMatch)
			users.DELETE("/:id/force-match", h.user.ClearForceMatch)
		}

		wsStats := v1.Group("/ws")
		wsStats.Use(middleware.Auth(jwtManager))
		{
			wsStats.GET("/stats", h.ws.GetStats)
			wsStats.GET("/online/:user_id", h.ws.IsUserOnline)
		}
	}

	return router
}
