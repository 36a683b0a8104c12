package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/matchmaker/internal/config"
	"github.com/go-demo/matchmaker/internal/middleware"
	"github.com/go-demo/matchmaker/internal/model"
	"github.com/go-demo/matchmaker/internal/pkg/utils"
	"github.com/go-demo/matchmaker/internal/repository"
	"github.com/go-demo/matchmaker/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memoryUserStore keeps users in memory so handler tests need no database
type memoryUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (s *memoryUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *memoryUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memoryUserStore) Create(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = uuid.New().String()
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *memoryUserStore) GetUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make(map[string]string)
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			names[id] = u.Username
		}
	}
	return names, nil
}

func (s *memoryUserStore) GetIDsByUsernames(ctx context.Context, usernames []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]string, len(usernames))
	for _, u := range s.users {
		if slices.Contains(usernames, u.Username) {
			ids[u.Username] = u.ID
		}
	}
	return ids, nil
}

func (s *memoryUserStore) SetForceMatch(ctx context.Context, userID, targetID string) error {
	return s.update(userID, sql.NullString{String: targetID, Valid: true})
}

func (s *memoryUserStore) ClearForceMatch(ctx context.Context, userID string) error {
	return s.update(userID, sql.NullString{})
}

func (s *memoryUserStore) update(userID string, target sql.NullString) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.ForceMatchUserID = target
	return nil
}

const (
	aliceID     = "11111111-1111-1111-1111-111111111111"
	bobID       = "22222222-2222-2222-2222-222222222222"
	moderatorID = "33333333-3333-3333-3333-333333333333"
)

type testServer struct {
	router     *gin.Engine
	rooms      *repository.RoomDirectory
	users      *memoryUserStore
	jwtManager *utils.JWTManager
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	users := &memoryUserStore{users: map[string]*model.User{
		aliceID:     {ID: aliceID, Username: "alice"},
		bobID:       {ID: bobID, Username: "bob"},
		moderatorID: {ID: moderatorID, Username: "mod"},
	}}
	rooms := repository.NewRoomDirectory(logger)
	jwtManager := utils.NewJWTManager("test-secret", 15*time.Minute, 7*24*time.Hour, "test")
	matching := config.MatchingConfig{DiveInEnabled: true, Moderators: []string{moderatorID}}

	userService := service.NewUserService(users, logger)
	roomService := service.NewRoomService(rooms, users, logger)
	matchService := service.NewMatchService(rooms, users, service.NewSeededRandomSource(1), matching, logger)

	matchHandler := NewMatchHandler(matchService, userService, roomService, logger)
	roomHandler := NewRoomHandler(roomService)
	userHandler := NewUserHandler(userService)
	authHandler := NewAuthHandler(service.NewAuthService(users, jwtManager, logger))

	router := gin.New()
	router.Use(middleware.RequestID())

	lbp := router.Group("/lbp")
	lbp.Use(middleware.Auth(jwtManager))
	{
		lbp.POST("/match", matchHandler.Match)
		lbp.POST("/goodbye", matchHandler.Goodbye)
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/refresh", authHandler.RefreshToken)

		roomRoutes := v1.Group("/rooms")
		roomRoutes.Use(middleware.OptionalAuth(jwtManager))
		roomRoutes.GET("", roomHandler.List)
		roomRoutes.GET("/stats", roomHandler.Stats)

		userRoutes := v1.Group("/users")
		userRoutes.Use(middleware.Auth(jwtManager), middleware.RequireUser(matching.Moderators...))
		userRoutes.PUT("/:id/force-match", userHandler.SetForceMatch)
		userRoutes.DELETE("/:id/force-match", userHandler.ClearForceMatch)
	}

	return &testServer{router: router, rooms: rooms, users: users, jwtManager: jwtManager}
}

func (s *testServer) token(t *testing.T, userID string, game model.Game, platform model.Platform) string {
	t.Helper()
	token, _, err := s.jwtManager.GenerateAccessToken(utils.Session{
		UserID:   userID,
		Game:     game,
		Platform: platform,
	})
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}
