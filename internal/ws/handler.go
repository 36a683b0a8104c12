package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/pkg/utils"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub        *Hub
	jwtManager *utils.JWTManager
	logger     *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, jwtManager *utils.JWTManager, logger *zap.Logger) *Handler {
	return &Handler{
		hub:        hub,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// ServeWS handles WebSocket connection requests
// @Summary Room feed
// @Description Streams room_created, room_updated and room_removed events
// @Tags WebSocket
// @Param token query string true "JWT Token"
// @Param game query string false "Only rooms for this game"
// @Param platform query string false "Only rooms for this platform"
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /ws/rooms [get]
func (h *Handler) ServeWS(c *gin.Context) {
	// Browsers cannot set headers on a WebSocket handshake
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if token == "" {
		response.Unauthorized(c, "Missing authentication token")
		return
	}

	claims, err := h.jwtManager.ValidateAccessToken(token)
	if err != nil {
		h.logger.Warn("Invalid token for WebSocket",
			zap.Error(err),
		)
		response.Unauthorized(c, "Invalid token")
		return
	}

	filter, ok := ParseFilter(c.Query("game"), c.Query("platform"))
	if !ok {
		response.BadRequest(c, "Unknown game or platform")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket",
			zap.Error(err),
		)
		return
	}

	client := NewClient(h.hub, conn, claims.UserID, claims.Username, filter, h.logger)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns WebSocket hub statistics
// @Summary Room feed statistics
// @Tags WebSocket
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/ws/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	response.Success(c, h.hub.GetStats())
}

// IsUserOnline reports whether a user has an open room feed
// @Summary Room feed presence
// @Tags WebSocket
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User ID"
// @Success 200 {object} response.Response
// @Router /api/v1/ws/online/{user_id} [get]
func (h *Handler) IsUserOnline(c *gin.Context) {
	userID := c.Param("user_id")
	response.Success(c, gin.H{
		"user_id": userID,
		"online":  h.hub.IsUserOnline(userID),
	})
}
