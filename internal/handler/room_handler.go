package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/middleware"
	"github.com/go-demo/matchmaker/internal/model"
	"github.com/go-demo/matchmaker/internal/service"
)

type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
	}
}

// List godoc
// @Summary List rooms
// @Description Lists live rooms for a game and platform. Signed-in callers default to their session's game and platform.
// @Tags rooms
// @Produce json
// @Param game query string false "Game (lbp1, lbp2, lbp3, lbpvita, lbppsp)"
// @Param platform query string false "Platform (ps3, rpcs3, vita, psp)"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} response.Response{data=response.PaginatedResponse}
// @Failure 400 {object} response.Response
// @Router /api/v1/rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	game, platform := middleware.GetGame(c), middleware.GetPlatform(c)

	if name := c.Query("game"); name != "" {
		g, ok := model.ParseGame(name)
		if !ok {
			response.BadRequest(c, "unknown game")
			return
		}
		game = g
	} else if !middleware.IsAuthenticated(c) {
		response.BadRequest(c, "game is required")
		return
	}

	if name := c.Query("platform"); name != "" {
		p, ok := model.ParsePlatform(name)
		if !ok {
			response.BadRequest(c, "unknown platform")
			return
		}
		platform = p
	} else if !middleware.IsAuthenticated(c) {
		response.BadRequest(c, "platform is required")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	rooms, total, err := h.roomService.ListRooms(c.Request.Context(), game, platform, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewPaginatedResponse(rooms, total, page, limit))
}

// Stats godoc
// @Summary Room statistics
// @Description Room and player counts per game and platform
// @Tags rooms
// @Produce json
// @Success 200 {object} response.Response{data=[]response.RoomStatsResponse}
// @Router /api/v1/rooms/stats [get]
func (h *RoomHandler) Stats(c *gin.Context) {
	response.Success(c, h.roomService.Stats())
}
