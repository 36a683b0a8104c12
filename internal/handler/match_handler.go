package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/middleware"
	apperrors "github.com/go-demo/matchmaker/internal/pkg/errors"
	"github.com/go-demo/matchmaker/internal/service"
	"github.com/go-demo/matchmaker/internal/wire"
	"go.uber.org/zap"
)

// Largest envelope the game sends is well under this
const maxEnvelopeSize = 64 << 10

type MatchHandler struct {
	matchService *service.MatchService
	userService  *service.UserService
	roomService  *service.RoomService
	logger       *zap.Logger
}

func NewMatchHandler(
	matchService *service.MatchService,
	userService *service.UserService,
	roomService *service.RoomService,
	logger *zap.Logger,
) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
		userService:  userService,
		roomService:  roomService,
		logger:       logger,
	}
}

// Match godoc
// @Summary Run a match method
// @Description Accepts the game's ["Method",{...}] envelope and answers with a status-coded JSON array
// @Tags match
// @Accept plain
// @Produce json
// @Security BearerAuth
// @Param request body string true "Match envelope"
// @Success 200 {array} object
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /lbp/match [post]
func (h *MatchHandler) Match(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEnvelopeSize))
	if err != nil {
		response.BadRequest(c, "could not read request body")
		return
	}

	envelope, err := wire.Parse(string(raw))
	if err != nil {
		h.logger.Debug("Rejected match envelope",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		response.Error(c, apperrors.ErrMalformedMessage)
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	resp, err := h.matchService.Dispatch(
		c.Request.Context(),
		user,
		middleware.GetGame(c),
		middleware.GetPlatform(c),
		envelope,
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Goodbye godoc
// @Summary Leave matchmaking
// @Description Removes the player from their room for the session's game and platform
// @Tags match
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} response.Response
// @Router /lbp/goodbye [post]
func (h *MatchHandler) Goodbye(c *gin.Context) {
	err := h.roomService.Leave(middleware.GetUserID(c), middleware.GetGame(c), middleware.GetPlatform(c))
	if err != nil && !errors.Is(err, apperrors.ErrRoomNotFound) {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
