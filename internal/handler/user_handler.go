package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/go-demo/matchmaker/internal/dto/request"
	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// SetForceMatch godoc
// @Summary Force a match
// @Description The user's next successful FindBestRoom lands in a room containing the target
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body request.ForceMatchRequest true "Target user"
// @Success 204
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id}/force-match [put]
func (h *UserHandler) SetForceMatch(c *gin.Context) {
	var req request.ForceMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "target_user_id must be a user id")
		return
	}

	if err := h.userService.SetForceMatch(c.Request.Context(), c.Param("id"), req.TargetUserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ClearForceMatch godoc
// @Summary Cancel a forced match
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id}/force-match [delete]
func (h *UserHandler) ClearForceMatch(c *gin.Context) {
	if err := h.userService.ClearForceMatch(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
