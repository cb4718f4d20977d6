package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"webdesk/services"
	"webdesk/utils"
)

// respondError maps a service error onto the response envelope. Unknown
// errors become a 500 carrying only the fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.BadRequestResponse(c, "Invalid request", err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		utils.UnauthorizedResponse(c, "Invalid credentials")
	case errors.Is(err, services.ErrInvalidToken):
		utils.UnauthorizedResponse(c, "Invalid or expired token")
	case errors.Is(err, services.ErrFileNotFound):
		utils.NotFoundResponse(c, "File not found")
	case errors.Is(err, services.ErrUserNotFound):
		utils.NotFoundResponse(c, "User not found")
	case errors.Is(err, services.ErrNotTrashed):
		utils.ConflictResponse(c, "File must be in the recycle bin first", nil)
	case errors.Is(err, services.ErrDuplicate):
		utils.ConflictResponse(c, "Username or email already in use", nil)
	case errors.Is(err, services.ErrNotifyDisabled):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Email delivery is not configured", nil)
	default:
		utils.InternalServerErrorResponse(c, fallback)
	}
}

// currentIdentity reads the caller set by the auth middleware.
func currentIdentity(c *gin.Context) (services.Identity, bool) {
	userID := c.GetString("userIdStr")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return services.Identity{}, false
	}
	return services.Identity{
		UserID:   userID,
		Username: c.GetString("username"),
		Email:    c.GetString("email"),
		Role:     c.GetString("role"),
	}, true
}
