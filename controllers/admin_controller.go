package controllers

import (
	"github.com/gin-gonic/gin"

	"webdesk/services"
	"webdesk/utils"
)

type AdminController struct {
	messagingService *services.MessagingService
}

func NewAdminController(messagingService *services.MessagingService) *AdminController {
	return &AdminController{messagingService: messagingService}
}

func (ac *AdminController) Broadcast(c *gin.Context) {
	var req services.BroadcastInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	sent, err := ac.messagingService.Broadcast(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to send broadcast")
		return
	}

	utils.SuccessResponse(c, "Broadcast sent", gin.H{"recipients": sent})
}

func (ac *AdminController) Newsletter(c *gin.Context) {
	var req services.NewsletterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	sent, err := ac.messagingService.Newsletter(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to send newsletter")
		return
	}

	utils.SuccessResponse(c, "Newsletter sent", gin.H{"recipients": sent})
}
