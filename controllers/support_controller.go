package controllers

import (
	"github.com/gin-gonic/gin"

	"webdesk/services"
	"webdesk/utils"
)

type SupportController struct {
	messagingService *services.MessagingService
}

func NewSupportController(messagingService *services.MessagingService) *SupportController {
	return &SupportController{messagingService: messagingService}
}

func (sc *SupportController) Submit(c *gin.Context) {
	var req services.SupportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := sc.messagingService.SupportRequest(c.Request.Context(), req); err != nil {
		respondError(c, err, "Failed to submit support request")
		return
	}

	utils.SuccessResponse(c, "Support request received", nil)
}
