package controllers

import (
	"github.com/gin-gonic/gin"

	"webdesk/services"
	"webdesk/utils"
)

type AccountController struct {
	accountService *services.AccountService
}

func NewAccountController(accountService *services.AccountService) *AccountController {
	return &AccountController{accountService: accountService}
}

func (ac *AccountController) GetAccount(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	user, err := ac.accountService.Profile(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err, "Failed to load account")
		return
	}

	utils.SuccessResponse(c, "Account retrieved successfully", user)
}

func (ac *AccountController) UpdateAccount(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.UpdateAccountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	user, err := ac.accountService.Update(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, err, "Failed to update account")
		return
	}

	utils.SuccessResponse(c, "Account updated successfully", user)
}

// DeleteAccount removes the account together with every stored file.
func (ac *AccountController) DeleteAccount(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := ac.accountService.Delete(c.Request.Context(), identity); err != nil {
		respondError(c, err, "Failed to delete account")
		return
	}

	utils.SuccessResponse(c, "Account deleted successfully", nil)
}
