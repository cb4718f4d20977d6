package controllers

import (
	"github.com/gin-gonic/gin"

	"webdesk/services"
	"webdesk/utils"
)

type AuthController struct {
	authService    *services.AuthService
	accountService *services.AccountService
}

func NewAuthController(authService *services.AuthService, accountService *services.AccountService) *AuthController {
	return &AuthController{
		authService:    authService,
		accountService: accountService,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

type PasswordResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (ac *AuthController) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	result, err := ac.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Registration failed")
		return
	}

	utils.CreatedResponse(c, "Account created successfully", result)
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	result, err := ac.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "Authentication failed")
		return
	}

	utils.SuccessResponse(c, "Authentication successful", result)
}

// RequestPasswordReset always answers the same way so it cannot reveal
// whether an address is registered.
func (ac *AuthController) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := ac.accountService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err, "Password reset failed")
		return
	}

	utils.SuccessResponse(c, "If the address is registered, a reset link has been sent", nil)
}

func (ac *AuthController) ConfirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := ac.accountService.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, err, "Password reset failed")
		return
	}

	utils.SuccessResponse(c, "Password updated successfully", nil)
}
