package routes

import (
	"github.com/gin-gonic/gin"

	"webdesk/controllers"
	"webdesk/middleware"
)

func RegisterAuthRoutes(rg *gin.RouterGroup, authController *controllers.AuthController) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/password-reset", authController.RequestPasswordReset)
		auth.POST("/password-reset/confirm", authController.ConfirmPasswordReset)
	}
}

func RegisterAccountRoutes(rg *gin.RouterGroup, jwtSecret string, accountController *controllers.AccountController) {
	account := rg.Group("/account")
	account.Use(middleware.AuthMiddleware(jwtSecret))
	{
		account.GET("", accountController.GetAccount)
		account.PATCH("", accountController.UpdateAccount)
		account.DELETE("", accountController.DeleteAccount)
	}
}
