package routes

import (
	"github.com/gin-gonic/gin"

	"webdesk/controllers"
	"webdesk/middleware"
	"webdesk/models"
)

func RegisterAdminRoutes(rg *gin.RouterGroup, jwtSecret string, adminController *controllers.AdminController) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtSecret), middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/broadcast", adminController.Broadcast)
		admin.POST("/newsletter", adminController.Newsletter)
	}
}

func RegisterSupportRoutes(rg *gin.RouterGroup, supportController *controllers.SupportController) {
	rg.POST("/support", supportController.Submit)
}
