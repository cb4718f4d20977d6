package routes

import (
	"github.com/gin-gonic/gin"

	"webdesk/controllers"
	"webdesk/middleware"
)

func RegisterTrashRoutes(rg *gin.RouterGroup, jwtSecret string, trashController *controllers.TrashController) {
	files := rg.Group("/files")
	files.Use(middleware.AuthMiddleware(jwtSecret))
	{
		files.GET("/bin", trashController.GetBin)                 // GET /files/bin
		files.DELETE("/:id", trashController.MoveToBin)           // DELETE /files/:id (move to bin)
		files.POST("/restore/:id", trashController.RestoreFile)   // POST /files/restore/:id
		files.DELETE("/permanent/:id", trashController.PurgeFile) // DELETE /files/permanent/:id
		files.POST("/empty-bin", trashController.EmptyBin)        // POST /files/empty-bin
	}
}
