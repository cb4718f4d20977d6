package routes

import (
	"github.com/gin-gonic/gin"

	"webdesk/controllers"
	"webdesk/middleware"
)

func RegisterFileRoutes(rg *gin.RouterGroup, jwtSecret string, fileController *controllers.FileController) {
	files := rg.Group("/files")
	files.Use(middleware.AuthMiddleware(jwtSecret)) // All file routes require authentication with JWT secret
	{
		files.GET("", fileController.GetFiles)       // GET /files (active files)
		files.GET("/usage", fileController.GetUsage) // GET /files/usage
	}

	upload := rg.Group("")
	upload.Use(middleware.AuthMiddleware(jwtSecret))
	{
		upload.POST("/upload", fileController.UploadFile) // POST /upload (multipart field "file")
	}
}
