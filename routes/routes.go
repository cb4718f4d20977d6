package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"webdesk/controllers"
	"webdesk/middleware"
	"webdesk/services"
)

// ServiceContainer holds all services and dependencies the routes need.
type ServiceContainer struct {
	JWTSecret   string
	MaxFileSize int64

	// StorageRoot is served read-only at /storage when files live on local disk.
	StorageRoot string

	AuthService      *services.AuthService
	AccountService   *services.AccountService
	FileService      *services.FileService
	TrashService     *services.TrashService
	QuotaService     *services.QuotaService
	MessagingService *services.MessagingService
}

type RouterOptions struct {
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter builds the gin engine with middleware, the API and the public
// endpoints.
func NewRouter(container *ServiceContainer, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(
		middleware.GinRecovery(logger),
		middleware.GinLogger(logger),
		middleware.Metrics(),
		middleware.CORS(opts.AllowedOrigins),
	)
	if container.MaxFileSize > 0 {
		router.MaxMultipartMemory = container.MaxFileSize
	}

	api := router.Group("/api")
	SetupRoutesWithContainer(api, container)

	if container.StorageRoot != "" {
		router.StaticFS("/storage", gin.Dir(container.StorageRoot, false))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// SetupRoutesWithContainer configures all API routes using a service container
func SetupRoutesWithContainer(api *gin.RouterGroup, container *ServiceContainer) {
	authController := controllers.NewAuthController(container.AuthService, container.AccountService)
	accountController := controllers.NewAccountController(container.AccountService)
	fileController := controllers.NewFileController(container.FileService, container.QuotaService, container.MaxFileSize)
	trashController := controllers.NewTrashController(container.FileService, container.TrashService)
	adminController := controllers.NewAdminController(container.MessagingService)
	supportController := controllers.NewSupportController(container.MessagingService)

	RegisterAuthRoutes(api, authController)
	RegisterAccountRoutes(api, container.JWTSecret, accountController)
	RegisterFileRoutes(api, container.JWTSecret, fileController)
	RegisterTrashRoutes(api, container.JWTSecret, trashController)
	RegisterAdminRoutes(api, container.JWTSecret, adminController)
	RegisterSupportRoutes(api, supportController)
}
