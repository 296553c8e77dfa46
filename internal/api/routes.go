// Package api contains the API routes for the Task Manager API
package api

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/chnk8802/task-manager/internal/api/handlers"
	"github.com/chnk8802/task-manager/internal/api/middleware"
	"github.com/chnk8802/task-manager/internal/config"
	"github.com/chnk8802/task-manager/internal/service"
	"github.com/chnk8802/task-manager/pkg/utils/logger"
	"github.com/chnk8802/task-manager/pkg/utils/response"
	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services holds the services behind the routes
type Services struct {
	Accounts *service.AccountService
	Sessions *service.SessionService
	Avatars  *service.AvatarService
	Tasks    *service.TaskService
	Notifier service.Notifier
}

// NewServices creates the services from the configuration.
// redisClient may be nil, in which case account events are only logged.
func NewServices(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Services {
	accounts := service.NewAccountService(db, cfg.BcryptCost)
	sessions := service.NewSessionService(accounts, []byte(cfg.JwtSecret), cfg.SessionTTL)

	auditLog, err := logger.New(db, "auth")
	if err != nil {
		zaplogger.Error("Audit trail disabled", zaplogger.Fields{"error": err.Error()})
	} else {
		sessions.SetAuditLogger(auditLog)
	}

	return &Services{
		Accounts: accounts,
		Sessions: sessions,
		Avatars:  service.NewAvatarService(accounts, int64(cfg.AvatarMaxBytes), cfg.AvatarSize),
		Tasks:    service.NewTaskService(db),
		Notifier: service.NewNotifier(redisClient),
	}
}

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, cfg *config.Config, svc *Services) {
	requireAuth := middleware.RequireAuth(svc.Sessions)

	// Health route
	e.GET("/health", healthRoute(cfg))

	// User routes (unprotected)
	userHandler := handlers.NewUserHandler(svc.Accounts, svc.Sessions, svc.Notifier, cfg.CookieSecure)
	users := e.Group("/users")
	users.POST("/signup", userHandler.Signup)
	users.POST("/login", userHandler.Login)

	// User routes (protected)
	users.GET("/validate", userHandler.Validate, requireAuth)
	users.POST("/validate", userHandler.Validate, requireAuth)
	users.POST("/logout", userHandler.Logout, requireAuth)
	users.POST("/logoutAll", userHandler.LogoutAll, requireAuth)
	users.GET("/me", userHandler.Me, requireAuth)
	users.PATCH("/me", userHandler.UpdateMe, requireAuth)
	users.DELETE("/me", userHandler.DeleteMe, requireAuth)

	// Avatar routes (protected)
	avatarHandler := handlers.NewAvatarHandler(svc.Avatars)
	users.POST("/me/avatar", avatarHandler.Upload, requireAuth)
	users.DELETE("/me/avatar", avatarHandler.Delete, requireAuth)
	users.GET("/:id/avatar", avatarHandler.Get, requireAuth)

	// Task routes (protected)
	taskHandler := handlers.NewTaskHandler(svc.Tasks)
	tasks := e.Group("/tasks", requireAuth)
	tasks.POST("", taskHandler.Create)
	tasks.GET("", taskHandler.List)
	tasks.GET("/:id", taskHandler.Get)
	tasks.PATCH("/:id", taskHandler.Update)
	tasks.DELETE("/:id", taskHandler.Delete)
}

// healthRoute reports the API name and version
func healthRoute(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		return response.SuccessResponse(c, fmt.Sprintf("%s %s", cfg.APIName, cfg.APIVersion))
	}
}
