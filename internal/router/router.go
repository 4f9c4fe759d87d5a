package router

import (
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sloggin "github.com/samber/slog-gin"
	"github.com/yukikurage/recados-api/internal/constants"
	"github.com/yukikurage/recados-api/internal/handlers"
	"github.com/yukikurage/recados-api/internal/health"
	"github.com/yukikurage/recados-api/internal/middleware"
	"github.com/yukikurage/recados-api/internal/response"
	"github.com/yukikurage/recados-api/internal/services"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Logger       *slog.Logger
	SessionStore sessions.Store
	Auth         *services.AuthService
	Users        *services.UserService
	Tasks        *services.TaskService
	Suggestions  *services.SuggestionService
	Health       *health.Checker
}

// New builds the gin engine with every route of the API.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		sloggin.New(d.Logger),
		response.Recovery(),
		middleware.Metrics(),
		sessions.Sessions(constants.SessionCookieName, d.SessionStore),
		middleware.Authenticate(d.Auth),
	)

	userHandler := handlers.NewUserHandler(d.Users)
	taskHandler := handlers.NewTaskHandler(d.Tasks, d.Suggestions)
	authHandler := handlers.NewAuthHandler(d.Auth, d.Users)

	// Operational endpoints
	r.GET("/health/live", d.Health.Live)
	r.GET("/health/ready", d.Health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/auth")
	{
		auth.POST("", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
	}

	users := r.Group("/user")
	{
		users.POST("", userHandler.CreateUser)
		users.GET("", userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUser)
		users.PUT("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)

		// Tasks are always addressed through their owner
		tasks := users.Group("/:id/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/suggestions", taskHandler.SuggestTasks)
			tasks.GET("/:taskId", taskHandler.GetTask)
			tasks.PUT("/:taskId", taskHandler.UpdateTask)
			tasks.DELETE("/:taskId", taskHandler.DeleteTask)
		}
	}

	return r
}
