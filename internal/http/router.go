package http

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/cache"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/http/handlers"
	"github.com/taskhub/taskhub/internal/http/middlewares"
	"github.com/taskhub/taskhub/internal/observability"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Deps carries the swappable edges of the router: postgres-backed stores in
// production, memory stores in tests.
type Deps struct {
	Users   handlers.UserStore
	Tasks   handlers.TaskStore
	Cache   *cache.TaskListCache
	Metrics *observability.Prom
	Ping    func(ctx context.Context) error
	Tracing bool
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware([]string{cfg.CORSOrigin}))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	if deps.Tracing {
		r.Use(otelgin.Middleware("taskhub-api"))
	}

	prom := deps.Metrics

	if prom == nil {
		prom = observability.NewProm()
	}

	r.Use(prom.GinHandleMiddleware())
	r.GET("/metrics", gin.WrapH(prom.Handler()))

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, "Route not found")
	})

	// health
	health := handlers.NewHealthHandler(deps.Ping)
	r.GET("/health", health.Health)
	r.GET("/readyz", health.Ready)

	jwtManager := auth.NewManager(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	authHandler := handlers.NewAuthHandler(deps.Users, jwtManager, cfg, log)
	tasksHandler := handlers.NewTasksHandler(deps.Tasks, deps.Cache, log)
	requireAuth := middlewares.NewAuthMiddleware(jwtManager).RequireAuth()

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh", authHandler.Refresh)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	taskRoutes := r.Group("/tasks", requireAuth)
	{
		taskRoutes.POST("", tasksHandler.CreateTask)
		taskRoutes.GET("", tasksHandler.ListTasks)
		taskRoutes.GET("/:id", tasksHandler.GetTaskByID)
		taskRoutes.PATCH("/:id", tasksHandler.UpdateTask)
		taskRoutes.DELETE("/:id", tasksHandler.DeleteTask)
		taskRoutes.PATCH("/:id/toggle", tasksHandler.ToggleTaskStatus)
	}

	return r
}
