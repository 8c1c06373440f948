package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/http/handlers"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/geocoder89/taskmaster/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	slog.SetDefault(log)

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("taskmaster-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)
	r.Use(prom.GinHandleMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	hh := handlers.NewHealthHandler(ping)
	r.GET("/healthz", hh.Healthz)
	r.GET("/readyz", hh.Readyz)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	tasksRepo := postgres.NewTasksRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL())
	authGate := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	// brute-force guard on the credential endpoints
	loginLimiter := middlewares.NewRateLimiter(10, time.Minute, rdb)

	usersHandler := handlers.NewUsersHandler(usersRepo, jwtManager)
	tasksHandler := handlers.NewTasksHandler(tasksRepo)

	users := r.Group("/users")
	users.POST("/register", loginLimiter.Middleware(middlewares.KeyByIP), usersHandler.Register)
	users.POST("/login", loginLimiter.Middleware(middlewares.KeyByIP), usersHandler.Login)
	users.GET("/me", authGate.RequireAuth(), usersHandler.Me)
	users.POST("/logout", authGate.RequireAuth(), usersHandler.Logout)

	tasks := r.Group("/tasks", authGate.RequireAuth())
	tasks.POST("", tasksHandler.CreateTask)
	tasks.GET("", tasksHandler.ListTasks)
	tasks.GET("/:id", tasksHandler.GetTaskByID)
	tasks.PUT("/:id", tasksHandler.UpdateTask)
	tasks.DELETE("/:id", tasksHandler.DeleteTask)

	return r
}
