package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/recados-api/internal/cache"
	"github.com/yukikurage/recados-api/internal/config"
	"github.com/yukikurage/recados-api/internal/constants"
	"github.com/yukikurage/recados-api/internal/database"
	"github.com/yukikurage/recados-api/internal/health"
	"github.com/yukikurage/recados-api/internal/logging"
	"github.com/yukikurage/recados-api/internal/metrics"
	"github.com/yukikurage/recados-api/internal/repository"
	"github.com/yukikurage/recados-api/internal/router"
	"github.com/yukikurage/recados-api/internal/security"
	"github.com/yukikurage/recados-api/internal/services"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.Env, cfg.SlogLevel())
	slog.SetDefault(logger)
	gin.SetMode(cfg.GinMode())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg, logger)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	if err := database.Migrate(ctx, sqlDB, cfg.DBDriver); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Cache and sessions share one Redis pool
	var (
		store        cache.Store
		sessionStore sessions.Store
	)
	switch cfg.CacheDriver {
	case "redis":
		pool := cache.NewRedisPool(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
		defer pool.Close()

		store = cache.NewRedisStore(pool)
		sessionStore, err = redisStore.NewStoreWithPool(pool, []byte(cfg.SessionSecret))
		if err != nil {
			log.Fatalf("session store: %v", err)
		}
	default:
		memory, err := cache.NewMemoryStore(cfg.CacheSize)
		if err != nil {
			log.Fatalf("cache: %v", err)
		}
		store = memory
		sessionStore = cookie.NewStore([]byte(cfg.SessionSecret))
	}
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})

	hasher := security.NewPasswordHasher(bcrypt.DefaultCost)
	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	userService := services.NewUserService(userRepo, taskRepo, store, hasher, logger)
	taskService := services.NewTaskService(taskRepo, userService, store, logger)
	authService := services.NewAuthService(userRepo, taskRepo, hasher, tokens)
	suggestionService := services.NewSuggestionService(cfg.OpenAIAPIKey, userService)

	metrics.Register()
	checker := health.NewChecker(map[string]health.Pinger{
		"database": health.PingFunc(sqlDB.PingContext),
		"cache":    store,
	}, 2*time.Second, logger)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(router.Deps{
			Logger:       logger,
			SessionStore: sessionStore,
			Auth:         authService,
			Users:        userService,
			Tasks:        taskService,
			Suggestions:  suggestionService,
			Health:       checker,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.Port, "cache", cfg.CacheDriver, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	userService.Wait()
}
