package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/config"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/transport/http/handlers"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/transport/http/middleware"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth       *usecase.AuthService
	Passwords  *usecase.PasswordService
	Accounts   *usecase.AccountService
	Onboarding *usecase.OnboardingService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Services    ServiceSet
	Sessions    port.SessionStore
	Users       port.UserRepository
	RateLimiter *middleware.RateLimiter
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if origins := deps.Config.App.CORSAllowedOrigins; len(origins) > 0 {
		r.Use(middleware.CORS(origins))
	}

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
		r.Use(metrics.Handler())
	} else {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessionGate := middleware.SessionGate(deps.Sessions, deps.Config.Session.CookieName)

	api := r.Group("/api")
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Sessions, deps.Config.Session, deps.Logger)
		if authMetrics, err := handlers.NewAuthMetrics(nil); err == nil {
			authHandler = authHandler.WithMetrics(authMetrics)
		} else {
			deps.Logger.Warn("auth metrics disabled", zap.Error(err))
		}
		passwordHandler := handlers.NewPasswordHandler(deps.Services.Passwords, deps.Sessions, deps.Config.Session, deps.Logger)

		authGroup := api.Group("/auth")
		authGroup.POST("/login", buildLoginMiddlewares(deps, authHandler.Login)...)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/change-password", passwordHandler.ChangePassword)
		authGroup.GET("/session", sessionGate, authHandler.Session)

		if deps.Services.Accounts != nil && deps.Services.Onboarding != nil {
			adminHandler := handlers.NewAdminHandler(deps.Services.Accounts, deps.Services.Onboarding, deps.Logger)

			adminGroup := api.Group("/admin")
			adminGroup.Use(sessionGate, middleware.RequireAdmin(deps.Users))
			adminGroup.POST("/users/:id/deactivate", adminHandler.DeactivateUser)
			adminGroup.POST("/users/:id/unlock", adminHandler.UnlockUser)
			adminGroup.POST("/employees/:id/terminate", adminHandler.TerminateEmployee)
			adminGroup.POST("/onboarding/run", adminHandler.RunOnboarding)
		}
	}

	return r
}

// buildLoginMiddlewares front-loads the login handler with a per-IP sliding
// window when a rate limiter is configured.
func buildLoginMiddlewares(deps Dependencies, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil {
		return []gin.HandlerFunc{handler}
	}

	limit := deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       "login",
		Limit:      10,
		Window:     time.Minute,
		Identifier: middleware.ClientIPIdentifier(),
	})
	return []gin.HandlerFunc{limit, handler}
}
