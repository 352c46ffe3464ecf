package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/fintrackapp/auth-service/internal/config"
	"github.com/fintrackapp/auth-service/internal/handler"
	"github.com/fintrackapp/auth-service/internal/repository"
	"github.com/fintrackapp/auth-service/internal/service"
	"github.com/fintrackapp/auth-service/internal/token"
	"github.com/fintrackapp/auth-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra   Infrastructure
	config  *config.Config
	router  *gin.Engine
	server  *http.Server
	sweeper *service.Sweeper
}

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	repos := repository.NewRepositories(infra.Postgres())
	logger := infra.Logger()

	issuer := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry.Duration)
	guard := service.NewAccountGuard(repos.User, cfg.Lockout.MaxFailedAttempts, cfg.Lockout.LockDuration.Duration, logger)
	rateLimiter := newRateLimiter(infra, cfg)
	notifier := service.NewNotifier(cfg.SMTP, logger)
	healthChecker := NewHealthChecker(infra)

	authService := service.NewAuthService(repos, issuer, guard, rateLimiter, notifier, cfg, logger)
	sessionService := service.NewSessionService(repos.User, repos.Token, logger)
	sweeper := service.NewSweeper(repos.User, repos.Token, repos.Verification, rateLimiter, cfg.Cleanup, logger)

	authHandler := handler.NewAuthHandler(authService, sessionService)

	router := gin.Default()
	router.Use(otelgin.Middleware("auth-service"))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, authHandler, authService, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:   infra,
		config:  cfg,
		router:  router,
		server:  srv,
		sweeper: sweeper,
	}
}

// newRateLimiter picks the limiter backend. Memory is the default; Redis
// shares windows across instances with the same check semantics.
func newRateLimiter(infra Infrastructure, cfg *config.Config) service.RateLimiter {
	if cfg.RateLimit.Backend == "redis" {
		return service.NewRedisRateLimiter(infra.Redis())
	}
	return service.NewMemoryRateLimiter()
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	authService service.AuthService,
	rateLimiter service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register",
				handler.RateLimitMiddleware(rateLimiter, service.OpRegister, cfg.RateLimit.RegisterMax, cfg.RateLimit.RegisterWindow.Duration, handler.IPBasedKey),
				authHandler.Register,
			)
			// Login is limited inside the service, after the lockout check.
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh",
				handler.RateLimitMiddleware(rateLimiter, service.OpRefresh, cfg.RateLimit.RefreshMax, cfg.RateLimit.RefreshWindow.Duration, handler.IPBasedKey),
				authHandler.Refresh,
			)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/logout-all", handler.AuthMiddleware(authService), authHandler.LogoutAll)
			auth.GET("/me", handler.AuthMiddleware(authService), authHandler.GetMe)

			auth.GET("/sessions", handler.AuthMiddleware(authService), authHandler.ListSessions)
			auth.DELETE("/sessions/:id", handler.AuthMiddleware(authService), authHandler.RevokeSession)

			auth.POST("/verify-email/request", authHandler.RequestEmailVerification)
			auth.POST("/verify-email/confirm", authHandler.ConfirmEmailVerification)
			auth.POST("/password-reset/request", authHandler.RequestPasswordReset)
			auth.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.sweeper.Run(sweepCtx)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
