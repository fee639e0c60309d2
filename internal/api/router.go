package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/edustream/session-system/internal/api/handler"
	"github.com/edustream/session-system/internal/api/middleware"
	"github.com/edustream/session-system/internal/core/domain"
	"github.com/edustream/session-system/internal/core/ports"
	"github.com/edustream/session-system/internal/core/service"
	"github.com/edustream/session-system/internal/infrastructure/config"
	mongodb "github.com/edustream/session-system/internal/infrastructure/db/mongo"
	redisdb "github.com/edustream/session-system/internal/infrastructure/db/redis"
	"github.com/edustream/session-system/pkg/cookie"
	"github.com/edustream/session-system/pkg/retry"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, notifier ports.Notifier, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("session"))

	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Dependencies ---
	deviceRegistry := mongodb.NewDeviceRegistry(db, cfg.Session.MaxDevices)
	profileRepo := mongodb.NewProfileRepository(db)
	sessionStore := redisdb.NewSessionStore(rdb)

	deviceService := service.NewDeviceService(deviceRegistry, log)
	policy := retry.Policy{
		MaxAttempts: cfg.Session.RetryMaxAttempts,
		BaseDelay:   cfg.Session.RetryBaseDelay,
		IsTransient: domain.IsTransient,
	}
	resolver := service.NewResolver(profileRepo, deviceService, sessionStore, policy, cfg.Session.CookieTTL, log)
	cookies := cookie.NewManager(cfg.Session.CookieName, cfg.Session.SecureCookies)

	sessionHandler := handler.NewSessionHandler(
		resolver, cookies, sessionStore, deviceService, profileRepo,
		notifier, cfg.Session.UnregisterTimeout, log,
	)
	deviceHandler := handler.NewDeviceHandler(deviceService)
	pushHandler := handler.NewPushHandler()

	identityAuth := middleware.Auth(cfg.JWTSecret)
	sessionGate := middleware.SessionGate(cookies, sessionStore)

	// --- Session lifecycle ---
	e.POST("/session/refresh", sessionHandler.Refresh, identityAuth)
	e.POST("/session/logout", sessionHandler.Logout)
	e.GET("/session", sessionHandler.Current, sessionGate)

	// --- Device quota registry ---
	e.POST("/devices", deviceHandler.Register, identityAuth)
	e.GET("/devices", deviceHandler.List, identityAuth)
	e.DELETE("/devices/:deviceId", deviceHandler.Unregister, identityAuth)
	e.POST("/devices/reset", deviceHandler.Reset, identityAuth, middleware.RBAC(domain.RoleAdmin))

	// --- External collaborators ---
	e.POST("/push/tokens", pushHandler.Register, sessionGate)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
