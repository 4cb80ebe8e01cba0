package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kugelpos/kugel-backend/internal/auth"
	"github.com/kugelpos/kugel-backend/internal/config"
	"github.com/kugelpos/kugel-backend/internal/eventbus"
	"github.com/kugelpos/kugel-backend/internal/middleware"
	"github.com/kugelpos/kugel-backend/internal/notify"
	imgstorage "github.com/kugelpos/kugel-backend/internal/repository/storage"
	"github.com/kugelpos/kugel-backend/internal/stock"
	"github.com/kugelpos/kugel-backend/internal/storage"
	"github.com/kugelpos/kugel-backend/internal/websocket"
)

// Process bundles every process-wide singleton a cmd/*/main.go needs,
// built once here so each of the seven per-service mains (spec §0) wires
// identical infrastructure instead of duplicating the teacher's
// cmd/api/main.go setup seven times. Each main still owns its own Echo
// instance and mounts only the routes its service is responsible for.
type Process struct {
	Cfg   *config.Config
	Pool  *pgxpool.Pool
	Redis *redis.Client

	JWT            *middleware.AuthMiddleware
	APITokenAuth   *middleware.APITokenAuthMiddleware
	Dual           *middleware.DualAuthMiddleware
	TenantRegistry *auth.TenantRegistry

	Bus         *eventbus.LocalBus
	Dedupe      eventbus.Deduper
	Notifier    *notify.SlackNotifier
	WSHub       *websocket.Hub
	Hub         *Hub
	Images      *imgstorage.S3ImageRepository

	Republisher   *eventbus.Republisher
	Scheduler     *stock.Scheduler
	StockReaper   *stock.Reaper
	DeliveryReaper *eventbus.Reaper
}

// Bootstrap connects to Postgres and Redis, provisions the commons schema,
// and builds every process-wide collaborator. It does not start any
// background loop (Republisher/Scheduler/StockReaper/DeliveryReaper) or
// mount any route - callers decide which of those apply to their service.
func Bootstrap(ctx context.Context) (*Process, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Msg("connected to database")

	if err := storage.EnsureCommonsSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unreachable at startup, delivery dedupe claims will fail and subscribers will not process events")
	}

	jwt := middleware.NewAuthMiddleware(cfg.SecretKey, cfg.JWTAlgorithm, time.Duration(cfg.TokenExpireMinutes)*time.Minute)
	bus := eventbus.NewLocalBus()
	dedupe := eventbus.NewRedisDeduper(redisClient, 24*time.Hour)
	notifier := notify.NewSlackNotifier(cfg.SlackWebhookURL)
	wsHub := websocket.NewHub()

	hub := New(pool, cfg, jwt, bus, dedupe, notifier, wsHub)

	apiTokenAuth := middleware.NewAPITokenAuthMiddleware(hub)
	dual := middleware.NewDualAuthMiddleware(apiTokenAuth, jwt)

	commons := storage.NewPgGateway(pool, "")
	tenantRegistry := auth.NewTenantRegistry(commons, storage.NewPgGateway(pool, ""))

	var images *imgstorage.S3ImageRepository
	if cfg.S3.AccessKeyID != "" || cfg.S3.Endpoint != "" {
		images, err = imgstorage.NewS3ImageRepository(ctx, cfg.S3)
		if err != nil {
			log.Warn().Err(err).Msg("item image object store unavailable, upload endpoint will error")
		}
	}

	ebRepo := eventbus.NewRepository(commons)
	republisher := eventbus.NewRepublisher(ebRepo, bus, cfg.RepublishInterval, time.Duration(cfg.RepublishWindowHours)*time.Hour)
	deliveryReaper := eventbus.NewReaper(ebRepo, cfg.ReaperInterval, cfg.DeliveryStatusRetention)

	scheduler := stock.NewScheduler(hub.Schedules(), func(tenantID string) *stock.Repository {
		t, err := hub.Resolve(ctx, tenantID)
		if err != nil {
			log.Error().Err(err).Str("tenant_id", tenantID).Msg("snapshot scheduler could not resolve tenant")
			return nil
		}
		return t.StockRepo
	})
	stockReaper := stock.NewReaper(hub.Schedules(), func(tenantID string) *stock.Repository {
		t, err := hub.Resolve(ctx, tenantID)
		if err != nil {
			log.Error().Err(err).Str("tenant_id", tenantID).Msg("snapshot reaper could not resolve tenant")
			return nil
		}
		return t.StockRepo
	}, cfg.ReaperInterval)

	return &Process{
		Cfg: cfg, Pool: pool, Redis: redisClient,
		JWT: jwt, APITokenAuth: apiTokenAuth, Dual: dual, TenantRegistry: tenantRegistry,
		Bus: bus, Dedupe: dedupe, Notifier: notifier, WSHub: wsHub, Hub: hub, Images: images,
		Republisher: republisher, Scheduler: scheduler, StockReaper: stockReaper, DeliveryReaper: deliveryReaper,
	}, nil
}

// ServicePort resolves a per-service listen port: the named environment
// variable if set (each cmd/*/main.go reads its own, e.g. ACCOUNT_PORT),
// falling back to PORT (Cfg.Port) when it differs from the config default
// "8080", and finally to def.
// Distinct defaults let all seven binaries run side by side on one host.
func (p *Process) ServicePort(envVar, def string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if p.Cfg.Port != "" && p.Cfg.Port != "8080" {
		return p.Cfg.Port
	}
	return def
}

// NewEcho builds an *echo.Echo with the teacher's middleware stack
// (request ID, CORS, security headers, structured request logging,
// recover, rate limiting) - identical across every cmd/*/main.go.
func (p *Process) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     p.Cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-API-KEY"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	e.Use(zerologMiddleware())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter()))
	return e
}

// zerologMiddleware logs each request's method, path, status and latency,
// the same shape the teacher's request logging used.
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}

// Shutdown stops every background loop this service started and drains
// the shared collaborators, per spec §5's shutdown order: schedulers and
// reapers first (they only originate new work), then the websocket hub,
// then the gRPC channel pool, then storage/Redis last. Passing nil for a
// loop a given service never started is safe - callers only start the
// loops relevant to their own cmd/*/main.go.
func (p *Process) Shutdown() {
	if p.Scheduler != nil {
		p.Scheduler.Stop()
	}
	if p.Republisher != nil {
		p.Republisher.Stop()
	}
	if p.StockReaper != nil {
		p.StockReaper.Stop()
	}
	if p.DeliveryReaper != nil {
		p.DeliveryReaper.Stop()
	}
	p.WSHub.CloseAll()
	p.Hub.Shutdown()
	p.Redis.Close()
	p.Pool.Close()
}
