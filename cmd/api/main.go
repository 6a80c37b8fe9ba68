package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/mossery/storefront-api/internal/cart"
	"github.com/mossery/storefront-api/internal/catalog"
	"github.com/mossery/storefront-api/internal/checkout"
	"github.com/mossery/storefront-api/internal/common"
	"github.com/mossery/storefront-api/internal/config"
	"github.com/mossery/storefront-api/internal/delivery"
	"github.com/mossery/storefront-api/internal/discount"
	"github.com/mossery/storefront-api/internal/events"
	"github.com/mossery/storefront-api/internal/health"
	"github.com/mossery/storefront-api/internal/obs"
	"github.com/mossery/storefront-api/internal/order"
	"github.com/mossery/storefront-api/internal/ratelimit"
)

const metricsNamespace = "storefront"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "storefront-api",
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "storefront-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	if cfg.MigrateOnStart {
		if err := runMigrations(cfg); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Str("path", cfg.MigrationsPath).Msg("migrations applied")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	validate := validator.New()
	mailer := common.NopEmailSender{}

	catalogStore := &catalog.PGStore{Pool: pool}
	catalogSvc := &catalog.Service{Store: catalogStore}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}

	discountStore := &discount.PGStore{Pool: pool}
	discountSvc := &discount.Service{Store: discountStore}
	discountHandler := &discount.Handler{Store: discountStore, Svc: discountSvc, Validate: validate}

	deliveryStore := &delivery.PGStore{Pool: pool}
	resolver := &delivery.Resolver{Store: deliveryStore}
	deliveryHandler := &delivery.Handler{Store: deliveryStore, Resolver: resolver, Validate: validate}

	cartSvc := &cart.Service{
		Snapshots: &cart.RedisSnapshotStore{Client: redisClient, TTL: cfg.CartSnapshotTTL},
		Catalog:   catalogSvc,
		Discounts: discountSvc,
		Delivery:  resolver,
		Address:   delivery.NewAddressValidator(),
		Policy: cart.Policy{
			PerItemMax:        cfg.CartPerItemMax,
			CartMax:           cfg.CartMaxTotalQty,
			FreeShippingBasis: cfg.FreeShippingBasis,
		},
		Logger: logger,
		OnSnapshotFailure: func() {
			if obs.CartSnapshotFailures != nil {
				obs.CartSnapshotFailures.Inc()
			}
		},
	}
	cartHandler := &cart.Handler{Svc: cartSvc, Validate: validate}

	eventStore := &events.PGStore{Pool: pool}
	bus := &events.Bus{Store: eventStore, Logger: logger}
	notifier := &checkout.ReceiptNotifier{Email: mailer, Logger: logger}
	notifier.Register(bus)

	orderStore := &order.PGStore{Pool: pool}
	orderHandler := &order.Handler{Store: orderStore}
	checkoutSvc := &checkout.Service{
		Carts:  cartSvc,
		Orders: orderStore,
		Bus:    bus,
		Logger: logger,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Validate: validate}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	limiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:"},
		Config: ratelimit.Config{
			Key:    ratelimit.KeyBySession,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}

	httpMetrics := obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(""), nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.MetricsMiddleware(httpMetrics))
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{Checker: health.Probe{Pool: pool, Redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.ProductDetail)
		v.Get("/delivery/{country}", deliveryHandler.GetZone)

		v.Route("/carts/{sessionId}", func(c chi.Router) {
			c.Get("/", cartHandler.GetCart)
			c.Get("/orders", orderHandler.ListBySession)

			c.Group(func(g chi.Router) {
				g.Use(limiter.Middleware)
				g.Use(idem.Middleware)
				g.Delete("/", cartHandler.ClearCart)
				g.Post("/items", cartHandler.AddItem)
				g.Patch("/items/{itemId}", cartHandler.SetQuantity)
				g.Delete("/items/{itemId}", cartHandler.RemoveItem)
				g.Post("/discount", cartHandler.AttachDiscount)
				g.Delete("/discount", cartHandler.ClearDiscount)
				g.Put("/delivery", cartHandler.SetDelivery)
				g.Delete("/delivery", cartHandler.ClearDelivery)
				g.Post("/checkout", checkoutHandler.PlaceOrder)
			})
		})

		v.Get("/orders/{orderId}", orderHandler.Get)

		v.Route("/admin", func(admin chi.Router) {
			admin.Post("/discounts", discountHandler.Create)
			admin.Put("/discounts/{code}", discountHandler.Update)
			admin.Get("/discounts", discountHandler.List)
			admin.Post("/discounts/preview", discountHandler.Preview)

			admin.Get("/delivery/zones", deliveryHandler.ListZones)
			admin.Put("/delivery/zones", deliveryHandler.UpsertZone)
			admin.Put("/delivery/zones/{country}/methods", deliveryHandler.UpsertMethod)
			admin.Patch("/delivery/zones/{country}/methods/{methodId}", deliveryHandler.SetMethodActive)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func runMigrations(cfg *config.Config) error {
	m, err := migrate.New("file://"+cfg.MigrationsPath, migrateDatabaseURL(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// migrateDatabaseURL maps the pool URL onto the pgx/v5 migrate driver scheme.
func migrateDatabaseURL(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "postgresql://") {
		return "pgx5://" + strings.TrimPrefix(databaseURL, "postgresql://")
	}
	if strings.HasPrefix(databaseURL, "postgres://") {
		return "pgx5://" + strings.TrimPrefix(databaseURL, "postgres://")
	}
	return databaseURL
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
