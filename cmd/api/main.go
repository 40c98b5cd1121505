package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backend-resto/internal/app"
	"github.com/noah-isme/backend-resto/internal/auth"
	"github.com/noah-isme/backend-resto/internal/cart"
	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/config"
	"github.com/noah-isme/backend-resto/internal/coupon"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/health"
	"github.com/noah-isme/backend-resto/internal/lock"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/order"
	"github.com/noah-isme/backend-resto/internal/pricing"
	"github.com/noah-isme/backend-resto/internal/ratelimit"
	"github.com/noah-isme/backend-resto/internal/resilience"
	"github.com/noah-isme/backend-resto/internal/reviews"
	"github.com/noah-isme/backend-resto/internal/rewards"
	"github.com/noah-isme/backend-resto/internal/security"
	"github.com/noah-isme/backend-resto/internal/user"
)

const defaultBodyLimit = 1 << 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "resto")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "resto-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	deps, err := app.Open(openCtx, cfg, app.Options{
		AppName:      "resto-api",
		Migrate:      cfg.DBAutoMigrate,
		RedisMetrics: metricsEnabled,
		Logger:       logger,
	})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close()

	queries := deps.Queries
	validate := validator.New(validator.WithRequiredStructEnabled())
	engine := pricing.NewEngine(cfg.PricingEngineConfig())

	notifiers := []events.Notifier{events.TaskNotifier{Client: deps.TaskClient}}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier := events.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := kafkaNotifier.Close(); err != nil {
				logger.Error().Err(err).Msg("close kafka writer")
			}
		}()
		notifiers = append(notifiers, events.GuardedNotifier{
			Next:     kafkaNotifier,
			Breaker:  resilience.NewBreaker("kafka", 5, 0.5, 30*time.Second),
			Attempts: 2,
			Backoff:  200 * time.Millisecond,
		})
	}
	bus := &events.Bus{Store: queries, Notifiers: notifiers}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries: queries,
		Cache:   catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogService})

	couponService := &coupon.Service{Q: queries}
	couponHandler := &coupon.Handler{Svc: couponService, Validate: validate}

	rewardsService := &rewards.Service{Q: queries, MilestoneStep: cfg.Rewards.MilestoneStep}
	rewardsHandler := &rewards.Handler{Svc: rewardsService}

	cartService := &cart.Service{
		Store:   &cart.Store{Client: deps.Redis, TTL: cfg.CartTTL},
		Dishes:  catalogService,
		Coupons: couponService,
		Points:  rewardsService,
		Engine:  engine,
	}
	cartHandler := &cart.Handler{Svc: cartService, Validate: validate}

	authService, err := auth.NewService(auth.Config{
		Queries:         queries,
		Tx:              deps.Tx,
		Bus:             bus,
		Secret:          cfg.Auth.JWTSecret,
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		Issuer:          cfg.Auth.Issuer,
		Audience:        cfg.Auth.Audience,
		WelcomeBonus:    cfg.Rewards.WelcomeBonus,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	csrf := security.CSRF{
		Domain:   cfg.Auth.CookieDomain,
		Secure:   cfg.Auth.CookieSecure,
		SameSite: cfg.Auth.CookieSameSite,
	}
	authHandler := &auth.Handler{
		Service:           authService,
		Validate:          validate,
		Carts:             cartService,
		RefreshCookieName: cfg.Auth.RefreshCookieName,
		CookieDomain:      cfg.Auth.CookieDomain,
		CookieSecure:      cfg.Auth.CookieSecure,
		CookieSameSite:    cfg.Auth.CookieSameSite,
		IssueCSRF:         csrf.Issue,
	}
	authMiddleware := auth.Middleware{Service: authService}
	authLimiter := ratelimit.Handler{
		Name:    "auth",
		Limiter: ratelimit.Limiter{Client: deps.Redis, Prefix: "ratelimit:"},
		Config: ratelimit.Config{
			Key:    ratelimit.KeyByIP("auth:"),
			Window: cfg.RateLimit.AuthWindow,
			Max:    cfg.RateLimit.AuthMax,
		},
	}

	userHandler := &user.Handler{
		Service: user.NewService(queries, deps.Tx),
		Images: user.ImageStore{
			Dir:          cfg.Upload.Dir,
			PublicBase:   cfg.Upload.PublicBase,
			MaxDimension: cfg.Upload.MaxDimension,
		},
		Validate:  validate,
		MaxUpload: cfg.Upload.MaxBytes,
	}

	orderService := &order.Service{
		Q:                 queries,
		Tx:                deps.Tx,
		Bus:               bus,
		Dishes:            catalogService,
		Coupons:           couponService,
		Carts:             cartService,
		Locker:            lock.Locker{R: deps.Redis, MaxWait: envDurationMillis("ORDER_LOCK_WAIT_MS", 3000)},
		Engine:            engine,
		EstimatedDelivery: cfg.Orders.EstimatedDelivery,
		LockTTL:           cfg.Orders.LockTTL,
	}
	orderHandler := &order.Handler{Service: orderService, Validate: validate}
	orderAdmin := &order.AdminHandler{Service: orderService}

	reviewHandler := &reviews.Handler{
		Svc: &reviews.Service{
			Q:           queries,
			Tx:          deps.Tx,
			Bus:         bus,
			Catalog:     catalogService,
			ReviewBonus: cfg.Rewards.ReviewBonus,
		},
		Validate: validate,
	}

	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}

	globalLimit, err := ratelimit.Global(deps.LimiterStore, cfg.RateLimit.Global)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise global rate limit")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.RouteSpanMiddleware)
	}
	if metricsEnabled {
		httpMetrics := obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", "")), nil)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:                envBool("SECURITY_HEADERS_ENABLED", true),
		EnableHSTS:            cfg.IsProduction(),
		HSTSIncludeSubdomains: true,
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", common.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Total-Count", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After", common.IdempotentReplayHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", !cfg.IsProduction()) {
		pprofUser := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pprofPass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(http.StripPrefix("/debug/pprof", newPprofMux()), pprofUser, pprofPass))
	}

	healthHandler := health.Handler{
		Checker:      health.Deps{Pool: deps.DB, Redis: deps.Redis},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	if base := strings.TrimRight(cfg.Upload.PublicBase, "/"); strings.HasPrefix(base, "/") {
		r.Handle(base+"/*", http.StripPrefix(base, http.FileServer(http.Dir(cfg.Upload.Dir))))
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(globalLimit)
		api.Use(security.BodyLimit{
			Max:       defaultBodyLimit,
			Overrides: map[string]int64{"/api/addresses/": cfg.Upload.MaxBytes + defaultBodyLimit},
		}.Middleware)

		api.Route("/auth", func(a chi.Router) {
			a.With(authLimiter.Middleware).Post("/signup", authHandler.Signup)
			a.With(authLimiter.Middleware).Post("/login", authHandler.Login)
			a.With(authLimiter.Middleware, csrf.Middleware).Post("/refresh", authHandler.Refresh)
			a.With(csrf.Middleware).Post("/logout", authHandler.Logout)
			a.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		api.With(authMiddleware.RequireAuth).Get("/users/{id}", userHandler.Get)

		api.Route("/addresses", func(a chi.Router) {
			a.Use(authMiddleware.RequireAuth)
			a.Get("/user/{userId}", userHandler.List)
			a.Post("/", userHandler.Create)
			a.Patch("/{id}", userHandler.Update)
			a.Delete("/{id}", userHandler.Delete)
			a.Post("/{id}/proof", userHandler.UploadProof)
		})

		api.Route("/dishes", func(d chi.Router) {
			d.Get("/", catalogHandler.Dishes)
			d.Get("/categories", catalogHandler.Categories)
			d.Get("/{id}", catalogHandler.Dish)
			d.Get("/{id}/reviews", reviewHandler.List)
			d.With(authMiddleware.RequireAuth).Post("/{id}/reviews", reviewHandler.Create)
		})

		api.Get("/coupons", couponHandler.List)
		api.Post("/coupons/preview", couponHandler.Preview)

		api.Route("/cart", func(c chi.Router) {
			c.Use(authMiddleware.RequireAuth)
			c.Get("/", cartHandler.Get)
			c.Delete("/", cartHandler.Clear)
			c.Get("/quote", cartHandler.Quote)
			c.Post("/items", cartHandler.AddItem)
			c.Patch("/items/{dishId}", cartHandler.UpdateItem)
			c.Delete("/items/{dishId}", cartHandler.RemoveItem)
			c.Put("/coupon", cartHandler.ApplyCoupon)
			c.Delete("/coupon", cartHandler.RemoveCoupon)
			c.Put("/points", cartHandler.SetPoints)
		})

		api.With(authMiddleware.RequireAuth).Get("/rewards/user/{userId}", rewardsHandler.ForUser)

		api.Route("/orders", func(o chi.Router) {
			o.Get("/statuses", orderHandler.Statuses)
			o.Group(func(authed chi.Router) {
				authed.Use(authMiddleware.RequireAuth)
				authed.With(idem.Middleware).Post("/", orderHandler.Place)
				authed.Get("/user/{userId}", orderHandler.ListByUser)
				authed.Get("/{id}", orderHandler.Get)
			})
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth)
			admin.Use(auth.RequireRole(auth.RoleAdmin))
			admin.Patch("/orders/{id}/status", orderAdmin.PatchStatus)
		})
	})

	var handler http.Handler = r
	if tracingEnabled {
		handler = obs.InstrumentHandler(r, "resto-api")
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	// Fail readiness first so the load balancer stops routing before connections close.
	health.SetReady(false)
	logger.Info().Msg("shutdown requested, draining")
	time.Sleep(envDurationMillis("SHUTDOWN_DRAIN_DELAY_MS", 0))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), envDurationMillis("SHUTDOWN_TIMEOUT_MS", 15000))
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
