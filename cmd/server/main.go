package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	campaignapp "github.com/familynest/backend/internal/application/campaign"
	capsuleapp "github.com/familynest/backend/internal/application/capsule"
	familyapp "github.com/familynest/backend/internal/application/family"
	"github.com/familynest/backend/internal/domain/campaign"
	"github.com/familynest/backend/internal/infrastructure/auth"
	"github.com/familynest/backend/internal/infrastructure/cache"
	"github.com/familynest/backend/internal/infrastructure/config"
	"github.com/familynest/backend/internal/infrastructure/crypto"
	"github.com/familynest/backend/internal/infrastructure/event"
	"github.com/familynest/backend/internal/infrastructure/logger"
	"github.com/familynest/backend/internal/infrastructure/mail"
	"github.com/familynest/backend/internal/infrastructure/persistence"
	"github.com/familynest/backend/internal/infrastructure/scheduler"
	"github.com/familynest/backend/internal/infrastructure/storage"
	"github.com/familynest/backend/internal/infrastructure/telemetry"
	"github.com/familynest/backend/internal/interfaces/http/handler"
	"github.com/familynest/backend/internal/interfaces/http/middleware"
	"github.com/familynest/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	apiName    = "Family Nest API"
	apiVersion = "1.0.0"
)

var healthPaths = []string{"/health", "/health/ready"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.Telemetry.ServiceName,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Family Nest",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("timezone", cfg.App.Timezone),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    apiVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    apiVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdown(log, "logger provider", logsProvider.Shutdown)
	log = logsProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileHeap:     true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      !cfg.App.IsProduction(),
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	sealer, err := crypto.NewSealer(cfg.Capsule.AgeIdentity, log)
	if err != nil {
		log.Fatal("Failed to initialize capsule sealer", zap.Error(err))
	}
	attachments, err := storage.NewAttachmentStore(&cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize attachment storage", zap.Error(err))
	}
	if s3Store, ok := attachments.(*storage.S3AttachmentStore); ok {
		bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := s3Store.EnsureBucket(bucketCtx); err != nil {
			log.Warn("Attachment bucket is not reachable", zap.String("bucket", s3Store.Bucket()), zap.Error(err))
		}
		cancel()
	}
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	capsuleRepo := persistence.NewGormCapsuleRepository(db.DB, sealer)
	memberRepo := persistence.NewGormMemberRepository(db.DB)
	familyRepo := persistence.NewGormFamilyRepository(db.DB)
	activityRepo := persistence.NewGormActivityRepository(db.DB)
	ledger := persistence.NewGormCampaignLedger(db.DB)

	loc := cfg.App.Location()

	eventBus := event.NewInMemoryEventBus(log, event.WithAsyncDispatch(2*time.Minute))
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	familyService := familyapp.NewService(memberRepo, eventBus, log, familyapp.WithLocation(loc))
	capsuleService := capsuleapp.NewService(capsuleRepo, memberRepo, attachments, log, capsuleapp.WithLocation(loc))

	evaluator := newEvaluator(cfg, log, meterProvider, campaignapp.Dependencies{
		Families: familyRepo,
		Members:  memberRepo,
		Activity: activityRepo,
		Capsules: capsuleRepo,
		Ledger:   ledger,
		Store:    idempotencyStore,
	})

	if evaluator != nil {
		passingNotices := event.NewIdempotentHandler(
			campaignapp.NewPassingNoticeHandler(evaluator, cfg.Campaign.PassingNoticesEnabled),
			idempotencyStore, log,
		)
		eventBus.Subscribe(passingNotices)
		log.Info("Event handlers registered",
			zap.Strings("passing_notice_events", passingNotices.EventTypes()),
			zap.Bool("passing_notices_enabled", cfg.Campaign.PassingNoticesEnabled),
		)
	}

	if cfg.Cron.InternalEnabled && evaluator != nil {
		schedule, err := scheduler.ParseDailySchedule(cfg.Cron.Schedule, loc)
		if err != nil {
			log.Fatal("Invalid cron schedule", zap.String("schedule", cfg.Cron.Schedule), zap.Error(err))
		}
		trigger := scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			Schedule:      schedule,
			CheckInterval: time.Minute,
		}, func(ctx context.Context, now time.Time) {
			if _, err := evaluator.SweepPending(ctx, now); err != nil {
				log.Warn("Failed to sweep pending campaign reservations", zap.Error(err))
			}
			evaluator.Run(ctx, now)
		}, log)
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		defer shutdown(log, "cron trigger", trigger.Stop)
		log.Info("Internal cron trigger started", zap.String("schedule", cfg.Cron.Schedule))
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
		SkipPaths:   healthPaths,
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(meterProvider))
	engine.Use(middleware.Profiling(middleware.ProfilingConfig{
		Enabled:   profiler.IsEnabled(),
		SkipPaths: healthPaths,
	}))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(&cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	checks := map[string]handler.Pinger{"database": db}
	if redisStore, ok := idempotencyStore.(handler.Pinger); ok && cfg.Redis.Enabled {
		checks["redis"] = redisStore
	}
	systemHandler := handler.NewSystemHandler(apiName, apiVersion, checks, log)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/health/ready", systemHandler.Ready)

	var runner handler.CampaignRunner
	if evaluator != nil {
		runner = evaluator
	}
	cronHandler := handler.NewCronHandler(runner, handler.CronHandlerConfig{
		Secret:            cfg.Cron.Secret,
		Preflight:         preflight(cfg),
		AllowDateOverride: !cfg.App.IsProduction(),
	})
	capsuleHandler := handler.NewCapsuleHandler(capsuleService)
	memberHandler := handler.NewMemberHandler(familyService)

	authenticated := []gin.HandlerFunc{
		middleware.JWTAuthMiddleware(auth.NewTokenValidator(cfg.JWT), log),
		middleware.ResolveMembership(familyService, log),
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	cronRoutes := router.NewDomainGroup("cron", "/cron")
	if cfg.HTTP.RateLimitEnabled {
		cronRoutes.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
	}
	cronRoutes.GET("/run", cronHandler.Run).Describe("Run scheduled campaigns (shared secret)")

	capsuleRoutes := router.NewDomainGroup("capsules", "/capsules").Use(authenticated...)
	capsuleRoutes.GET("", capsuleHandler.List).Describe("List capsule metadata").
		POST("", capsuleHandler.Create).Describe("Seal a capsule").
		GET("/:id", capsuleHandler.Get).Describe("Capsule detail").
		DELETE("/:id", capsuleHandler.Delete).Describe("Delete a capsule (sender only)")

	memberRoutes := router.NewDomainGroup("members", "/members").Use(authenticated...)
	memberRoutes.GET("/me", memberHandler.Me).Describe("Current membership").
		POST("/:id/passed", memberHandler.MarkPassed).Describe("Mark a member as passed (owner only)")

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo).Describe("Build information")

	r.Register(cronRoutes).
		Register(capsuleRoutes).
		Register(memberRoutes).
		Register(systemRoutes)
	r.Setup()

	for _, route := range r.Routes() {
		log.Debug("Route registered",
			zap.String("group", route.Group),
			zap.String("method", route.Method),
			zap.String("path", route.Path),
		)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newEvaluator builds the campaign evaluator, or returns nil when outbound
// mail cannot be set up. The cron endpoint then answers 500.
func newEvaluator(cfg *config.Config, log *zap.Logger, mp *telemetry.MeterProvider, deps campaignapp.Dependencies) *campaignapp.Evaluator {
	if !cfg.Mail.IsConfigured() {
		log.Warn("Mail is not configured; scheduled campaigns are disabled")
		return nil
	}
	mailer, err := mail.NewSender(&cfg.Mail, log)
	if err != nil {
		log.Error("Failed to initialize mail sender; scheduled campaigns are disabled", zap.Error(err))
		return nil
	}
	renderer, err := campaignapp.NewRenderer(cfg.App.BaseURL)
	if err != nil {
		log.Fatal("Failed to parse email templates", zap.Error(err))
	}
	deps.Mailer = mailer
	deps.Renderer = renderer

	var opts []campaignapp.EvaluatorOption
	metrics, err := telemetry.NewCampaignMetrics(mp.Meter("family-nest/campaign"))
	if err != nil {
		log.Warn("Campaign metrics unavailable", zap.Error(err))
	} else {
		opts = append(opts, campaignapp.WithMetrics(metrics))
	}

	return campaignapp.NewEvaluator(deps, campaignapp.EvaluatorConfig{
		From:             cfg.Mail.From,
		Location:         cfg.App.Location(),
		Mode:             campaign.Mode(cfg.Campaign.DripMode),
		BackfillGrace:    cfg.Campaign.BackfillGrace,
		BirthdayLeadDays: cfg.Campaign.BirthdayLeadDays,
		RunLockTTL:       cfg.Cron.LockTTL,
		PendingTimeout:   cfg.Campaign.PendingTimeout,
	}, log, opts...)
}

// preflight reports the configuration the scheduled run cannot do without
func preflight(cfg *config.Config) func() error {
	return func() error {
		if !cfg.Mail.IsConfigured() {
			return errors.New("outbound mail is not configured")
		}
		if !cfg.Database.IsConfigured() {
			return errors.New("database is not configured")
		}
		return nil
	}
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
