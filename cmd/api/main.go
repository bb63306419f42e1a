package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/prosaude/scheduling-platform/internal/api/router"
	"github.com/prosaude/scheduling-platform/internal/classify"
	"github.com/prosaude/scheduling-platform/internal/clock"
	appconfig "github.com/prosaude/scheduling-platform/internal/config"
	"github.com/prosaude/scheduling-platform/internal/events"
	"github.com/prosaude/scheduling-platform/internal/http/handlers"
	"github.com/prosaude/scheduling-platform/internal/messaging"
	"github.com/prosaude/scheduling-platform/internal/observability/metrics"
	"github.com/prosaude/scheduling-platform/internal/patients"
	"github.com/prosaude/scheduling-platform/internal/providers"
	"github.com/prosaude/scheduling-platform/internal/reminders"
	"github.com/prosaude/scheduling-platform/internal/scheduling"
	"github.com/prosaude/scheduling-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduling-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.ClinicTimezone,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	clk := clock.NewClinic(cfg.ClinicTimezone)

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	publisher := events.NewRedisPublisher(redisClient, logger)

	// Stores.
	providerStore := providers.NewStore(pool)
	patientStore := patients.NewStore(pool)
	apptStore := scheduling.NewStore(pool)
	reminderStore := reminders.NewStore(pool)

	// Scheduling core.
	bookingMetrics := metrics.NewBookingMetrics(nil)
	dispatchMetrics := metrics.NewDispatchMetrics(nil)
	engine := scheduling.NewEngine(apptStore, providerStore, cfg.SlotGranularity)
	lifecycle := reminders.NewLifecycle(reminderStore, apptStore, logger)
	booker := scheduling.NewBooker(scheduling.BookerConfig{
		Store:            apptStore,
		Engine:           engine,
		Directory:        providerStore,
		Patients:         patientStore,
		Reminders:        lifecycle,
		Publisher:        publisher,
		Clock:            clk,
		Logger:           logger,
		Metrics:          bookingMetrics,
		AlternativeSlots: cfg.AlternativeSlots,
	})

	// Outbound messaging.
	messenger, providerName, reason := messaging.BuildMessenger(messaging.ProviderSelectionConfig{
		Preference:       cfg.MessagingProvider,
		WhatsAppToken:    cfg.WhatsAppAccessToken,
		WhatsAppPhoneID:  cfg.WhatsAppPhoneNumberID,
		WhatsAppBaseURL:  cfg.WhatsAppBaseURL,
		TwilioAccountSID: cfg.TwilioAccountSID,
		TwilioAuthToken:  cfg.TwilioAuthToken,
		TwilioFromNumber: cfg.TwilioFromNumber,
		Retry:            messaging.DefaultRetryPolicy,
	}, logger)
	if messenger == nil {
		logger.Warn("no messaging provider configured, reminders will fail to send", "reason", reason)
	} else {
		logger.Info("messaging provider selected", "provider", providerName)
	}

	// Intent classification. Bedrock when a model is configured, with the
	// keyword matcher as offline fallback; keyword-only otherwise.
	var classifier classify.Classifier = classify.KeywordClassifier{}
	if cfg.BedrockModelID != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		bedrockClient := bedrockruntime.NewFromConfig(awsCfg)
		classifier = classify.NewBedrockClassifier(bedrockClient, cfg.BedrockModelID, classify.KeywordClassifier{}, logger)
	}

	// Reminder dispatch loop.
	templates := reminders.TemplateSet{
		Name24h:  cfg.Template24h,
		Name2h:   cfg.Template2h,
		Language: "pt_BR",
	}
	dispatcher := reminders.NewDispatcher(reminders.DispatcherConfig{
		Store:       reminderStore,
		Appts:       apptStore,
		Patients:    patientStore,
		Providers:   providerStore,
		Messenger:   messenger,
		Templates:   templates,
		Publisher:   publisher,
		Clock:       clk,
		Logger:      logger,
		Metrics:     dispatchMetrics,
		Tolerance:   cfg.DueWindowTolerance,
		MaxAttempts: cfg.ReminderMaxAttempts,
	})
	runner := reminders.NewRunner(dispatcher, cfg.DispatchInterval, logger)
	go runner.Run(ctx)

	resolver := reminders.NewResolver(reminderStore, apptStore, classifier, clk, cfg.ConfidenceThreshold, dispatchMetrics, logger)

	// HTTP surface.
	appointmentsHandler := handlers.NewAppointmentsHandler(booker, engine, clk, cfg.DefaultDuration, logger)
	repliesHandler := handlers.NewRepliesHandler(resolver, logger)
	adminHandler := handlers.NewAdminRemindersHandler(reminderStore, lifecycle, clk, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		Appointments:    appointmentsHandler,
		Replies:         repliesHandler,
		AdminReminders:  adminHandler,
		AdminAuthSecret: cfg.AdminJWTSecret,
		MetricsHandler:  promhttp.Handler(),
		HealthCheck:     healthCheck(pool),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func healthCheck(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded","database":"down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
