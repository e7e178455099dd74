package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/zyptics/voice-receptionist/internal/api/router"
	"github.com/zyptics/voice-receptionist/internal/booking"
	"github.com/zyptics/voice-receptionist/internal/calllog"
	"github.com/zyptics/voice-receptionist/internal/callstatus"
	appconfig "github.com/zyptics/voice-receptionist/internal/config"
	"github.com/zyptics/voice-receptionist/internal/escalation"
	"github.com/zyptics/voice-receptionist/internal/http/handlers"
	"github.com/zyptics/voice-receptionist/internal/knowledge"
	"github.com/zyptics/voice-receptionist/internal/llm"
	"github.com/zyptics/voice-receptionist/internal/notify"
	"github.com/zyptics/voice-receptionist/internal/observability/metrics"
	"github.com/zyptics/voice-receptionist/internal/records"
	"github.com/zyptics/voice-receptionist/internal/session"
	"github.com/zyptics/voice-receptionist/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting voice-receptionist API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Record store: Postgres when configured, in-memory otherwise.
	var store records.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = records.NewPostgresStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, leads and call records are in-memory only")
		store = records.NewMemoryStore()
	}

	// Redis-backed call status store.
	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()
	statuses := callstatus.NewStore(rdb)

	// Summarization LLM, with an optional fallback model.
	var summarizer llm.Client
	if cfg.GeminiAPIKey != "" {
		primary, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer func() { _ = primary.Close() }()
		summarizer = primary
		if cfg.GeminiFallbackModel != "" {
			fallback, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiFallbackModel)
			if err != nil {
				logger.Error("failed to create fallback gemini client", "error", err)
				os.Exit(1)
			}
			defer func() { _ = fallback.Close() }()
			summarizer = llm.NewFallbackClient(primary, fallback, logger)
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, call records will keep raw transcripts")
	}

	// Notification channels.
	var email notify.EmailSender
	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			email = s
		}
	default:
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			email = s
		}
	}
	var sms notify.SMSSender
	if s := notify.NewTwilioSMSSender(notify.TwilioSMSConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
	}, logger); s != nil {
		sms = s
	}
	notifier := notify.NewService(email, sms, logger)

	// Calendar and booking pipeline. A missing calendar degrades bookings to
	// an apology instead of blocking startup.
	var calendar booking.Calendar
	gcal, err := booking.NewGoogleCalendar(ctx, booking.GoogleCalendarConfig{
		CredentialsFile: cfg.GoogleCredentialsFile,
		CalendarID:      cfg.CalendarID,
		Timezone:        cfg.BusinessTimezone,
	}, logger)
	if err != nil {
		logger.Warn("calendar unavailable, bookings disabled", "error", err)
	} else if gcal != nil {
		calendar = gcal
	}
	coordinator := booking.NewCoordinator(calendar, notifier, cfg.ReminderLeadTime, logger)

	// Escalation gate reporting back through our own status endpoint.
	reporter := escalation.NewHTTPStatusReporter(cfg.PublicBaseURL, logger)
	var statusReporter escalation.StatusReporter
	if reporter != nil {
		statusReporter = reporter
	}
	gate, err := escalation.NewGate(statusReporter, cfg.BusinessTimezone, cfg.FallbackContact, logger)
	if err != nil {
		logger.Error("invalid business timezone", "error", err)
		os.Exit(1)
	}

	recorder := calllog.New(summarizer, store, cfg.SummarizationTimeout, logger)

	// Dialogue policy over the knowledge base.
	kb := knowledge.Load(cfg.FAQPath, logger)
	policy := session.NewScriptedPolicy(cfg.BusinessName, kb)
	greeting := fmt.Sprintf("Hi, this is %s from %s. How can I help you today?", cfg.AgentName, cfg.BusinessName)

	registry := prometheus.NewRegistry()
	callMetrics := metrics.NewCallMetrics(registry)

	sessions := func(callSID, from string, speak handlers.SpeakFunc) handlers.CallSession {
		return session.New(session.Config{
			CallSID:  callSID,
			Greeting: greeting,
			Bridge:   session.SpeakerBridge{Speak: speak},
			Policy:   policy,
			Booker:   coordinator,
			Gate:     gate,
			Recorder: recorder,
			Leads:    store,
			Metrics:  callMetrics,
			Logger:   logger,
		})
	}

	voice := handlers.NewVoiceHandler(cfg.PublicBaseURL, cfg.ForwardingNumber, statuses, sessions, callMetrics, logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:         logger,
		Voice:          voice,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
