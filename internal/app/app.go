// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/whisperbox/whisperbox/internal/config"
	"github.com/whisperbox/whisperbox/internal/messages"
	messagespostgres "github.com/whisperbox/whisperbox/internal/messages/postgres"
	"github.com/whisperbox/whisperbox/internal/notifications"
	"github.com/whisperbox/whisperbox/internal/notifications/email"
	notificationspostgres "github.com/whisperbox/whisperbox/internal/notifications/postgres"
	"github.com/whisperbox/whisperbox/internal/notifications/telegram"
	"github.com/whisperbox/whisperbox/internal/notifications/whatsapp"
	"github.com/whisperbox/whisperbox/internal/pkg/ctxlog"
	"github.com/whisperbox/whisperbox/internal/pkg/httputil"
	"github.com/whisperbox/whisperbox/internal/pkg/metrics"
	"github.com/whisperbox/whisperbox/internal/pkg/postgres"
	"github.com/whisperbox/whisperbox/internal/ratelimit"
	ratelimitpostgres "github.com/whisperbox/whisperbox/internal/ratelimit/postgres"
	"github.com/whisperbox/whisperbox/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	if cfg.Database.Migrate {
		if err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	go app.collectDBMetrics(metricsCtx)

	router, err := app.setupRouter(metricsCtx)
	if err != nil {
		db.Close()
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) setupRouter(metricsCtx context.Context) (chi.Router, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(httputil.MetricsMiddleware)
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	senders, err := a.setupSenders()
	if err != nil {
		return nil, err
	}
	dispatcher := notifications.NewDispatcher(senders...)

	queueRepo := notificationspostgres.NewRepository(a.db)
	messagesRepo := messagespostgres.NewRepository(a.db)

	go a.collectQueueMetrics(metricsCtx, queueRepo)

	notifier := notifications.NewNotifier(queueRepo, messagesRepo, dispatcher, a.config.Notifications.BaseURL)
	processor := notifications.NewProcessor(notifications.ProcessorConfig{
		SendTimeout: a.config.Notifications.SendTimeout,
	}, queueRepo, dispatcher)
	notificationsHandler := notifications.NewHandler(processor, notifier, queueRepo, notifications.HandlerDefaults{
		BatchSize:     a.config.Notifications.DefaultBatchSize,
		RetentionDays: a.config.Notifications.RetentionDays,
	})

	ratelimitRepo := ratelimitpostgres.NewRepository(a.db)
	guard := ratelimit.NewGuard(ratelimitRepo, a.config.RateLimit.PolicyCacheTTL)
	ratelimitHandler := ratelimit.NewHandler(guard)

	messagesService := messages.NewService(messagesRepo, guard, notifier)
	messagesHandler := messages.NewHandler(messagesService)

	r.Route("/api/v1", func(r chi.Router) {
		messagesHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.CronSecretMiddleware(a.config.Auth.CronSecret))
			notificationsHandler.RegisterTriggerRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(httputil.AdminKeyMiddleware(a.config.Auth.AdminKeyHash))
			notificationsHandler.RegisterAdminRoutes(r)

			r.Route("/admin", func(r chi.Router) {
				ratelimitHandler.RegisterRoutes(r)
			})
		})
	})

	return r, nil
}

// setupSenders builds the channel senders that are enabled in config.
// Disabled channels get no sender, so dispatching to them fails fast.
func (a *App) setupSenders() ([]notifications.Sender, error) {
	var senders []notifications.Sender

	if a.config.Notifications.Telegram.Enabled {
		telegramSender, err := telegram.NewSender(telegram.Config{
			Enabled:   true,
			BotToken:  a.config.Notifications.Telegram.BotToken,
			RateLimit: a.config.Notifications.Telegram.RateLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("create telegram sender: %w", err)
		}
		senders = append(senders, telegramSender)
	}

	if a.config.Notifications.WhatsApp.Enabled {
		whatsappSender, err := whatsapp.NewSender(whatsapp.Config{
			Enabled:  true,
			APIToken: a.config.Notifications.WhatsApp.APIToken,
			APIURL:   a.config.Notifications.WhatsApp.APIURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create whatsapp sender: %w", err)
		}
		senders = append(senders, whatsappSender)
	}

	if a.config.Notifications.Email.Enabled {
		emailSender, err := email.NewSender(email.Config{
			Enabled:      true,
			SMTPHost:     a.config.Notifications.Email.SMTPHost,
			SMTPPort:     a.config.Notifications.Email.SMTPPort,
			SMTPUser:     a.config.Notifications.Email.SMTPUser,
			SMTPPassword: a.config.Notifications.Email.SMTPPassword,
			FromAddress:  a.config.Notifications.Email.FromAddress,
		})
		if err != nil {
			return nil, fmt.Errorf("create email sender: %w", err)
		}
		senders = append(senders, emailSender)
	}

	return senders, nil
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) collectQueueMetrics(ctx context.Context, repo notifications.Repository) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := repo.Stats(ctx)
			if err != nil {
				slog.Error("failed to get queue stats", "error", err)
				continue
			}
			notifications.RecordQueueStats(stats)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
