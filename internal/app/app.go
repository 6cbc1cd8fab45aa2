package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"xlsxsplit/internal/config"
	apierrors "xlsxsplit/internal/errors"
	"xlsxsplit/internal/infrastructure"
	customMiddleware "xlsxsplit/internal/middleware"
	"xlsxsplit/internal/services"
	"xlsxsplit/internal/splitter"
	handlers "xlsxsplit/internal/transport/http"
	"xlsxsplit/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	SplitService  *services.SplitService
	HealthService *services.HealthService
	ErrorHandler  *apierrors.ErrorHandler
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	otel *customMiddleware.OTelMiddleware
}

// NewApplication loads configuration, logging and telemetry from the
// environment and wires the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.GetVersionString()))

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return New(cfg, logger, providers)
}

// New wires services, router and server from already initialised
// dependencies.
func New(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if providers == nil {
		return nil, errors.New("telemetry providers are required")
	}

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(providers, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
		otel:          otelMiddleware,
	}

	a.initializeServices()
	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() {
	pipeline := splitter.New(
		splitter.WithPrefix(a.Config.Splitter.ArchivePrefix),
		splitter.WithLogger(infrastructure.WithComponent(a.Logger, "splitter")),
	)

	a.SplitService = services.NewSplitService(pipeline, a.Logger,
		services.WithTracer(a.OTelProviders.Tracer),
		services.WithMetrics(a.otel.Metrics()),
	)
	a.HealthService = services.NewHealthService(contracts.Version, a.SplitService, a.Logger)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → StripSlashes → OTel → Logger → Recoverer → CORS → SecurityHeaders → RateLimit
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)
	r.Use(a.otel.Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.CORS(a.corsConfig()))
	r.Use(customMiddleware.SecurityHeaders)
	if rl := a.Config.Security.RateLimit; rl.Enabled {
		r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	splitHandler := handlers.NewSplitHandler(a.SplitService, a.ErrorHandler, a.Config, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	// The stream outlives the request timeout of the API group
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Get("/ws/split", splitHandler.Stream)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
			r.Use(apierrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)
			r.Mount("/split", splitHandler.Routes())
		})
	})

	a.Router = r
}

// corsConfig returns the CORS configuration of the security section
func (a *Application) corsConfig() customMiddleware.CORSConfig {
	cors := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			customMiddleware.RequestIDHeader,
			"Content-Disposition",
			"X-File-Count",
			"X-Rows-Read",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
	if a.Config.Security.EnableCORS {
		cors.AllowedOrigins = a.Config.Security.AllowedOrigins
	} else {
		// Same-origin only: no origin matches
		cors.AllowedOrigins = []string{"null"}
	}
	return cors
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start begins serving on ln, or on the configured port when ln is nil.
// A serve failure cancels the application context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc, ln net.Listener) error {
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", a.Server.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
		}
	}

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", ln.Addr().String()),
		slog.String("archive_prefix", a.SplitService.Prefix()),
		slog.Int64("max_upload_bytes", a.Config.Server.MaxUploadBytes))

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel, nil); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	// Shutdown needs a live context
	return a.Stop(context.Background())
}
