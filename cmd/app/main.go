package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fulfillment/cmd"
	apihttp "fulfillment/internal/adapters/in/http"
	"fulfillment/internal/pkg/tracing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	configs := getConfigs()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: configs.LogLevel}))
	slog.SetDefault(logger)

	tp, err := tracing.NewProvider("fulfillment", configs.TraceExporter, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	shutdownTracing := tracing.Install(tp)

	apiDoc, err := apihttp.LoadOpenAPI(context.Background())
	if err != nil {
		log.Fatalf("Invalid API document: %v", err)
	}

	app, err := cmd.NewCompositionRoot(configs, logger)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	jobManager, err := app.CreateJobManager()
	if err != nil {
		_ = app.Close()
		log.Fatalf("Failed to create jobs: %v", err)
	}
	if err = jobManager.StartAll(); err != nil {
		_ = app.Close()
		log.Fatalf("Failed to start jobs: %v", err)
	}

	startWebServer(app, apiDoc, configs.HTTPPort, logger)

	jobManager.StopAll()
	if err = app.Close(); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = shutdownTracing(flushCtx); err != nil {
		logger.Error("trace flush failed", "error", err)
	}
}

func getConfigs() cmd.Config {
	loadDotEnv()

	config, err := cmd.NewConfig(os.Getenv)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return config
}

// loadDotEnv reads .env when present; real environment variables win.
func loadDotEnv() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}
}

// startWebServer blocks until SIGINT or SIGTERM, then drains in-flight requests.
func startWebServer(app *cmd.CompositionRoot, apiDoc *openapi3.T, port string, logger *slog.Logger) {
	e := echo.New()
	e.HideBanner = true

	e.Use(
		middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogMethod:   true,
			LogURI:      true,
			LogStatus:   true,
			LogLatency:  true,
			LogError:    true,
			HandleError: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				level := slog.LevelInfo
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.LogAttrs(c.Request().Context(), level, "request",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Duration("latency", v.Latency),
				)
				return nil
			},
		}),
		apihttp.MetricsMiddleware(app.Metrics()),
		middleware.Recover(),
		apihttp.TraceContextMiddleware(),
	)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	e.GET("/metrics", echo.WrapHandler(app.MetricsHandler()))
	if err := apihttp.RegisterDocs(e, apiDoc); err != nil {
		logger.Error("api docs unavailable", "error", err)
	}

	app.CreateHTTPServer().Register(e, app.CreateWriteMiddleware()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(fmt.Sprintf("0.0.0.0:%s", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
}
