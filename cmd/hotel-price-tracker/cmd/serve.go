package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/donaldgifford/hotel-price-tracker/api/openapi"
	"github.com/donaldgifford/hotel-price-tracker/internal/api/handlers"
	"github.com/donaldgifford/hotel-price-tracker/internal/api/middleware"
	"github.com/donaldgifford/hotel-price-tracker/internal/engine"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	logger := rt.log
	cfg := rt.cfg

	if err := rt.store.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	sched, err := engine.NewScheduler(rt.monitor, rt.store, engine.ScheduleConfig{
		CheckInterval:   cfg.Schedule.CheckInterval,
		CleanupInterval: cfg.Schedule.CleanupInterval,
		DigestDaily:     cfg.Schedule.DigestDaily,
		DigestWeekly:    cfg.Schedule.DigestWeekly,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.RecoverStaleJobRuns(ctx)

	queue := engine.NewQueue(rt.monitor, cfg.Server.QueueSize, logger)
	queueCtx, stopQueue := context.WithCancel(context.Background())
	defer stopQueue()
	queue.Start(queueCtx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(middleware.Recovery(logger))
	e.Use(echo.WrapMiddleware(otelhttp.NewMiddleware(cfg.Tracing.ServiceName)))
	e.Use(middleware.RequestLog(logger))
	e.Use(middleware.Metrics())

	handlers.RegisterHealthRoutes(e, handlers.NewHealthHandler(rt.store))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	humaCfg := huma.DefaultConfig("Hotel Price Tracker API", Version)
	humaCfg.DocsPath = ""
	humaCfg.OpenAPIPath = ""
	api := humaecho.New(e, humaCfg)
	openapi.RegisterRoutes(e, api)

	handlers.RegisterBookingRoutes(api, handlers.NewBookingHandler(rt.store, rt.monitor))
	handlers.RegisterAlertRoutes(api, handlers.NewAlertHandler(rt.store, rt.monitor))
	handlers.RegisterSettingsRoutes(api, handlers.NewSettingsHandler(rt.store))
	handlers.RegisterCheckRoutes(api, handlers.NewCheckHandler(rt.monitor, queue))
	handlers.RegisterQuotaRoutes(api, handlers.NewQuotaHandler(rt.limiter))
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(rt.store, sched))

	sched.Start()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server", "addr", addr, "version", Version, "jobs", sched.Jobs())

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down server")

	<-sched.Stop().Done()
	stopQueue()
	queue.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
