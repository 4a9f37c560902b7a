package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/hospital-voicebot/cmd/mainconfig"
	"github.com/wolfman30/hospital-voicebot/internal/api/router"
	"github.com/wolfman30/hospital-voicebot/internal/app/bootstrap"
	"github.com/wolfman30/hospital-voicebot/internal/appointments"
	appconfig "github.com/wolfman30/hospital-voicebot/internal/config"
	"github.com/wolfman30/hospital-voicebot/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/hospital-voicebot/internal/http/middleware"
	"github.com/wolfman30/hospital-voicebot/internal/observability/metrics"
	"github.com/wolfman30/hospital-voicebot/internal/voice"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

type appMetrics struct {
	retrieval    *metrics.RetrievalMetrics
	appointments *metrics.AppointmentMetrics
	voice        *metrics.VoiceMetrics
}

func setupMetrics() (http.Handler, appMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := appMetrics{
		retrieval:    metrics.NewRetrievalMetrics(reg),
		appointments: metrics.NewAppointmentMetrics(reg),
		voice:        metrics.NewVoiceMetrics(reg),
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), m
}

// voiceAPIs keeps nil clients as nil interfaces so the handler can tell a
// platform is not configured.
func voiceAPIs(vapi *voice.VapiClient, retell *voice.RetellClient) (handlers.VapiAPI, handlers.RetellAPI) {
	var v handlers.VapiAPI
	if vapi != nil {
		v = vapi
	}
	var r handlers.RetellAPI
	if retell != nil {
		r = retell
	}
	return v, r
}

func cmdable(client *redis.Client) redis.Cmdable {
	if client == nil {
		return nil
	}
	return client
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting hospital voice bot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, m := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	loadAWS := func(ctx context.Context) (aws.Config, error) { return mainconfig.LoadAWSConfig(ctx, cfg) }
	embedder, err := bootstrap.BuildEmbedder(ctx, cfg, loadAWS, cmdable(redisClient), m.retrieval, logger.Component("embedding"))
	if err != nil {
		return err
	}
	cache := bootstrap.BuildResponseCache(cfg, cmdable(redisClient), logger)

	rag, err := bootstrap.BuildRetrievalService(cfg, embedder, cache, m.retrieval, logger.Component("retrieval"))
	if err != nil {
		return err
	}
	if err := rag.Start(ctx); err != nil {
		return fmt.Errorf("start retrieval service: %w", err)
	}
	kb, err := rag.Knowledge()
	if err != nil {
		return err
	}

	store, closeStore, err := bootstrap.BuildAppointmentStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	appts := appointments.NewService(store,
		appointments.WithMetrics(m.appointments),
		appointments.WithLogger(logger.Component("appointments")),
	)

	dispatcher, err := voice.NewDispatcher(voice.Options{
		Finder:    rag,
		Directory: kb,
		Scheduler: appts,
		Metrics:   m.voice,
		Logger:    logger.Component("voice"),
	})
	if err != nil {
		return err
	}
	vapiClient, retellClient := bootstrap.BuildVoiceClients(cfg, logger)
	vapiAPI, retellAPI := voiceAPIs(vapiClient, retellClient)

	limiter := httpmiddleware.NewRateLimiter(cfg.WebhookRateLimit, cfg.WebhookBurst)
	go limiter.Run(ctx)

	r := router.New(&router.Config{
		Logger:       logger,
		Health:       handlers.NewHealthHandler(rag, vapiAPI != nil || retellAPI != nil, true),
		Doctors:      handlers.NewDoctorHandler(rag, kb, logger),
		Appointments: handlers.NewAppointmentHandler(appts, logger),
		Voice: handlers.NewVoiceHandler(handlers.VoiceHandlerConfig{
			Dispatcher: dispatcher,
			Hospital:   kb.HospitalInfo(),
			Vapi:       vapiAPI,
			Retell:     retellAPI,
			Metrics:    m.voice,
			Logger:     logger,
		}),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		WebhookLimiter:     limiter,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
