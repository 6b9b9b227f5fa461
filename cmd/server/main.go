package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"careers-gateway/internal/api/handlers"
	"careers-gateway/internal/api/routes"
	"careers-gateway/internal/audit"
	"careers-gateway/internal/cms"
	"careers-gateway/internal/config"
	"careers-gateway/internal/crm"
	"careers-gateway/internal/logging"
	"careers-gateway/internal/metrics"
	"careers-gateway/internal/ratelimit"
	"careers-gateway/internal/submission"
	"careers-gateway/internal/turnstile"
	"careers-gateway/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(utils.GetStringOrDefault(os.Getenv("CONFIG_PATH"), "configs/config.yaml"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting Careers Gateway", map[string]interface{}{
		"environment": cfg.Environment,
		"version":     handlers.Version,
	})

	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	// Redis is optional; without it rate limits are per instance
	var redisClient *redis.Client
	if cfg.RedisConfigured() {
		redisClient, err = utils.NewRedisClient(context.Background(), cfg)
		if err != nil {
			logger.Error("Redis unavailable, falling back to in-memory rate limiting", map[string]interface{}{
				"error": err.Error(),
			})
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	recorder, err := audit.New(cfg)
	if err != nil {
		logger.Fatal("Failed to open audit store", map[string]interface{}{"error": err.Error()})
	}
	defer recorder.Close()

	collector := metrics.New()
	cmsClient := cms.NewClient(cfg)

	svc := submission.NewService(cfg, submission.Deps{
		Limiter:  ratelimit.New(cfg, redisClient),
		Verifier: turnstile.NewClient(cfg),
		CRM:      crm.New(cfg),
		CMS:      cmsClient,
		Audit:    recorder,
		Metrics:  collector,
		Logger:   logger,
	})

	e := echo.New()
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	routes.SetupRoutes(e, cfg, routes.Deps{
		Submissions: svc,
		Content:     cmsClient,
		Metrics:     collector,
		Probes:      readinessProbes(cfg, cmsClient, redisClient, recorder),
		Logger:      logger,
	})

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Server shutdown complete")
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{"address": address})

	if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
	}
}

// readinessProbes checks what a submission needs to succeed
func readinessProbes(cfg *config.Config, cmsClient *cms.Client, redisClient *redis.Client, recorder audit.Recorder) map[string]handlers.Probe {
	probes := map[string]handlers.Probe{
		"cms": func(ctx context.Context) error {
			if !cfg.CMSConfigured() {
				return errors.New("not configured")
			}
			return cmsClient.Ping(ctx)
		},
		"audit": recorder.Ping,
	}

	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	return probes
}
