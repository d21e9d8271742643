package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetwise/internal/advice"
	"budgetwise/internal/auth"
	"budgetwise/internal/cache"
	"budgetwise/internal/cli"
	"budgetwise/internal/config"
	apphttp "budgetwise/internal/http"
	"budgetwise/internal/log"
	"budgetwise/internal/ports"
	"budgetwise/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	flush := cli.SetupTelemetry(ctx, logger, "budgetwise", cfg.OTelEndpoint)
	defer flush()

	store, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	var verifier *auth.Verifier
	if cfg.AuthEnabled() {
		verifier = auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthIssuer)
	} else {
		logger.Warn("AUTH_JWT_SECRET not set, every request is unauthenticated")
	}

	caches := cache.NewManager(logger)
	generator, provider := setupAdvice(ctx, cfg, caches, logger)
	go caches.Run(ctx, 10*time.Minute)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:           services.NewSessions(auth.Accessor{}, store.Backend, logger),
		Verifier:           verifier,
		Advice:             provider,
		Generator:          generator,
		Ready:              store.Ping,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, logger)
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting budgetwise server", "port", cfg.Port, log.FieldBackend, store.Type.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// setupAdvice wires the advice model and the provider the dashboard uses.
// With ADVICE_ENDPOINT set the dashboard calls that endpoint over HTTP;
// otherwise it calls the local generator directly.
func setupAdvice(ctx context.Context, cfg *config.Config, caches *cache.Manager, logger *log.Logger) (ports.AdviceGenerator, ports.AdviceProvider) {
	var generator ports.AdviceGenerator
	if cfg.GeminiAPIKey != "" {
		answers := cache.NewLRUCache[string](512, time.Hour)
		caches.Register(answers)
		g, err := advice.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, answers, logger)
		if err != nil {
			logger.Error("Advice generation disabled", log.FieldError, err)
		} else {
			generator = g
			logger.Info("Advice generation enabled", "model", cfg.GeminiModel)
		}
	}

	switch {
	case cfg.AdviceEndpoint != "":
		return generator, advice.NewClient(cfg.AdviceEndpoint, cfg.AdviceTimeout, logger)
	case generator != nil:
		return generator, advice.Local{Identity: auth.Accessor{}, Generator: generator}
	default:
		logger.Warn("No advice endpoint or model configured, advice panel shows the fallback")
		return nil, nil
	}
}
