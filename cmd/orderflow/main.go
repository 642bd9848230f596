package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/webcrate/orderflow/internal/adapter/fsm"
	"github.com/webcrate/orderflow/internal/adapter/namecheap"
	"github.com/webcrate/orderflow/internal/adapter/otel"
	"github.com/webcrate/orderflow/internal/adapter/river"
	"github.com/webcrate/orderflow/internal/adapter/sqlite"
	"github.com/webcrate/orderflow/internal/adapter/stripe"
	"github.com/webcrate/orderflow/internal/adapter/whm"
	"github.com/webcrate/orderflow/internal/app"
	"github.com/webcrate/orderflow/internal/config"

	handler "github.com/webcrate/orderflow/internal/adapter/http"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		log.Fatalf("otel: %v", err)
	}

	// --- Storage ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		log.Fatalf("migrations: %v", err)
	}

	// --- Job queue ---
	riverClient, err := river.Setup(ctx, db)
	if err != nil {
		log.Fatalf("river: %v", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		log.Fatalf("river start: %v", err)
	}

	// --- Adapters (out) ---
	orders := otel.NewTracingOrderRepository(store.Orders())
	users := store.Users()

	registry := namecheap.NewClient(namecheap.Config{
		APIUser:  cfg.Namecheap.APIUser,
		APIKey:   cfg.Namecheap.APIKey,
		ClientIP: cfg.Namecheap.ClientIP,
		Sandbox:  cfg.Namecheap.Sandbox,
		Timeout:  cfg.ProviderTimeout,
	})
	registrar := otel.NewTracingDomainProvisioner(registry)

	hosting := otel.NewTracingHostingProvisioner(whm.NewClient(whm.Config{
		Host:     cfg.WHM.Host,
		Username: cfg.WHM.Username,
		APIToken: cfg.WHM.APIToken,
		Timeout:  cfg.ProviderTimeout,
	}))

	payments := stripe.NewClient(stripe.Config{
		SecretKey: cfg.Stripe.SecretKey,
		Timeout:   cfg.ProviderTimeout,
	})

	publisher := otel.NewTracingPublisher(river.NewPublisher(riverClient))
	validator := fsm.New()

	// --- Application ---
	fulfillment := app.NewFulfillmentService(orders, users, registrar, hosting, validator, publisher)
	orderSvc := app.NewOrderService(orders, registry, payments)
	userSvc := app.NewUserService(users)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(otelchi.Middleware("orderflow", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("orderflow", "0.1.0"))
	handler.Register(api, orderSvc, userSvc, registry)

	webhook := handler.NewWebhookHandler(cfg.Stripe.WebhookSecret, fulfillment, logger)
	router.Post("/webhooks/stripe", webhook.HandleStripeWebhook)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("orderflow listening", "port", cfg.Port)
		logger.Info("API docs available", "url", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-done
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		logger.Error("river shutdown", "error", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("otel shutdown", "error", err)
	}

	logger.Info("stopped")
}
