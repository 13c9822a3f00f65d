package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"wasla/internal/config"
	"wasla/internal/events"
	wlhttp "wasla/internal/http"
	"wasla/internal/infra"
	"wasla/internal/logger"
	"wasla/internal/maps"
	"wasla/internal/metrics"
	"wasla/internal/modules/audit"
	"wasla/internal/modules/inventory"
	"wasla/internal/modules/notification"
	"wasla/internal/modules/order"
	"wasla/internal/modules/push"
	"wasla/internal/modules/ticket"
	"wasla/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		zapLogger.Fatal("initialising firebase", zap.Error(err))
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		zapLogger.Fatal("initialising firebase auth", zap.Error(err))
	}
	fcm, err := infra.NewMessagingClient(ctx, app)
	if err != nil {
		zapLogger.Fatal("initialising firebase messaging", zap.Error(err))
	}

	promRegistry := prometheus.NewRegistry()
	metrics.Register(promRegistry)

	bus := events.NewBus(zapLogger)
	defer bus.Close()

	hub := realtime.NewHub(zapLogger)

	orderStore := order.NewPgStore(db)
	orderService := order.NewService(orderStore, bus, zapLogger)

	auditService := audit.NewService(audit.NewPgStore(db), zapLogger)

	pushRegistry := push.NewRegistry(
		push.NewPgStore(db),
		push.NewFCMSender(fcm, zapLogger),
		zapLogger,
		push.WithRetryPolicy(cfg.Push.MaxAttempts, cfg.Push.AttemptTimeout, 200*time.Millisecond),
	)

	var eta notification.ETAEstimator
	if cfg.Maps.APIKey != "" {
		etaService, err := maps.NewETAService(cfg.Maps.APIKey, db)
		if err != nil {
			zapLogger.Fatal("initialising maps client", zap.Error(err))
		}
		eta = etaService
	} else {
		zapLogger.Warn("maps api key not set, delivery ETAs disabled")
	}

	dispatcher := notification.NewDispatcher(
		notification.NewPgStore(db),
		notification.NewPgDirectory(db),
		hub,
		pushRegistry,
		notification.NewRedisDeduper(redisClient),
		eta,
		zapLogger,
	)

	inventoryService := inventory.NewService(inventory.NewPgStore(db), orderStore, bus, zapLogger)
	ticketService := ticket.NewService(ticket.NewPgStore(db), bus, zapLogger)

	// Every consumer gets its own subscription so a slow one cannot starve
	// the others.
	go auditService.Run(ctx, bus.Subscribe(256))
	go dispatcher.Run(ctx, bus.Subscribe(256))
	go inventoryService.Run(ctx, bus.Subscribe(256))
	go auditService.RunRetentionTicker(ctx, cfg.Audit.SweepInterval, cfg.Audit.RetentionDays, cfg.Audit.SweepBatch)

	router := wlhttp.NewRouter(wlhttp.RouterDeps{
		Verifier:           verifier,
		OrderService:       orderService,
		AuditService:       auditService,
		TicketService:      ticketService,
		NotificationStore:  notification.NewPgStore(db),
		PushRegistry:       pushRegistry,
		Hub:                hub,
		Registry:           promRegistry,
		Log:                zapLogger,
		AuditRetentionDays: cfg.Audit.RetentionDays,
		AuditSweepBatch:    cfg.Audit.SweepBatch,
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zapLogger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
