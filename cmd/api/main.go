package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/artisanmarket/promo-engine/internal/audit"
	"github.com/artisanmarket/promo-engine/internal/config"
	"github.com/artisanmarket/promo-engine/internal/database"
	"github.com/artisanmarket/promo-engine/internal/handlers"
	"github.com/artisanmarket/promo-engine/internal/inventory"
	"github.com/artisanmarket/promo-engine/internal/ledger"
	"github.com/artisanmarket/promo-engine/internal/models"
	"github.com/artisanmarket/promo-engine/internal/notify"
	"github.com/artisanmarket/promo-engine/internal/promotion"
	"github.com/artisanmarket/promo-engine/internal/routes"
)

func main() {
	// 0. --- Logger And Configuration ---
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warn("Unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Database Connection ---
	db, err := database.OpenDB(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to primary database")
	}
	defer db.Close()

	// 2. --- Services ---
	auditStore := audit.NewStore(db)
	auditLog := audit.NewLog(auditStore, time.Now)
	products := inventory.NewStore(db, time.Now)
	scheduler := inventory.NewScheduler(products, inventory.WithInterval(cfg.RestorationInterval))
	catalog := promotion.NewCatalog(db, auditLog, time.Now)
	wallets := ledger.NewWallets(db, time.Now)
	revenue := ledger.NewRevenue(db)
	notifier := notify.New(db, time.Now)
	lifecycle := promotion.NewLifecycle(promotion.Deps{
		DB:       db,
		Features: promotion.NewFeatureStore(db),
		Catalog:  catalog,
		Products: products,
		Wallets:  wallets,
		Revenue:  revenue,
		Audit:    auditLog,
		Notifier: notifier,
	})

	app := &handlers.Handlers{
		Inventory:  inventory.NewService(products, scheduler, auditLog),
		Catalog:    catalog,
		Promotions: lifecycle,
		Wallets:    wallets,
		Revenue:    revenue,
		Audit:      auditLog,
		AuditStore: auditStore,
		Notifier:   notifier,
	}

	// 3. --- Background Workers ---
	scheduler.Start(ctx, products, func(updated []models.Product) {
		log.WithField("count", len(updated)).Info("Inventory restored")
	})
	defer scheduler.Stop()

	sweeper := promotion.NewSweeper(lifecycle, cfg.ExpirationInterval, time.Now)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// 4. --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRouter(app, cfg.JWTSecret, cfg.CORSOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("Starting promo engine API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}
