package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callbridge/internal/audit"
	"callbridge/internal/auth"
	"callbridge/internal/billing"
	"callbridge/internal/calls"
	"callbridge/internal/config"
	"callbridge/internal/httpapi"
	"callbridge/internal/messages"
	"callbridge/internal/notify"
	"callbridge/internal/numbers"
	"callbridge/internal/plans"
	"callbridge/internal/pricing"
	"callbridge/internal/renewal"
	"callbridge/internal/reporting"
	"callbridge/internal/routing"
	"callbridge/internal/telephony"
	"callbridge/internal/voicemail"
	"callbridge/internal/wallet"
	"callbridge/pkg/logger"
	"callbridge/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// planBillingSource joins the plan service's active-plan lookup with the
// repository's guarded minute consumption for the billing engine.
type planBillingSource struct {
	*plans.Service
	repo plans.Repository
}

func (p planBillingSource) ConsumeMinutes(ctx context.Context, planID string, minutes int) (bool, error) {
	return p.repo.ConsumeMinutes(ctx, planID, minutes)
}

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Persistence
	pricingRepo := pricing.NewPostgresRepo(db)
	numbersRepo := numbers.NewPostgresRepo(db)
	plansRepo := plans.NewPostgresRepo(db)
	recordStore := calls.NewPostgresRecordStore(db)
	tracker := calls.NewTracker(rdb)

	// Services
	walletSvc := wallet.NewService(db)
	numbersSvc := numbers.NewService(numbersRepo, pricingRepo, walletSvc)
	plansSvc := plans.NewService(plansRepo, pricingRepo, walletSvc, cfg.Billing.FUPMinutes)
	engine := billing.NewEngine(numbersSvc, pricingRepo, planBillingSource{Service: plansSvc, repo: plansRepo}, walletSvc)

	hub := notify.NewHub(log)
	resolver := routing.NewResolver(numbersSvc)
	provider := telephony.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)

	orchestrator := calls.NewOrchestrator(tracker, recordStore, resolver, engine, numbersSvc, hub, provider)
	voicemailSvc := voicemail.NewService(voicemail.NewPostgresRepo(db), tracker, resolver, recordStore, hub)
	messagesSvc := messages.NewService(messages.NewPostgresRepo(db), numbersSvc, pricingRepo, walletSvc, provider)
	reportsSvc := reporting.NewService(reporting.NewPostgresRepo(db))
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	webhooks := telephony.NewWebhookHandlers(orchestrator, voicemailSvc, messagesSvc, cfg.App.PublicURL)

	// Auto-renewal sweep for number rentals and plans.
	sweeper := renewal.NewSweeper(
		renewal.NewPostgresStore(db, walletSvc),
		pricingRepo,
		hub,
		cfg.Billing.RenewalInterval,
		log,
	)
	go sweeper.Run(rootCtx)

	handlers := httpapi.Handlers{
		Auth:       authManager,
		Wallet:     walletSvc,
		Numbers:    numbersSvc,
		NumberPool: numbersRepo,
		Plans:      plansSvc,
		Calls:      orchestrator,
		Messages:   messagesSvc,
		Voicemails: voicemailSvc,
		Reports:    reportsSvc,
		Pricing:    pricingRepo,
		Audit:      auditSvc,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, hub, authManager, webhooks,
		telephony.RequireSignature(cfg.Twilio.WebhookSecret, cfg.App.PublicURL))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
