package main

import (
	"context"
	"log"
	"net/url"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/config"
	"github.com/repart/marketplace/internal/database"
	"github.com/repart/marketplace/internal/handler"
	"github.com/repart/marketplace/internal/middleware"
	"github.com/repart/marketplace/internal/queue"
	"github.com/repart/marketplace/internal/repository"
	"github.com/repart/marketplace/internal/router"
	"github.com/repart/marketplace/internal/service"
	"github.com/repart/marketplace/internal/utils"
	"github.com/repart/marketplace/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if err := utils.InitLogger(cfg.Env); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer utils.SyncLogger()
	logger := utils.Logger()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	// Redis is optional; with no client the rate limiter and cache become
	// pass-throughs.
	rdb := config.NewRedisClient()

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	codes := repository.NewVerificationCodeRepo(db)
	passkeys := repository.NewPasskeyRepo(db)
	backup := repository.NewBackupCodeRepo(db)
	listings := repository.NewListingRepo(db)
	orders := repository.NewOrderRepo(db)
	disputes := repository.NewDisputeRepo(db)
	payouts := repository.NewPayoutRepo(db)
	carts := repository.NewCartRepo(db)
	addresses := repository.NewAddressRepo(db)
	messages := repository.NewMessageRepo(db)
	catalog := repository.NewCatalogRepo(db)
	notifications := repository.NewNotificationRepo(db)
	audit := repository.NewAuditRepo(db)

	// Outbound integrations.
	var sms service.SMSSender
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		sms = service.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
	} else {
		sms = &service.LogSender{Log: logger}
	}

	wa, err := newWebAuthn(cfg)
	if err != nil {
		logger.Fatal("webauthn config", zap.Error(err))
	}

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, tokens, backup)
	h := &router.Handlers{
		Auth:      authH,
		Reset:     &handler.PasswordResetHandler{Cfg: cfg, Users: users, Codes: codes, Tokens: tokens, SMS: sms, Log: logger},
		Phone:     &handler.PhoneAuthHandler{Cfg: cfg, Users: users, Codes: codes, Auth: authH, SMS: sms, Log: logger},
		TwoFactor: &handler.TwoFactorHandler{Cfg: cfg, Users: users, Backup: backup, Auth: authH},
		Passkeys:  handler.NewPasskeyHandler(wa, users, passkeys, authH),
		Listings:  handler.NewListingHandler(cfg, listings, catalog),
		Orders:    handler.NewOrderHandler(db, orders, listings, payouts, carts, logger),
		Disputes:  handler.NewDisputeHandler(db, orders, disputes),
		Carts:     handler.NewCartHandler(carts),
		Addresses: handler.NewAddressHandler(addresses),
		Messages:  handler.NewMessageHandler(messages, users),
		Profile:   handler.NewProfileHandler(cfg, users, tokens),
		Uploads:   handler.NewUploadHandler(cfg),

		AdminUsers:         handler.NewAdminUserHandler(users, tokens, audit, logger),
		AdminListings:      handler.NewAdminListingHandler(listings, audit, logger),
		AdminDisputes:      handler.NewAdminDisputeHandler(db, disputes, orders, payouts, audit, logger),
		AdminFinance:       handler.NewAdminFinanceHandler(db, orders, payouts, audit, logger),
		AdminCatalog:       handler.NewAdminCatalogHandler(catalog, audit, logger),
		AdminNotifications: handler.NewAdminNotificationHandler(notifications, audit, logger),
		AdminAudit:         handler.NewAdminAuditHandler(audit),
	}
	deps := router.Deps{
		Cfg:       cfg,
		Users:     users,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Static(cfg.UploadBase, cfg.UploadDir)

	router.RegisterRoutes(e)
	router.RegisterPublic(e, h, deps)
	router.RegisterAuth(e, h, deps)
	router.RegisterUser(e, h, deps)
	router.RegisterAdmin(e, h, deps)

	// Background workers.
	sweeper := &worker.EscrowSweeper{
		DB:       db,
		Orders:   orders,
		Payouts:  payouts,
		Interval: cfg.SweepInterval,
		HoldFor:  cfg.EscrowHoldTTL,
		Log:      logger,
	}
	go sweeper.Run(context.Background())

	consumer := &queue.BroadcastConsumer{
		URL:           service.BrokerURL(),
		Users:         users,
		Notifications: notifications,
		SMS:           sms,
		Log:           logger,
	}
	go consumer.Start()

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// newWebAuthn derives the passkey relying-party configuration from the
// public app URL.
func newWebAuthn(cfg config.Config) (*webauthn.WebAuthn, error) {
	u, err := url.Parse(cfg.AppURL)
	if err != nil {
		return nil, err
	}
	return webauthn.New(&webauthn.Config{
		RPDisplayName: "Repart",
		RPID:          u.Hostname(),
		RPOrigins:     []string{cfg.AppURL},
	})
}
