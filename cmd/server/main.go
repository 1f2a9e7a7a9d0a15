package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iliyamo/invoice-api/internal/config"
	"github.com/iliyamo/invoice-api/internal/database"
	"github.com/iliyamo/invoice-api/internal/handler"
	"github.com/iliyamo/invoice-api/internal/logger"
	"github.com/iliyamo/invoice-api/internal/metrics"
	"github.com/iliyamo/invoice-api/internal/middleware"
	"github.com/iliyamo/invoice-api/internal/payment"
	"github.com/iliyamo/invoice-api/internal/queue"
	"github.com/iliyamo/invoice-api/internal/repository"
	"github.com/iliyamo/invoice-api/internal/router"
	"github.com/iliyamo/invoice-api/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.Env)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database open", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("database migrate", zap.Error(err))
	}

	metrics.Init(prometheus.DefaultRegisterer)

	users := repository.NewUserRepo(db)
	tokens := service.NewTokenService(service.TokenConfig{
		AccessSecret:  []byte(cfg.AccessSecret),
		RefreshSecret: []byte(cfg.RefreshSecret),
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
	}, repository.NewTokenRepo(db), logger.WithComponent(log, "tokens"))
	auth, err := service.NewAuthService(users, tokens, cfg.BcryptCost, logger.WithComponent(log, "auth"))
	if err != nil {
		log.Fatal("auth service", zap.Error(err))
	}

	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, nil)
	payments := service.NewPaymentService(repository.NewInvoiceRepo(db), gateway, logger.WithComponent(log, "payments"))

	var publisher service.EventPublisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL, logger.WithComponent(log, "publisher"))
		consumer := &queue.Consumer{URL: cfg.RabbitURL, Dir: "logs", Log: logger.WithComponent(log, "payment-consumer")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("payment consumer stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set; invoice.paid events are not published")
	}
	reconciler := service.NewReconciler(gateway, repository.NewPaymentRepo(db), publisher, logger.WithComponent(log, "webhooks"))

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; auth rate limiting disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger.WithComponent(log, "ratelimit"))

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(log, cfg.IsDevelopment())
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
	}))
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger(logger.WithComponent(log, "http")))

	session := middleware.SessionAuth(tokens, users)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, handler.CookieConfig{Production: cfg.IsProduction()}), session, limiter)
	router.RegisterPayments(e, handler.NewPaymentHandler(payments), session)
	router.RegisterUsers(e, handler.NewUserHandler(service.NewUserService(users)), session)
	router.RegisterWebhooks(e, handler.NewWebhookHandler(reconciler))

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
