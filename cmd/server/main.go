package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/truck-storefront/internal/config"
	"github.com/ignatzorin/truck-storefront/internal/db"
	"github.com/ignatzorin/truck-storefront/internal/goroutine"
	httpHandlers "github.com/ignatzorin/truck-storefront/internal/http/handlers"
	"github.com/ignatzorin/truck-storefront/internal/http/middleware"
	httpRouter "github.com/ignatzorin/truck-storefront/internal/http/router"
	"github.com/ignatzorin/truck-storefront/internal/logger"
	"github.com/ignatzorin/truck-storefront/internal/repository"
	"github.com/ignatzorin/truck-storefront/internal/service"
	"github.com/ignatzorin/truck-storefront/internal/sms"
)

const rateLimitPrefix = "truck-storefront:otp"

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.IsProduction() {
		logger.Init("info")
	} else {
		logger.Init("debug")
		logger.SetTextFormatter()
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.WithError(err).Fatal("main: ошибка подключения к базе")
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, db.Migrations()); err != nil {
		logger.Log.WithError(err).Fatal("main: ошибка миграций")
	}

	// Общие счётчики лимитов, если задан Redis.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.WithError(err).Fatal("main: некорректный REDIS_URL")
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	limiterStore, err := middleware.NewLimiterStore(rdb, rateLimitPrefix)
	if err != nil {
		logger.Log.WithError(err).Fatal("main: не удалось подготовить хранилище лимитов")
	}

	// Репозитории.
	otpRepo := repository.NewOTPRepository(dbConn)
	truckRepo := repository.NewTruckRepository(dbConn)
	inquiryRepo := repository.NewInquiryRepository(dbConn)

	// Отправка SMS: без ключа в разработке коды пишутся в лог.
	var sender sms.Sender = sms.NewHTTPClient(cfg.SMS.APIKey, cfg.SMS.BaseURL, cfg.SMS.Sender, cfg.OTP.Expiry)
	if cfg.SMS.APIKey == "" && !cfg.IsProduction() {
		logger.Log.Warn("main: SMS_API_KEY не задан, коды подтверждения выводятся в лог")
		sender = sms.LogSender{}
	}

	// Сервисы.
	tokens := service.NewGrantTokenManager(cfg.OTP.TokenSecret)
	passcodes := service.NewPasscodeGenerator(cfg.OTP.CodeLength, cfg.OTP.HashSecret)
	otpService := service.NewOTPService(otpRepo, sender, passcodes, tokens, service.OTPSettings{
		Expiry:          cfg.OTP.Expiry,
		ResendCooldown:  cfg.OTP.ResendCooldown,
		VerificationTTL: cfg.OTP.VerificationTTL,
		MaxAttempts:     cfg.OTP.MaxAttempts,
		Production:      cfg.IsProduction(),
	})
	gate := service.NewOTPGate(otpRepo, tokens, cfg.OTP.VerificationTTL)
	truckService := service.NewTruckService(truckRepo)
	inquiryService := service.NewInquiryService(inquiryRepo, truckRepo, gate, cfg.InquiryRequireOTP)

	sweeper := service.NewOTPSweeper(otpRepo, cfg.OTP.VerificationTTL)
	sweeperDone := goroutine.Go(ctx, "otp-sweeper", func(ctx context.Context) {
		sweeper.Run(ctx, cfg.OTP.SweepInterval)
	})

	// HTTP хэндлеры.
	otpHandler := httpHandlers.NewOTPHandler(otpService)
	inquiryHandler := httpHandlers.NewInquiryHandler(inquiryService)
	truckHandler := httpHandlers.NewTruckHandler(truckService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn, rdb)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, limiterStore, gate, otpHandler, inquiryHandler, truckHandler, healthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	logger.Log.WithField("port", cfg.HTTPPort).WithField("env", cfg.Env).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.WithError(err).Fatal("main: сервер завершился с ошибкой")
	}

	<-sweeperDone
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.WithError(err).Error("main: ошибка закрытия базы")
	}
}
