package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/billiard-reservation/internal/booking"
	"github.com/iliyamo/billiard-reservation/internal/checkin"
	"github.com/iliyamo/billiard-reservation/internal/config"
	"github.com/iliyamo/billiard-reservation/internal/database"
	"github.com/iliyamo/billiard-reservation/internal/handler"
	"github.com/iliyamo/billiard-reservation/internal/mailer"
	"github.com/iliyamo/billiard-reservation/internal/middleware"
	"github.com/iliyamo/billiard-reservation/internal/queue"
	"github.com/iliyamo/billiard-reservation/internal/registration"
	"github.com/iliyamo/billiard-reservation/internal/repository"
	"github.com/iliyamo/billiard-reservation/internal/router"
	"github.com/iliyamo/billiard-reservation/internal/service"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("load .env: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	accounts := repository.NewAccountRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	tables := repository.NewTableRepo(db)
	reservations := repository.NewReservationRepo(db)
	publisher := service.NewPublisher(cfg.AMQPURL)

	otp := config.LoadOTPConfig()
	var otpStore registration.Store
	if rdb != nil {
		otpStore = registration.NewRedisStore(rdb, otp.Prefix)
	} else {
		log.Warn("redis unavailable: pending registrations are kept in memory")
		otpStore = registration.NewMemoryStore(time.Now)
	}
	signup := registration.NewService(registration.Options{
		Store:          otpStore,
		Sender:         mailer.New(config.LoadMailConfig(), nil),
		Accounts:       accounts,
		TTL:            otp.TTL,
		ResendInterval: otp.ResendInterval,
		BcryptCost:     cfg.BcryptCost,
	})

	ci := config.LoadCheckInConfig()
	sessions := checkin.NewStore(checkin.SessionOptions{
		Gateway:  reservations,
		Cooldown: ci.ScanCooldown,
		Notifier: publisher,
	}, ci.SessionTTL)

	authH := handler.NewAuthHandler(cfg, accounts, tokens)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	authLimit := middleware.NewTokenBucket(config.LoadAuthRateLimitConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, handler.NewRegisterHandler(signup, authH),
		handler.NewProfileHandler(profiles, accounts, tokens, cfg.BcryptCost), cfg.JWTSecret, authLimit, limit)
	router.RegisterPublic(e, handler.NewPublicHandler(tables), middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterCustomer(e, handler.NewReservationHandler(booking.NewService(tables, reservations, publisher)), cfg.JWTSecret, limit)
	router.RegisterCheckIn(e, handler.NewCheckInHandler(sessions, ci.FetchTimeout), cfg.JWTSecret, limit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := queue.StartConsumer(ctx, cfg.AMQPURL, queue.Journal{Dir: cfg.EventLogDir}); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("event consumer stopped: %v", err)
		}
	}()

	go func() {
		addr := ":" + cfg.Port
		log.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
