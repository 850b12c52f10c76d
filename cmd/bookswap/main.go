package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"bookswap/internal/app"
	"bookswap/internal/config"
	"bookswap/internal/ratelimit"
	"bookswap/internal/server"
	"bookswap/internal/util"
	"bookswap/pkg/mail"
	"bookswap/pkg/queue"
	"bookswap/pkg/storage"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}

	var covers storage.CoverStore
	if cfg.MinioEndpoint != "" {
		covers, err = storage.NewMinioCoverStore(
			cfg.MinioEndpoint,
			cfg.MinioAccessKey,
			cfg.MinioSecretKey,
			cfg.MinioBucket,
			cfg.MinioUseSSL,
		)
		if err != nil {
			log.Fatalf("failed to init cover storage: %v", err)
		}
	}

	var mailer mail.Mailer
	if cfg.SMTPHost != "" {
		mailer, err = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			log.Fatalf("failed to init mailer: %v", err)
		}
	}

	var notifier app.Notifier
	var notificationQueue *queue.RedisNotificationQueue
	if redisClient != nil {
		notificationQueue, err = queue.NewRedisNotificationQueue(queue.NotificationQueueConfig{
			Client: redisClient,
		})
		if err != nil {
			log.Fatalf("failed to init notification queue: %v", err)
		}
		notifier = notificationQueue
	}

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL: cfg.DatabaseURL,
		JWTSecret:   cfg.JWTSecret,
		SessionTTL:  sessionTTL,
		Covers:      covers,
		Mailer:      mailer,
		Notifier:    notifier,
		Production:  cfg.Production(),
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var authLimiter *ratelimit.FixedWindowLimiter
	if cfg.AuthRateLimitPerMinute > 0 {
		authLimiter, err = ratelimit.NewFixedWindowLimiter(
			redisClient, "bookswap:ratelimit", cfg.AuthRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		AuthLimiter:    authLimiter,
		TrustedProxies: trusted,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if notificationQueue != nil {
		notificationQueue.Start(ctx, 2, func(_ context.Context, d queue.Delivery) error {
			return appCore.SaveNotification(d.UserID, d.Message)
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("bookswap listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}
