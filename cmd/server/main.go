package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	netsmtp "net/smtp"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/issuemail/internal/broker"
	"github.com/sumire/issuemail/internal/config"
	"github.com/sumire/issuemail/internal/delivery"
	"github.com/sumire/issuemail/internal/domain"
	"github.com/sumire/issuemail/internal/handler"
	"github.com/sumire/issuemail/internal/i18n"
	"github.com/sumire/issuemail/internal/logging"
	"github.com/sumire/issuemail/internal/notifier"
	"github.com/sumire/issuemail/internal/render"
	"github.com/sumire/issuemail/internal/repository"
	"github.com/sumire/issuemail/internal/service"
	"github.com/sumire/issuemail/internal/transport/async"
	"github.com/sumire/issuemail/internal/transport/memory"
	"github.com/sumire/issuemail/internal/transport/smtp"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(os.Stdout, logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("database connected")

	tr, err := i18n.New(cfg.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}
	renderer, err := render.New(tr, cfg.AppTitle)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	// Shutdown order: HTTP server, then the event consumer, then the mail
	// queue, so no producer outlives the queue it sends to.
	queueCtx, cancelQueue := context.WithCancel(context.Background())
	defer cancelQueue()
	var queueWorkers sync.WaitGroup

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	var consumers sync.WaitGroup

	transport, err := newTransport(queueCtx, cfg, logger, &queueWorkers)
	if err != nil {
		return err
	}

	gate := delivery.NewGate(transport, logger)
	dispatcher := notifier.NewDispatcher(notifier.Config{
		MailerName:          cfg.AppTitle,
		HostName:            cfg.HostName,
		SiteName:            cfg.AppTitle,
		MailFrom:            cfg.MailFrom,
		BCCRecipients:       cfg.BCCRecipients,
		PlainTextMail:       cfg.PlainTextMail,
		RaiseDeliveryErrors: cfg.RaiseDeliveryErrors,
		PerformDeliveries:   cfg.PerformDeliveries,
	}, tr, renderer, gate, logger)

	userRepo := repository.NewUserRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)

	notificationSvc := service.NewNotificationService(userRepo, issueRepo, deliveryRepo, dispatcher, tr,
		service.NotificationConfig{
			AppTitle: cfg.AppTitle,
			MailFrom: cfg.MailFrom,
			URLs:     render.URLBuilder{Protocol: cfg.Protocol, Host: cfg.HostName},
		}, logger)
	authSvc := service.NewAuthService(cfg.JWTSecret)

	if len(cfg.KafkaBrokers) > 0 {
		consumer := broker.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic, logger)
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			defer consumer.Close()
			slog.Info("kafka consumer starting", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
			err := consumer.Consume(consumerCtx, func(ctx context.Context, ev domain.NotificationEvent) error {
				_, err := notificationSvc.HandleEvent(ctx, ev)
				return err
			})
			if err != nil {
				slog.Error("kafka consumer stopped", "error", err)
			}
		}()
	}

	e := handler.NewRouter(handler.RouterDeps{
		Auth:          authSvc,
		Users:         userRepo,
		Notifications: notificationSvc,
		Deliveries:    deliveryRepo,
		FrontendURL:   cfg.FrontendURL,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "delivery_method", cfg.DeliveryMethod)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	cancelConsumer()
	consumers.Wait()

	cancelQueue()
	queueWorkers.Wait()

	slog.Info("server stopped gracefully")
	return nil
}

func newTransport(ctx context.Context, cfg config.Config, logger *slog.Logger, workers *sync.WaitGroup) (delivery.Transport, error) {
	if cfg.DeliveryMethod == config.DeliveryTest {
		return memory.New(), nil
	}

	var auth netsmtp.Auth
	switch cfg.SMTP.Auth {
	case config.SMTPAuthPlain:
		auth = smtp.PlainAuth(cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.Host)
	case config.SMTPAuthXOAuth2:
		tokens := smtp.OAuthConfig{
			ClientID:     cfg.SMTP.OAuthClientID,
			ClientSecret: cfg.SMTP.OAuthClientSecret,
			RefreshToken: cfg.SMTP.OAuthRefreshToken,
		}.TokenSource(context.Background())
		auth = smtp.XOAuth2Auth(cfg.SMTP.User, tokens)
	}
	client := smtp.New(smtp.Config{Host: cfg.SMTP.Host, Port: cfg.SMTP.Port, Auth: auth})

	if cfg.DeliveryMethod != config.DeliveryAsyncSMTP {
		return client, nil
	}

	queue := async.New(client, async.Config{Workers: cfg.AsyncWorkers, Buffer: cfg.AsyncBuffer}, logger)
	queue.Start(ctx)
	workers.Add(1)
	go func() {
		defer workers.Done()
		queue.Close()
	}()
	return queue, nil
}
