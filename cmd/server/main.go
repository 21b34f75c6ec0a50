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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"beacon/internal/jwttoken"
	"beacon/internal/notify/delivery/kafka"
	"beacon/internal/notify/engine"
	"beacon/internal/notify/handler"
	notifyMetrics "beacon/internal/notify/metrics"
	"beacon/internal/notify/models"
	"beacon/internal/notify/ports"
	"beacon/internal/notify/service"
	"beacon/internal/notify/store/content"
	"beacon/internal/notify/store/message"
	"beacon/internal/notify/store/subscription"
	"beacon/internal/notify/subscribe"
	"beacon/internal/platform/config"
	"beacon/internal/platform/httpserver"
	"beacon/internal/platform/logger"
	platformMetrics "beacon/internal/platform/metrics"
	"beacon/internal/platform/middleware"
	"beacon/internal/platform/postgres"
	"beacon/internal/platform/redis"
	id "beacon/pkg/domain"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()

	platMetrics := platformMetrics.New()
	domMetrics := notifyMetrics.New()

	contentStore := content.NewInMemory()

	// Postgres backs message records when a DSN is configured; the in-memory
	// store serves development and tests.
	var messageStore ports.MessageStore = message.NewInMemory()
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		messageStore = message.NewPostgres(db)
		log.Info("message store backed by postgres")
	}

	var subscriptionStore ports.SubscriptionService = subscription.NewInMemory()
	if cfg.Redis.URL != "" {
		redisClient, err := redis.New(cfg.Redis)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		subscriptionStore = subscription.NewRedis(redisClient.Client)
		log.Info("subscription store backed by redis")
	}

	var deliveryService ports.DeliveryService
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafka.New(ctx, cfg.Kafka, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		deliveryService = publisher
		log.Info("delivery backed by kafka", "topic", cfg.Kafka.Topic)
	} else {
		deliveryService = logDelivery{log: log}
		log.Warn("no kafka brokers configured, events are logged only")
	}

	eng := engine.New(engine.Config{
		TrackedBundles:  cfg.Notify.TrackedBundles,
		PrivilegedRoles: cfg.Notify.PrivilegedRoles,
	})

	worker := subscribe.NewWorker(contentStore, subscriptionStore, subscribe.Config{
		Buffer:      cfg.Fanout.Buffer,
		PageSize:    cfg.Fanout.PageSize,
		Concurrency: cfg.Fanout.Concurrency,
		Exclude:     parseExcluded(cfg.Notify.ExcludedUserIDs, log),
	}, log, domMetrics)

	svc, err := service.New(eng, contentStore, messageStore, deliveryService,
		service.WithLogger(log),
		service.WithMetrics(domMetrics),
		service.WithSubscribeQueue(worker),
	)
	if err != nil {
		log.Error("service construction failed", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "beacon", "beacon-events")
	eventHandler := handler.New(svc, log, platMetrics)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.LatencyMiddleware(platMetrics))

	router.Get("/healthz", handler.HandleHealthz)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(jwtService, log))
		eventHandler.Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("fan-out worker stopped", "error", err)
		}
	}()

	go func() {
		log.Info("starting beacon", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	<-workerDone
}

// logDelivery stands in for kafka in broker-less environments.
type logDelivery struct {
	log *slog.Logger
}

func (d logDelivery) Send(ctx context.Context, event models.NotificationEvent, explicitRecipients []id.UserID) error {
	d.log.InfoContext(ctx, "notification event",
		"template", string(event.Template),
		"entity_id", event.SubjectEntityID.String(),
		"published", event.Published,
		"recipients", len(explicitRecipients),
	)
	return nil
}

func parseExcluded(raw []string, log *slog.Logger) map[id.UserID]struct{} {
	if len(raw) == 0 {
		return nil
	}
	exclude := make(map[id.UserID]struct{}, len(raw))
	for _, entry := range raw {
		userID, err := id.ParseUserID(entry)
		if err != nil {
			log.Warn("skipping malformed excluded user id", "value", entry)
			continue
		}
		exclude[userID] = struct{}{}
	}
	return exclude
}
