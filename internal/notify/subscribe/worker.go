// Package subscribe runs the auto-subscription fan-out. Flagging every active
// user as a subscriber of a new content item can touch a large user
// population, so it runs off the request path: the service enqueues, the
// worker pages and subscribes with bounded concurrency.
package subscribe

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"beacon/internal/notify/metrics"
	"beacon/internal/notify/ports"
	id "beacon/pkg/domain"
)

// Config tunes the worker.
type Config struct {
	Buffer      int
	PageSize    int
	Concurrency int
	// Exclude lists users never auto-subscribed (anonymous, system accounts).
	Exclude map[id.UserID]struct{}
}

// Worker consumes fan-out requests from its inbox and executes them.
type Worker struct {
	users       ports.ContentStore
	subs        ports.SubscriptionService
	inbox       chan ports.SubscribeAllRequest
	exclude     map[id.UserID]struct{}
	pageSize    int
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewWorker(users ports.ContentStore, subs ports.SubscriptionService, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Worker {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 256
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Worker{
		users:       users,
		subs:        subs,
		inbox:       make(chan ports.SubscribeAllRequest, buffer),
		exclude:     cfg.Exclude,
		pageSize:    pageSize,
		concurrency: concurrency,
		logger:      logger,
		metrics:     m,
	}
}

// Enqueue schedules a fan-out without blocking event handling. Reports false
// when the inbox is full.
func (w *Worker) Enqueue(req ports.SubscribeAllRequest) bool {
	select {
	case w.inbox <- req:
		return true
	default:
		w.metrics.IncFanoutDropped()
		return false
	}
}

// Run processes fan-out requests until the context is canceled. Individual
// request failures are logged, not fatal: a missed auto-subscription is
// recoverable, a dead worker is not.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-w.inbox:
			if err := w.fanOut(ctx, req); err != nil {
				w.logger.ErrorContext(ctx, "auto-subscription fan-out failed",
					"entity_id", req.EntityID.String(),
					"error", err,
				)
			}
		}
	}
}

func (w *Worker) fanOut(ctx context.Context, req ports.SubscribeAllRequest) error {
	start := time.Now()
	total := 0

	for offset := 0; ; offset += w.pageSize {
		users, err := w.users.QueryActiveUsers(ctx, w.exclude, offset, w.pageSize)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.concurrency)
		for _, userID := range users {
			g.Go(func() error {
				_, err := w.subs.EnsureSubscribed(gctx, userID, req.EntityID)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		total += len(users)
		if len(users) < w.pageSize {
			break
		}
	}

	w.metrics.ObserveFanout(time.Since(start).Seconds(), total)
	w.logger.InfoContext(ctx, "auto-subscription fan-out complete",
		"entity_id", req.EntityID.String(),
		"users", total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
