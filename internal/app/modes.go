package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	s3blob "github.com/alethena/Draggable-ServiceHunter-Shares/internal/blob/s3"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/events"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/server"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/server/handler"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/server/ws"
)

// writerLockTTL bounds how long a crashed replica keeps the writer role.
const writerLockTTL = 30 * time.Second

// ServeMode runs the share register service: the token core, the transition
// recorder, the websocket hub, and the HTTP API. It blocks until the context
// is cancelled or a component fails.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	logger := a.logger
	a.logger.InfoContext(ctx, "starting serve mode")

	// When replicas share the journal, only one may hold the writer role.
	// The lock manager renews the lease while this process is alive; after a
	// crash the lock expires within the TTL and a standby takes over.
	if deps.LockManager != nil {
		unlock, err := deps.LockManager.Acquire(ctx, "writer", writerLockTTL)
		if err != nil {
			return fmt.Errorf("serve mode: writer lock: %w", err)
		}
		a.closers = append(a.closers, unlock)
	}

	hub := ws.NewHub(deps.EventBus, events.Channel, logger)

	// With Redis wired, the hub receives events via the pub/sub channel; a
	// direct broadcast on top would deliver duplicates.
	var broadcaster events.Broadcaster
	if deps.EventBus == nil {
		broadcaster = hub
	}

	core, err := BuildCore(a.cfg, deps, broadcaster, logger)
	if err != nil {
		return fmt.Errorf("serve mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	core.Recorder.Start(ctx)
	g.Go(func() error {
		core.Recorder.Wait()
		return nil
	})

	g.Go(func() error {
		err := hub.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, core, hub, logger)
	}

	return g.Wait()
}

func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, core *Core, hub *ws.Hub, logger *slog.Logger) {
	var db, cache handler.Pinger
	if deps.DB != nil {
		db = deps.DB
	}
	if deps.Cache != nil {
		cache = deps.Cache
	}

	srv := server.NewServer(
		server.Config{
			Port:            a.cfg.Server.Port,
			CORSOrigins:     a.cfg.Server.CORSOrigins,
			APIKey:          a.cfg.Server.APIKey,
			RateLimit:       a.cfg.Server.RateLimit,
			RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
		},
		server.Handlers{
			Health:       handler.NewHealthHandler(logger, db, cache),
			Status:       handler.NewStatusHandler(a.cfg.Mode, core.WrapperClaims, core.Wrapper),
			Equity:       handler.NewTokenHandler(core.Equity, logger),
			Wrapper:      handler.NewWrapperHandler(core.Wrapper, deps.OfferStore, logger),
			Claims:       handler.NewClaimHandler(core.WrapperClaims, a.currencyLookup(core), deps.WrapClaimStore, logger),
			EquityClaims: handler.NewClaimHandler(core.EquityClaims, a.currencyLookup(core), deps.EquityClaimStore, logger),
			Events:       handler.NewEventHandler(deps.EventStore, deps.EventBus, events.Stream, deps.BlobReader, s3blob.ArchivePrefix, logger),
		},
		hub,
		deps.RateLimiter,
		logger,
	)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// currencyLookup resolves a settlement currency ledger by address for the
// claim handlers.
func (a *App) currencyLookup(core *Core) handler.CurrencyLookup {
	return func(addr common.Address) (domain.Token, bool) {
		cur, ok := core.Currencies[addr]
		if !ok {
			return nil, false
		}
		return cur, true
	}
}

// ArchiveMode exports aged journal rows to object storage on a fixed
// interval, deleting them from the database once every part is verified
// remotely. The first export runs immediately on startup.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
		slog.Duration("interval", a.cfg.Archive.Interval.Duration),
	)

	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: object storage is not configured")
	}

	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	run := func() {
		// Concurrent exporters would race on the same rows.
		if deps.LockManager != nil {
			unlock, err := deps.LockManager.Acquire(ctx, "archiver", interval)
			if err != nil {
				a.logger.WarnContext(ctx, "archive run skipped", slog.String("error", err.Error()))
				return
			}
			defer unlock()
		}
		cutoff := time.Now().UTC().Add(-retention)
		n, err := deps.Archiver.ArchiveEvents(ctx, cutoff)
		if err != nil {
			a.logger.ErrorContext(ctx, "archive run failed", slog.String("error", err.Error()))
			return
		}
		a.logger.InfoContext(ctx, "archive run complete",
			slog.Int64("events_exported", n),
			slog.Time("cutoff", cutoff),
		)
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			run()
		}
	}
}
