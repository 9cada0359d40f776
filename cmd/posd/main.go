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

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/pos-core/internal/api"
	"github.com/Spok95/pos-core/internal/catalog"
	"github.com/Spok95/pos-core/internal/checkout"
	"github.com/Spok95/pos-core/internal/config"
	"github.com/Spok95/pos-core/internal/infra/db"
	httpx "github.com/Spok95/pos-core/internal/infra/http"
	"github.com/Spok95/pos-core/internal/infra/logger"
	"github.com/Spok95/pos-core/internal/infra/telegram"
	"github.com/Spok95/pos-core/internal/ledger"
	"github.com/Spok95/pos-core/internal/storage"
	"github.com/Spok95/pos-core/internal/storage/memory"
	"github.com/Spok95/pos-core/internal/storage/postgres"
	"github.com/Spok95/pos-core/internal/till"
	"github.com/Spok95/pos-core/migrations"
)

func main() {
	cfgPath := pflag.StringP("config", "c", "config/example.yaml", "path to the YAML config")
	pflag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.App.Env)

	if err := run(cfg, log); err != nil {
		log.Error("posd stopped", "err", err)
		os.Exit(1)
	}
	log.Info("graceful shutdown complete")
}

func run(cfg config.Config, log *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	opening, err := cfg.OpeningTime()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	switch cfg.Storage.Driver {
	case "postgres":
		if err := migrations.Up(cfg.Postgres.DSN); err != nil {
			return err
		}
		log.Info("migrations applied")

		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info("db connected")
		store = postgres.New(pool)
	default:
		log.Warn("using in-memory storage, data is lost on exit")
		store = memory.New()
	}

	g, gctx := errgroup.WithContext(ctx)

	coOpts := checkout.Options{NumberPrefix: cfg.Business.SalePrefix, Location: loc}
	tillOpts := till.Options{OpeningTime: opening, Location: loc}
	if cfg.Telegram.Token != "" {
		bot, err := telegram.Connect(cfg.Telegram.Token)
		if err != nil {
			return err
		}
		n := telegram.New(bot, log, cfg.Telegram.AdminChatID)
		coOpts.Notifier = n
		tillOpts.Notifier = n
		g.Go(func() error { return n.Run(gctx) })
		log.Info("telegram alerts enabled", "chat", cfg.Telegram.AdminChatID)
	}

	tl := till.New(store, log, tillOpts)
	if err := tl.SyncMetrics(ctx); err != nil {
		return err
	}
	h := api.New(log,
		catalog.New(store, log),
		ledger.New(store, log),
		checkout.New(store, log, coOpts),
		tl,
		loc,
	)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, h.Router(), log)
	g.Go(func() error {
		log.Info("HTTP server started", "addr", cfg.HTTP.Addr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
