package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketshoes/cart/internal/cart/app"
	"github.com/rocketshoes/cart/internal/cart/httpapi"
	"github.com/rocketshoes/cart/internal/cart/infra/catalog"
	"github.com/rocketshoes/cart/internal/cart/infra/filestore"
	"github.com/rocketshoes/cart/internal/cart/infra/redisstore"
	"github.com/rocketshoes/cart/internal/notify"
	"github.com/rocketshoes/cart/internal/pricing"
	"github.com/rocketshoes/cart/internal/summary"
	"github.com/rocketshoes/cart/pkg/config"
	"github.com/rocketshoes/cart/pkg/logger"
	"github.com/rocketshoes/cart/pkg/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service: "cartd",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	snaps := buildSnapshotStore(ctx, cfg, log)
	catalogClient := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogTimeout)

	notifier, closeNotifier := buildNotifier(cfg, log)
	defer closeNotifier()

	store := app.NewStore(ctx, catalogClient, snaps, notifier, log)

	view := summary.NewView(store)
	defer view.Close()

	pricer := pricing.NewService(catalogClient, 10)

	api := httpapi.NewServer(store, view, pricer, log)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server starting", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", slog.Any("err", err))
	}

	wg.Wait()
	log.Info("bye")
}

func buildSnapshotStore(ctx context.Context, cfg config.Config, log *slog.Logger) app.SnapshotStore {
	if cfg.StoreBackend == "file" {
		log.Info("using file snapshot store", slog.String("path", cfg.SnapshotPath))
		return filestore.NewStore(cfg.SnapshotPath)
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	store := redisstore.NewStore(client, cfg.SnapshotKey)

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := store.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable at startup", slog.Any("err", err), slog.String("addr", cfg.RedisAddr))
	}

	return store
}

func buildNotifier(cfg config.Config, log *slog.Logger) (app.Notifier, func()) {
	base := notify.NewLog(log)
	if cfg.AMQPURL == "" {
		return base, func() {}
	}

	conn, ch, err := notify.SetupConn(cfg.AMQPURL, cfg.NoticeExchange)
	if err != nil {
		log.Warn("notice broker unavailable, using log notifier only", slog.Any("err", err))
		return base, func() {}
	}

	log.Info("notice broker connected", slog.String("exchange", cfg.NoticeExchange))
	closer := func() {
		ch.Close()
		conn.Close()
	}
	return notify.Multi{base, notify.NewAMQP(ch, cfg.NoticeExchange, log)}, closer
}
