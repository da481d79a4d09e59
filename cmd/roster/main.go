package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Satokaheni/mythic-plus-bot/common/id"
	"github.com/Satokaheni/mythic-plus-bot/common/logger"
	"github.com/Satokaheni/mythic-plus-bot/common/otel"
	"github.com/Satokaheni/mythic-plus-bot/core/config"
	"github.com/Satokaheni/mythic-plus-bot/core/db"
	"github.com/Satokaheni/mythic-plus-bot/internal/engine"
	"github.com/Satokaheni/mythic-plus-bot/internal/http/middleware"
	httprouter "github.com/Satokaheni/mythic-plus-bot/internal/http/router"
	"github.com/Satokaheni/mythic-plus-bot/internal/maintenance"
	"github.com/Satokaheni/mythic-plus-bot/internal/queue"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
	"github.com/Satokaheni/mythic-plus-bot/internal/service"
	"github.com/Satokaheni/mythic-plus-bot/internal/store"
	"github.com/Satokaheni/mythic-plus-bot/internal/transport"
	"github.com/Satokaheni/mythic-plus-bot/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeRoster)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "roster starting",
		"env", cfg.Env,
		"snapshot_backend", cfg.Snapshot.Backend,
		"transport", cfg.Transport.Kind)

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		slog.InfoContext(ctx, "redis connected", "inbound_stream", cfg.Redis.InboundStream)
	}

	var database *db.DB
	if cfg.Snapshot.Backend == config.SnapshotBackendPostgres {
		database, err = db.New(ctx, cfg.DB)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		slog.InfoContext(ctx, "database connected")
	}

	snapshots, err := newSnapshotStore(cfg, redisClient, database)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up snapshot store", "error", err)
		os.Exit(1)
	}

	var tr transport.Transport
	switch cfg.Transport.Kind {
	case config.TransportRedis:
		tr = transport.NewRedisGateway(redisClient, cfg.Redis.OutboundStream)
	default:
		tr = transport.NewLogTransport(slog.Default())
	}

	eng := engine.New(ctx, roster.Config{
		OverseerID:      cfg.Roster.OverseerID,
		RepostAfter:     cfg.Roster.RepostAfter,
		AskThreshold:    cfg.Roster.AskThreshold,
		OutreachTimeout: cfg.Roster.OutreachTimeout,
		ReminderWindow:  cfg.Roster.ReminderWindow,
		Quiescence:      cfg.Roster.Quiescence,
	}, snapshots, tr, engine.Config{
		SendTimeout:    cfg.Transport.SendTimeout,
		MaxConcurrency: cfg.Transport.MaxConcurrency,
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := eng.Run(runCtx); err != nil && err != context.Canceled {
			slog.ErrorContext(ctx, "engine exited with error", "error", err)
		}
	}()

	rosterService := service.NewRosterService(eng)

	loop := maintenance.New(rosterService, maintenance.Config{
		Interval:   cfg.Roster.MaintenanceInterval,
		RunOnStart: true,
	})
	go loop.Run(runCtx)

	var (
		w         *worker.Worker
		reclaimer *worker.Reclaimer
		producer  queue.Producer
	)
	if redisClient != nil {
		consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
			Stream:       cfg.Redis.InboundStream,
			Group:        cfg.Redis.InboundGroup,
			Consumer:     cfg.Redis.InboundConsumer,
			DLQStream:    cfg.Redis.InboundDLQStream,
			BatchSize:    10,
			Block:        5 * time.Second,
			MaxAttempts:  3,
			RequeueDelay: time.Second,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create consumer", "error", err)
			os.Exit(1)
		}

		w = worker.New(consumer, rosterService, worker.Config{MaxAttempts: consumer.Config().MaxAttempts})
		reclaimer = worker.NewReclaimer(
			worker.NewRedisPendingStream(redisClient, cfg.Redis.InboundStream, cfg.Redis.InboundGroup, cfg.Redis.InboundConsumer),
			worker.ReclaimerConfig{
				MinIdle:       5 * time.Minute,
				Interval:      time.Minute,
				BatchSize:     10,
				MaxDeliveries: 5,
			}, consumer, w.ProcessMessage)
		producer = queue.NewRedisProducer(redisClient, cfg.Redis.InboundStream, slog.Default())

		go func() {
			if err := w.Run(runCtx); err != nil && err != context.Canceled {
				slog.ErrorContext(ctx, "worker exited with error", "error", err)
			}
		}()
		go reclaimer.Run(runCtx)
	} else {
		slog.InfoContext(ctx, "no redis configured, inbound stream disabled")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, rosterService, producer)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	// Stop producers of work before the engine so nothing is left waiting on it.
	if w != nil {
		w.Stop()
		reclaimer.Stop()
	}
	loop.Stop()
	eng.Stop()
	<-engineDone

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func newSnapshotStore(cfg config.Config, redisClient *redis.Client, database *db.DB) (store.SnapshotStore, error) {
	switch cfg.Snapshot.Backend {
	case config.SnapshotBackendPostgres:
		return store.NewPostgresSnapshotStore(database, store.DefaultSnapshotHistory), nil
	case config.SnapshotBackendRedis:
		return store.NewRedisSnapshotStore(redisClient, cfg.Snapshot.Key), nil
	default:
		return store.NewFileSnapshotStore(cfg.Snapshot.Path)
	}
}

func setupRouter(cfg config.Config, rosterService service.RosterService, producer queue.Producer) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, rosterService, httprouter.RouterConfig{
		AdminAPIKey:     cfg.AdminAPIKey,
		TraceHeaderName: cfg.Redis.TraceHeaderName,
		Producer:        producer,
	})

	return router
}

const banner = `
 ____   ___  ____ _____ _____ ____
|  _ \ / _ \/ ___|_   _| ____|  _ \
| |_) | | | \___ \ | | |  _| | |_) |
|  _ <| |_| |___) || | | |___|  _ <
|_| \_\\___/|____/ |_| |_____|_| \_\
`
