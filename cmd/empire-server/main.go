// Package main is the entry point for the IT Empire game server.
// It only handles dependency injection and server initialization.
// No game logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/kylechrisking/it-empire-idle/internal/config"
	"github.com/kylechrisking/it-empire-idle/internal/engine"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/infra/storage"
	"github.com/kylechrisking/it-empire-idle/internal/network"
	"github.com/kylechrisking/it-empire-idle/internal/persistence"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
	"github.com/kylechrisking/it-empire-idle/internal/platform/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	appLogger := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("Server exited with error", "err", err)
		os.Exit(1)
	}
}

// repositories bundles the storage chosen by the driver setting.
type repositories struct {
	saves  storage.SaveRepository
	events storage.EventRepository
	db     *sql.DB
}

func openStorage(cfg *config.Config, log *logger.Logger) (*repositories, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		log.Info("Initializing SQLite database", "path", cfg.Storage.Path)
		db, err := storage.InitSQLite(cfg.Storage.Path, cfg.Buffers.DBMaxOpenConns, cfg.Buffers.DBMaxIdleConns)
		if err != nil {
			return nil, err
		}
		return &repositories{
			saves:  storage.NewSQLiteSaveRepository(db),
			events: storage.NewSQLiteEventRepository(db),
			db:     db,
		}, nil
	case config.DriverFile:
		log.Info("Using file saves", "dir", cfg.Storage.Path)
		saves, err := storage.NewFileSaveRepository(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		return &repositories{saves: saves, events: storage.NewMemoryEventRepository()}, nil
	default:
		log.Warn("Using in-memory storage, progress is lost on exit")
		return &repositories{
			saves:  storage.NewMemorySaveRepository(),
			events: storage.NewMemoryEventRepository(),
		}, nil
	}
}

func run(cfg *config.Config, appLogger *logger.Logger) error {
	appLogger.Info("Initializing IT Empire server...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openStorage(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if repos.db != nil {
		defer repos.db.Close()
	}

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(persistence.NewEventSink(repos.events, cfg.Storage.Slot))
	eventLog.OnPersistError(func(ev events.GameEvent, err error) {
		appLogger.Warn("Failed to persist event", "type", ev.Type, "err", err)
	})
	defer eventLog.Flush()

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(nil, appLogger, cfg.Buffers, cfg.Server.ActionsPerSec)

	appLogger.Info("Bootstrapping Engine...")
	gameEngine, err := engine.NewEngine(cfg.Catalog, eventLog, appLogger, engine.WithPresenter(hub))
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	gateway := persistence.NewGateway(repos.saves, cfg.Storage.Slot, appLogger)
	if err := gateway.Load(ctx, gameEngine); err != nil {
		return fmt.Errorf("load: %w", err)
	}

	scheduler := engine.NewScheduler(gameEngine, gateway, appLogger, engine.SchedulerConfig{
		TickInterval:     cfg.Loop.TickInterval,
		AutoSaveInterval: cfg.Loop.AutoSaveInterval,
		HoldInterval:     cfg.Loop.HoldInterval,
		IntentBuffer:     cfg.Buffers.Intents,
	})
	hub.SetScheduler(scheduler)

	router := mux.NewRouter()
	network.NewAPI(scheduler, appLogger).Routes(router)
	network.NewHistoryHandler(eventLog, storage.NewRecap(repos.events), cfg.Storage.Slot, appLogger).Routes(router)
	router.HandleFunc("/ws", hub.ServeWS(upgrader))
	router.HandleFunc("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler()).Methods(http.MethodGet)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		scheduler.Start(gctx)
		return nil
	})
	g.Go(func() error {
		appLogger.Info("HTTP API & WS server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the browser client may be served from a dev server
	},
}
