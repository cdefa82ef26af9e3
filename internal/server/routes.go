package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"shootinggallery/internal/config"
	"shootinggallery/internal/db"
	"shootinggallery/internal/logging"
	"shootinggallery/internal/metrics"
	"shootinggallery/internal/mongostore"
	"shootinggallery/internal/relay"
	"shootinggallery/internal/sessions"
	"shootinggallery/internal/store"
	"shootinggallery/internal/wshub"
)

const shutdownTimeout = 10 * time.Second

// Run wires the application from the environment and serves until SIGINT or SIGTERM.
func Run() error {
	appCfg := config.Load()

	logger, err := logging.New(appCfg.LogLevel, appCfg.LogDir)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(promRegistry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	st := openStore(ctx, appCfg, logger)
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("closing store", zap.Error(err))
		}
	}()

	registry := wshub.NewRegistry(logger, m)
	manager := sessions.NewManager(st, logger, sessions.Options{
		FinishedTTL:  appCfg.FinishedSessionTTL,
		FinishedSize: appCfg.FinishedSessionCache,
		Metrics:      m,
	})
	router := relay.NewRouter(registry, manager, uuid.NewString(), logger, m)

	monitor := wshub.NewMonitor(registry, appCfg.HeartbeatInterval, logger)
	monitor.OnPrune = router.Departed
	go monitor.Run(ctx)

	srv := &Server{
		Sessions:       manager,
		Gateway:        relay.NewGateway(registry, logger),
		Router:         router,
		Registry:       registry,
		Store:          st,
		Gatherer:       promRegistry,
		OriginPatterns: appCfg.OriginPatterns,
		Log:            logger.Named("http"),
	}

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + appCfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("url", "http://localhost:"+appCfg.Port))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	return nil
}

// openStore connects the configured store. A database that cannot be reached
// is logged and replaced by the in-memory store.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) store.Store {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		database, err := db.Connect(ctx, cfg.DatabaseURL, cfg.StoreTimeout, log)
		if err != nil {
			log.Error("failed to connect, running without database", zap.Error(err))
			return store.NewMemory()
		}
		if err := database.Migrate(ctx); err != nil {
			log.Error("migration failed", zap.Error(err))
		}
		log.Info("database connected and migrations applied")
		return database
	case config.DriverMongo:
		ms, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.StoreTimeout, log)
		if err != nil {
			log.Error("failed to connect, running without database", zap.Error(err))
			return store.NewMemory()
		}
		return ms
	case config.DriverMemory:
		log.Info("no database configured, keeping scores in memory")
	default:
		log.Warn("unknown store driver, keeping scores in memory", zap.String("driver", cfg.StoreDriver))
	}
	return store.NewMemory()
}

// Routes returns the handler serving the REST API, the WebSocket endpoint,
// health and metrics.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/game/start", s.handleStartGame)
	mux.HandleFunc("POST /api/game/stop", s.handleStopGame)
	mux.HandleFunc("POST /api/game/reset", s.handleResetGame)
	mux.HandleFunc("POST /api/game/command", s.handleSendCommand)
	mux.HandleFunc("GET /api/game/test", s.handleTestConnection)
	mux.HandleFunc("GET /api/game/status", s.handleStatus)

	mux.HandleFunc("POST /api/game/session/create", s.handleCreateSession)
	mux.HandleFunc("POST /api/game/session/hit", s.handleRegisterHit)
	mux.HandleFunc("POST /api/game/session/miss", s.handleRegisterMiss)
	mux.HandleFunc("POST /api/game/session/end", s.handleEndSession)
	mux.HandleFunc("GET /api/game/session/{sessionId}/stats", s.handleSessionStats)
	mux.HandleFunc("GET /api/game/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/game/scores/best/{username}/{gameMode}", s.handlePersonalBest)
	mux.HandleFunc("POST /api/game/scores", s.handleSaveScore)

	mux.HandleFunc("GET /api/game/settings", s.handleListSettings)
	mux.HandleFunc("GET /api/game/settings/{mode}", s.handleGetSettings)
	mux.HandleFunc("POST /api/game/settings", s.handleSaveSettings)

	mux.HandleFunc("POST /api/users/register", s.handleRegisterUser)

	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}
