// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/lanegames/gamesvc/internal/ai"
	"github.com/lanegames/gamesvc/internal/auth"
	"github.com/lanegames/gamesvc/internal/config"
	"github.com/lanegames/gamesvc/internal/engine"
	"github.com/lanegames/gamesvc/internal/engine/connectfour"
	"github.com/lanegames/gamesvc/internal/handlers"
	"github.com/lanegames/gamesvc/internal/messaging"
	"github.com/lanegames/gamesvc/internal/middleware"
	"github.com/lanegames/gamesvc/internal/movelog"
	"github.com/lanegames/gamesvc/internal/session"
	"github.com/lanegames/gamesvc/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.Load()

	if cfg.AuthRequired {
		auth.Init()
	}

	// Rule engine registry.
	registry := engine.NewRegistry()
	registry.Register(connectfour.New)
	factory := engine.NewFactory(registry)
	logger.Infof("Registered game types: %v", registry.Types())

	// Session store: Postgres when configured, in-memory otherwise.
	var store session.Store
	if cfg.SessionDBURL != "" {
		pool, err := session.ConnectPostgres(context.Background(), cfg.SessionDBURL)
		if err != nil {
			log.Fatalf("failed to connect to session db: %v", err)
		}
		defer pool.Close()
		pg := session.NewPostgresStore(pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("failed to ensure session schema: %v", err)
		}
		store = pg
		logger.Info("Using Postgres session store")
	} else {
		store = session.NewMemoryStore()
		logger.Warn("SESSION_DB_URL not set, using in-memory session store")
	}

	orchOpts := []session.Option{}

	// Move log queue (Redis) is optional; sessions work without it.
	if recorder, err := movelog.Connect(cfg.RedisAddr, cfg.RedisDB, cfg.MoveLogQueue); err != nil {
		logger.WithError(err).Warn("Move log unavailable, moves will not be recorded")
	} else {
		defer recorder.Close()
		orchOpts = append(orchOpts, session.WithMoveLogger(recorder))
	}

	// Event broker. The publisher is best-effort; losing it never blocks
	// session mutations.
	msgCfg := messaging.Config{
		URL:                  cfg.BrokerURL,
		Exchange:             cfg.Exchange,
		DeadLetterExchange:   cfg.DeadLetterExchange,
		DeadLetterRoutingKey: cfg.DeadLetterRoutingKey,
	}
	publisher, err := messaging.Dial(msgCfg)
	if err != nil {
		logger.WithError(err).Warn("Event broker unavailable, domain events will not be published")
	} else {
		defer publisher.Close()
		orchOpts = append(orchOpts, session.WithPublisher(publisher))
	}

	orch := session.NewOrchestrator(factory, store, logger, orchOpts...)

	// Broker-driven session creation.
	sessionConsumer := messaging.NewSessionConsumer(msgCfg, orch, logger)
	sessionConsumer.Start()

	// Realtime fan-out: broker events -> hub -> WebSocket subscribers.
	hub := ws.NewHub(logger)
	hub.Start()
	bridgeConsumers := ws.NewEventBridge(msgCfg, hub, logger)
	for _, c := range bridgeConsumers {
		c.Start()
	}

	budgets := map[ai.Tier]int{
		ai.TierLow:      cfg.IterationsLow,
		ai.TierMedium:   cfg.IterationsMedium,
		ai.TierHigh:     cfg.IterationsHigh,
		ai.TierVeryHigh: cfg.IterationsVeryHigh,
	}
	advisor := ai.NewAdvisor(factory, budgets)

	srv := handlers.NewServer(orch, advisor, hub, logger)
	srv.AuthRequired = cfg.AuthRequired

	mux := http.NewServeMux()
	srv.Routes(mux)

	httpServer := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     middleware.LogMiddleware(logger)(mux),
		ReadTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", cfg.HTTPAddr)
		errc <- httpServer.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		logger.Errorf("server exited: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	httpServer.Shutdown(ctx)

	sessionConsumer.Stop(shutdownTimeout)
	for _, c := range bridgeConsumers {
		c.Stop(shutdownTimeout)
	}
	hub.Stop(shutdownTimeout)
}
