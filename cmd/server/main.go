package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/sockbridge/server/api/handlers"
	"github.com/sockbridge/server/internal/bus"
	"github.com/sockbridge/server/internal/config"
	"github.com/sockbridge/server/internal/db"
	"github.com/sockbridge/server/internal/logger"
	"github.com/sockbridge/server/internal/repository"
	"github.com/sockbridge/server/internal/session"
	"github.com/sockbridge/server/internal/ws"
)

func main() {
	root := &cobra.Command{
		Use:   "sockbridge-server",
		Short: "Real-time messaging engine with long-poll and WebSocket transports",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config.Load())
		},
	}

	root.AddCommand(serve)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Settings) error {
	log := logger.Setup(cfg.LogLevel)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return err
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	sessionRepo := repository.NewSessionRepository(database)
	eventBus := bus.New()

	manager := session.NewManager(eventBus, sessionRepo, session.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		PollInterval:      cfg.PollInterval,
		CloseTimeout:      cfg.CloseTimeout,
	}, logger.Component("session"))
	defer manager.Close()

	// Echo mode loops inbound messages back to their session; handy
	// for exercising both transports end to end.
	if cfg.Echo {
		eventBus.SubscribeAll(func(ev bus.Event) {
			if entry, ok := manager.Get(ev.SessionID); ok {
				entry.Session.Send(ev.Frame.Data)
			}
		})
	}

	wsHandler := ws.NewHandler(manager, logger.Component("ws"))

	engineHandler := handlers.NewEngineHandler(manager, logger.Component("engine"))
	sessionHandler := handlers.NewSessionHandler(manager)
	websocketHandler := handlers.NewWebSocketHandler(wsHandler)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("")
	{
		engineHandler.RegisterRoutes(api)
		websocketHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Port).Msg("starting server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
