package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cathalhughes/canvas-collab/internal/activity"
	"github.com/cathalhughes/canvas-collab/internal/collab"
	"github.com/cathalhughes/canvas-collab/internal/config"
	"github.com/cathalhughes/canvas-collab/internal/dss"
	"github.com/cathalhughes/canvas-collab/internal/ess"
	"github.com/cathalhughes/canvas-collab/internal/eventbus"
	"github.com/cathalhughes/canvas-collab/internal/gateway"
	"github.com/cathalhughes/canvas-collab/internal/httpapi"
	"github.com/cathalhughes/canvas-collab/internal/logger"
	"github.com/cathalhughes/canvas-collab/internal/middleware"
	"github.com/cathalhughes/canvas-collab/internal/notify"
	"github.com/cathalhughes/canvas-collab/internal/scheduler"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Initialize(cfg.LogLevel, cfg.LogPretty)
	log := logger.GetLogger()
	log.Info().Msg("starting collaboration core")

	essClient, err := ess.New(ess.Config{URL: cfg.ESSURL, ReadyTimeout: cfg.ESSReadyTimeout})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to ess")
	}
	defer essClient.Close()

	store, err := dss.New(dss.Config{
		Host:     cfg.DSSHost,
		Port:     cfg.DSSPort,
		User:     cfg.DSSUser,
		Password: cfg.DSSPassword,
		DBName:   cfg.DSSName,
		SSLMode:  cfg.DSSSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to dss")
	}
	defer store.Close()

	log.Info().Msg("running dss migrations")
	if err := store.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run dss migrations")
	}

	bus := eventbus.New()
	collabSvc := collab.New(essClient, store, bus, cfg)

	hub := gateway.NewHub(collabSvc, bus, cfg)

	bridge := gateway.NewESSBridge(essClient, hub)
	bus.AddReplicator(bridge)

	bridgeCtx, cancelBridge := context.WithCancel(context.Background())
	defer cancelBridge()
	go bridge.Listen(bridgeCtx)

	hubDone := make(chan struct{})
	go hub.Run(hubDone)
	defer close(hubDone)

	notifier, err := notify.NewPublisher(notify.Config{URL: cfg.NATSURL, Enabled: cfg.NATSEnabled})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize activity notifier")
	}
	defer notifier.Close()

	activitySvc := activity.New(store, bus, notifier, cfg.ActivityBatchMS, cfg.ActivityBatchMax, cfg.ActivityRetentionDays)
	activitySvc.SetBroadcaster(hub)

	sched := scheduler.New(collabSvc, activitySvc, cfg.SessionTimeout)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AllowedHTTPMethods())
	router.Use(middleware.DefaultSizeLimiter())
	router.Use(middleware.GzipWithExclusions(middleware.DefaultCompression, []string{"/ws"}))
	router.Use(httpapi.RequestLogger())

	router.GET("/ws", hub.ServeWS)

	handler := httpapi.New(collabSvc, activitySvc, cfg.SessionTimeout)
	api := router.Group("/api/v1/collaboration")
	handler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server forced shutdown")
	}
	sched.Stop(shutdownCtx)
	activitySvc.FlushAll()
	cancelBridge()

	log.Info().Msg("shutdown complete")
}
