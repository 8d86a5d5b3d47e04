package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matjarly/dispatch-core/internal/api"
	"github.com/matjarly/dispatch-core/internal/api/handler"
	"github.com/matjarly/dispatch-core/internal/core/ports"
	"github.com/matjarly/dispatch-core/internal/core/service"
	"github.com/matjarly/dispatch-core/internal/core/tracker"
	"github.com/matjarly/dispatch-core/internal/infrastructure/aigen"
	"github.com/matjarly/dispatch-core/internal/infrastructure/broker/kafka"
	"github.com/matjarly/dispatch-core/internal/infrastructure/config"
	dbmongo "github.com/matjarly/dispatch-core/internal/infrastructure/db/mongo"
	dbredis "github.com/matjarly/dispatch-core/internal/infrastructure/db/redis"
	"github.com/matjarly/dispatch-core/internal/infrastructure/geocode"
	"github.com/matjarly/dispatch-core/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	// --- Storage ---
	mongoClient, db, err := dbmongo.Connect(ctx, dbmongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := dbredis.Connect(ctx, dbredis.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	defer func() { _ = rdb.Close() }()

	orderRepo := dbmongo.NewOrderRepository(db)
	notifRepo := dbmongo.NewNotificationRepository(db)
	settingsRepo := dbmongo.NewSettingsRepository(db)
	authRepo := dbmongo.NewAuthRepository(db)

	if err := orderRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("order indexes failed")
	}
	if err := notifRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("notification indexes failed")
	}

	// --- Broker ---
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer func() { _ = producer.Close() }()
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	defer func() { _ = consumer.Close() }()

	// --- External providers ---
	geoCache := dbredis.NewGeoCache(rdb, cfg.Geocode.CacheTTL, logger.For("geocache"))
	geoProvider := geocode.NewHTTPProvider(cfg.Geocode.BaseURL)
	geocoder := geocode.NewGateway(geoProvider, geoCache, settingsRepo, cfg.Geocode.APIKey, nil, logger.For("geocode"))
	textGen := aigen.NewClient(cfg.TextGen.BaseURL, settingsRepo, cfg.TextGen.APIKey, nil, logger.For("aigen"))

	// --- Core services ---
	trk := tracker.NewManager(cfg.Tracker.RefreshInterval, cfg.Tracker.MonotonicGuard, logger.For("tracker"))
	defer trk.StopAll()

	shipments := service.NewShipmentService(orderRepo, notifRepo, producer, logger.For("shipments"))
	dispatch := service.NewDispatchService(orderRepo, trk, geocoder, logger.For("dispatch"))
	auth := service.NewAuthService(authRepo, cfg.JWTSecret, 24*time.Hour)

	// order events nudge the affected driver's feed
	go func() {
		if err := consumer.Consume(ctx, func(event ports.OrderEvent) error {
			trk.Trigger(event.DriverID)
			return nil
		}); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("order event consumer stopped")
		}
	}()

	e := api.NewRouter(api.Deps{
		JWTSecret: cfg.JWTSecret,
		Auth:      auth,
		Shipments: shipments,
		Dispatch:  dispatch,
		Geocoder:  geocoder,
		TextGen:   textGen,
		Tracker:   trk,
		Health:    handler.NewHealthHandler(),
		Readiness: handler.NewHealthDependenciesHandler(db, rdb),
	}, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("dispatch api started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
