package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/edustream/session-system/docs"
	"github.com/edustream/session-system/internal/api"
	"github.com/edustream/session-system/internal/core/domain"
	"github.com/edustream/session-system/internal/infrastructure/config"
	mongodb "github.com/edustream/session-system/internal/infrastructure/db/mongo"
	redisdb "github.com/edustream/session-system/internal/infrastructure/db/redis"
	"github.com/edustream/session-system/internal/infrastructure/notify"
	"github.com/edustream/session-system/pkg/logger"
)

// @title        EduStream Session API
// @version      1.0
// @description  Session and device-quota lifecycle service for the EduStream platform.
func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	dispatcher := notify.NewDispatcher(
		cfg.Session.NotifyWorkers,
		func(n domain.Notification) {
			log.Info().
				Str("account_id", n.AccountID).
				Str("kind", n.Kind).
				Str("message", n.Message).
				Msg("user notification")
		},
		redisdb.NewNotificationDedup(rdb),
		log,
	)
	dispatcher.Start(ctx)

	e := api.NewRouter(db, rdb, cfg, dispatcher, log)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("session service listening")
	if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
