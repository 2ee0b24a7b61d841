package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/qrave1/RoomWatch/internal/application/config"
	"github.com/qrave1/RoomWatch/internal/application/constant"
	"github.com/qrave1/RoomWatch/internal/application/metric"
	"github.com/qrave1/RoomWatch/internal/infra/adapters/memory"
	"github.com/qrave1/RoomWatch/internal/infra/adapters/transport"
	"github.com/qrave1/RoomWatch/internal/infra/adapters/youtube"
	"github.com/qrave1/RoomWatch/internal/infra/ports/http/handlers"
	"github.com/qrave1/RoomWatch/internal/infra/ports/http/server"
	"github.com/qrave1/RoomWatch/internal/usecase"
)

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: slog.LevelInfo},
			),
		),
	)

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	slog.Info("Running app", slog.Bool("debug", cfg.Debug))

	wsConnRepo := memory.NewWSConnectionRepository()
	sessionRepo := memory.NewSessionRepository()
	roomRegistry := memory.NewRoomRegistry()

	joinLimiter := memory.NewRateLimiter(cfg.Limits.JoinsPerMinute, time.Minute)
	addLimiter := memory.NewRateLimiter(cfg.Limits.AddsPerMinute, time.Minute)
	shuffleLimiter := memory.NewRateLimiter(cfg.Limits.ShufflesPerMinute, time.Minute)

	resolver := youtube.NewClient(cfg.YouTube)
	wsTransport := transport.NewWSTransport(sessionRepo, wsConnRepo)

	autoDJUsecase := usecase.NewAutoDJUsecase(resolver, wsTransport, cfg.YouTube.Timeout)
	roomUsecase := usecase.NewRoomUsecase(
		cfg,
		roomRegistry,
		sessionRepo,
		wsTransport,
		resolver,
		autoDJUsecase,
		joinLimiter,
		addLimiter,
		shuffleLimiter,
	)
	reconciler := usecase.NewReconcilerUsecase(
		roomRegistry,
		wsTransport,
		cfg.Room.HeartbeatInterval,
		cfg.Room.EmptyTTL,
	)

	go reconciler.Run(ctx)

	wsHandler := handlers.NewWebSocketHandler(cfg, roomUsecase, wsConnRepo)

	echoSrv := server.New(cfg, wsHandler)

	metricSrv := metric.NewServer()
	go func() {
		if err := metricSrv.Start(":" + cfg.MetricPort); err != nil {
			slog.Error("metric server failed", slog.Any(constant.Error, err))
		}
	}()

	srvCh := make(chan (error), 1)
	go func() {
		srvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server due to context cancel")
	case err := <-srvCh:
		slog.Error(
			"HTTP server failed",
			slog.Any(constant.Error, err),
		)

		os.Exit(1)
	}

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown server", slog.Any(constant.Error, err))
	}
}
