package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/roadassist-console/internal/app"
	"github.com/iliyamo/roadassist-console/internal/config"
	"github.com/iliyamo/roadassist-console/internal/handler"
	"github.com/iliyamo/roadassist-console/internal/logger"
	"github.com/iliyamo/roadassist-console/internal/middleware"
	"github.com/iliyamo/roadassist-console/internal/queue"
	"github.com/iliyamo/roadassist-console/internal/router"
	"github.com/iliyamo/roadassist-console/internal/service"
)

func main() {
	cfg, err := config.Load()
	logger.Init(os.Stderr)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, service.LogNavigator)
	if err != nil {
		slog.Error("Failed to start session stack", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.AuditConsumer {
		go func() {
			if err := queue.StartSessionAuditConsumer(ctx, cfg.AMQPURL, cfg.AuditLogDir); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Session audit consumer stopped", "error", err)
			}
		}()
	}

	rdb := a.Redis
	if rdb == nil && cfg.LoginLimit.Enabled {
		rdb = config.NewRedisClient()
		if rdb != nil {
			defer rdb.Close()
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(a.Auth), a.Guard, middleware.LoginThrottle(cfg.LoginLimit, rdb))
	router.RegisterDashboards(e, handler.NewDashboardHandler(a.Session, cfg.GrafanaURL), a.Guard)
	router.RegisterOperator(e, handler.NewMissionHandler(a.Client), a.Guard)

	addr := cfg.Addr()
	slog.Info("Console listening", "addr", addr, "env", cfg.Env, "api", cfg.APIBaseURL, "store", cfg.Store.Backend)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
