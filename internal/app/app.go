// Package app wires the session stack shared by the console server and the
// command line client.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/roadassist-console/internal/client"
	"github.com/iliyamo/roadassist-console/internal/config"
	"github.com/iliyamo/roadassist-console/internal/database"
	"github.com/iliyamo/roadassist-console/internal/middleware"
	"github.com/iliyamo/roadassist-console/internal/queue"
	"github.com/iliyamo/roadassist-console/internal/repository"
	"github.com/iliyamo/roadassist-console/internal/service"
)

// App holds the wired components.  Close releases the store and broker
// forwarding.
type App struct {
	Config  config.Config
	Session *service.SessionManager
	Auth    *service.Authenticator
	Client  *client.Client
	Guard   *middleware.Guard
	Redis   *redis.Client

	closers []func()
}

// OpenStore opens the key/value backend named by cfg.Store.Backend.  The
// returned close function is never nil.
func OpenStore(ctx context.Context, cfg config.Config) (repository.KV, *redis.Client, func(), error) {
	noop := func() {}
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return repository.NewMemoryKV(), nil, noop, nil
	case config.StoreRedis:
		rdb := config.NewRedisClient()
		if rdb == nil {
			return nil, nil, noop, fmt.Errorf("redis store selected but redis is unreachable")
		}
		return repository.NewRedisKV(rdb, cfg.Store.Prefix), rdb, func() { _ = rdb.Close() }, nil
	case config.StoreMySQL:
		db, err := database.Open(ctx, cfg.DB)
		if err != nil {
			return nil, nil, noop, err
		}
		return repository.NewSQLKV(db), nil, func() { _ = db.Close() }, nil
	default:
		kv, err := repository.NewFileKV(cfg.Store.Dir)
		if err != nil {
			return nil, nil, noop, err
		}
		return kv, nil, noop, nil
	}
}

// New restores the persisted session and wires the API client behind a
// BearerTransport.  nav receives logout and access-denied navigations; nil
// only logs them.
func New(ctx context.Context, cfg config.Config, nav service.Navigator) (*App, error) {
	if nav == nil {
		nav = service.LogNavigator
	}
	kv, rdb, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Redis: rdb, closers: []func(){closeStore}}

	a.Session = service.NewSessionManager(ctx, repository.NewTokenRepo(kv))

	tr := &middleware.BearerTransport{Navigator: nav}
	a.Client = client.New(cfg.APIBaseURL, &http.Client{Transport: tr, Timeout: cfg.APITimeout})
	a.Auth = service.NewAuthenticator(a.Client, a.Session, nav)
	a.Auth.SetRefreshTimeout(cfg.RefreshTimeout)
	tr.Auth = a.Auth

	a.Guard = middleware.NewGuard(a.Session)

	if cfg.SessionEvents {
		pub := queue.NewPublisher(cfg.AMQPURL, "")
		a.closers = append(a.closers, pub.Forward(a.Session))
		slog.Info("Forwarding session events", "queue", queue.SessionQueueName)
	}
	return a, nil
}

// Close stops event forwarding and closes the store.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
