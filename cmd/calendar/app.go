package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/example/shared-calendar/internal/application"
	"github.com/example/shared-calendar/internal/config"
	"github.com/example/shared-calendar/internal/logging"
	"github.com/example/shared-calendar/internal/registry"
	"github.com/example/shared-calendar/internal/store"
	"github.com/example/shared-calendar/internal/store/jsonfile"
	"github.com/example/shared-calendar/internal/store/redis"
	"github.com/example/shared-calendar/internal/store/sqlite"
)

// app holds the services one invocation works with.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	closer   io.Closer
	regs     *registry.Registries
	accounts *application.AccountService
	calendar *application.CalendarService
}

func openApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	logger := logging.New(cfg.LogLevel, logOut)

	port, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	regs := registry.New(port, registry.WithLogger(logger))
	return &app{
		cfg:      cfg,
		logger:   logger,
		closer:   closer,
		regs:     regs,
		accounts: application.NewAccountService(regs, nil, nil, logger),
		calendar: application.NewCalendarService(regs, cfg.Location, nil, logger),
	}, nil
}

func (a *app) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore opens the configured driver and wraps it with the timeout,
// optional breaker and logging decorators.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Port, io.Closer, error) {
	var (
		port   store.Port
		closer io.Closer
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		port, closer = store.NewMemory(), nopCloser{}
	case config.DriverJSON:
		s, err := jsonfile.Open(cfg.JSONPath)
		if err != nil {
			return nil, nil, err
		}
		port, closer = s, s
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, sqlite.Config{DSN: cfg.SQLiteDSN})
		if err != nil {
			return nil, nil, err
		}
		port, closer = s, s
	case config.DriverRedis:
		s, err := redis.Open(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		port, closer = s, s
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	port = store.WithTimeout(port, cfg.StoreTimeout)
	if cfg.BreakerEnabled {
		port = store.WithBreaker(port, store.BreakerSettings{
			Name:             cfg.StoreDriver,
			FailureThreshold: cfg.BreakerFailures,
		}, logger)
	}
	port = store.WithLogging(port, logger)

	logger.Debug("store opened", "driver", cfg.StoreDriver)
	return port, closer, nil
}
