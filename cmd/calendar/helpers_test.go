package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/example/shared-calendar/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig(dir, driver string) config.Config {
	return config.Config{
		StoreDriver:     driver,
		JSONPath:        filepath.Join(dir, "calendar.json"),
		SQLiteDSN:       filepath.Join(dir, "calendar.db"),
		RedisPrefix:     "calendar",
		StoreTimeout:    time.Second,
		BreakerEnabled:  true,
		BreakerFailures: 3,
		LogLevel:        "error",
		Timezone:        "UTC",
		Location:        time.UTC,
	}
}
