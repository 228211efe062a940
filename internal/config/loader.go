package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers accepted in CALENDAR_STORE_DRIVER.
const (
	DriverMemory = "memory"
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config captures environment driven configuration values for the calendar.
type Config struct {
	StoreDriver     string
	JSONPath        string
	SQLiteDSN       string
	RedisURL        string
	RedisPrefix     string
	StoreTimeout    time.Duration
	BreakerEnabled  bool
	BreakerFailures uint32
	LogLevel        string
	Timezone        string
	Location        *time.Location
}

// fileConfig is the YAML overlay. Unset keys keep the environment value.
type fileConfig struct {
	StoreDriver     *string `yaml:"store_driver"`
	JSONPath        *string `yaml:"json_path"`
	SQLiteDSN       *string `yaml:"sqlite_dsn"`
	RedisURL        *string `yaml:"redis_url"`
	RedisPrefix     *string `yaml:"redis_prefix"`
	StoreTimeout    *string `yaml:"store_timeout"`
	BreakerEnabled  *bool   `yaml:"breaker_enabled"`
	BreakerFailures *int    `yaml:"breaker_failures"`
	LogLevel        *string `yaml:"log_level"`
	Timezone        *string `yaml:"timezone"`
}

// Load reads CALENDAR_* variables, after loading a .env file when present,
// and then applies the YAML file named by CALENDAR_CONFIG_FILE.
//
// Invalid values are collected and reported together. Values a driver
// requires are reported as missing.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		StoreDriver:     DriverJSON,
		JSONPath:        "calendar.json",
		SQLiteDSN:       "file:calendar.db",
		RedisPrefix:     "calendar",
		StoreTimeout:    5 * time.Second,
		BreakerFailures: 5,
		LogLevel:        "info",
		Timezone:        "Local",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	setString := func(key string, dst *string) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*dst = value
		}
	}
	setString("CALENDAR_STORE_DRIVER", &cfg.StoreDriver)
	setString("CALENDAR_JSON_PATH", &cfg.JSONPath)
	setString("CALENDAR_SQLITE_DSN", &cfg.SQLiteDSN)
	setString("CALENDAR_REDIS_URL", &cfg.RedisURL)
	setString("CALENDAR_REDIS_PREFIX", &cfg.RedisPrefix)
	setString("CALENDAR_LOG_LEVEL", &cfg.LogLevel)
	setString("CALENDAR_TIMEZONE", &cfg.Timezone)

	if value := strings.TrimSpace(os.Getenv("CALENDAR_STORE_TIMEOUT")); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "CALENDAR_STORE_TIMEOUT")
		} else {
			cfg.StoreTimeout = timeout
		}
	}

	if value := strings.TrimSpace(os.Getenv("CALENDAR_BREAKER_ENABLED")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "CALENDAR_BREAKER_ENABLED")
		} else {
			cfg.BreakerEnabled = enabled
		}
	}

	if value := strings.TrimSpace(os.Getenv("CALENDAR_BREAKER_FAILURES")); value != "" {
		failures, err := strconv.ParseUint(value, 10, 32)
		if err != nil || failures == 0 {
			invalid = append(invalid, "CALENDAR_BREAKER_FAILURES")
		} else {
			cfg.BreakerFailures = uint32(failures)
		}
	}

	if path := strings.TrimSpace(os.Getenv("CALENDAR_CONFIG_FILE")); path != "" {
		bad, err := applyFile(&cfg, path)
		if err != nil {
			return Config{}, err
		}
		invalid = append(invalid, bad...)
	}

	switch cfg.StoreDriver {
	case DriverMemory, DriverJSON, DriverSQLite:
	case DriverRedis:
		if cfg.RedisURL == "" {
			missing = append(missing, "CALENDAR_REDIS_URL")
		}
	default:
		invalid = append(invalid, "CALENDAR_STORE_DRIVER")
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
		cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	default:
		invalid = append(invalid, "CALENDAR_LOG_LEVEL")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		invalid = append(invalid, "CALENDAR_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// applyFile overlays the YAML file at path onto cfg and returns the keys
// whose values could not be used.
func applyFile(cfg *Config, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルを読み込めません: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("設定ファイルの形式が不正です: %w", err)
	}

	var invalid []string
	overlay := func(src *string, dst *string) {
		if src != nil && strings.TrimSpace(*src) != "" {
			*dst = strings.TrimSpace(*src)
		}
	}
	overlay(file.StoreDriver, &cfg.StoreDriver)
	overlay(file.JSONPath, &cfg.JSONPath)
	overlay(file.SQLiteDSN, &cfg.SQLiteDSN)
	overlay(file.RedisURL, &cfg.RedisURL)
	overlay(file.RedisPrefix, &cfg.RedisPrefix)
	overlay(file.LogLevel, &cfg.LogLevel)
	overlay(file.Timezone, &cfg.Timezone)

	if file.StoreTimeout != nil {
		timeout, err := time.ParseDuration(*file.StoreTimeout)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "store_timeout")
		} else {
			cfg.StoreTimeout = timeout
		}
	}
	if file.BreakerEnabled != nil {
		cfg.BreakerEnabled = *file.BreakerEnabled
	}
	if file.BreakerFailures != nil {
		if *file.BreakerFailures <= 0 {
			invalid = append(invalid, "breaker_failures")
		} else {
			cfg.BreakerFailures = uint32(*file.BreakerFailures)
		}
	}
	return invalid, nil
}
