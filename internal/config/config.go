package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL       string
	HTTPAddr          string
	AccessTokenSecret string
	NATSURL           string // empty disables the position bridge
	ReconcileInterval time.Duration
	Location          *time.Location
	LogLevel          string
	Env               string // dev|prod
	SentryDSN         string
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Asia/Ho_Chi_Minh")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	interval, err := time.ParseDuration(getenv("RECONCILE_INTERVAL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("RECONCILE_INTERVAL: %w", err)
	}

	cfg := &Config{
		DatabaseURL:       mustEnv("DATABASE_URL"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		AccessTokenSecret: mustEnv("ACCESS_TOKEN_SECRET"),
		NATSURL:           os.Getenv("NATS_URL"),
		ReconcileInterval: interval,
		Location:          loc,
		LogLevel:          getenv("LOG_LEVEL", "info"),
		Env:               getenv("ENV", "dev"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
	}
	return cfg, nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
