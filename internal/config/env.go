package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// applyEnv loads envFile into the process environment, then lets
// non-empty variables override file values.
func applyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Warn("[ENV] Error loading .env file: ", err.Error())
		}
	}

	if v := os.Getenv("NETWORK"); v != "" {
		cfg.Network = v
	}
	if v := os.Getenv("RPC_ENDPOINTS"); v != "" {
		cfg.RPC.Endpoints = parseEndpoints(v)
	}
	if v := os.Getenv("RPC_WS_URL"); v != "" {
		cfg.RPC.WSURL = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.Storage.MongoDB.URI = v
	}
	if v := os.Getenv("MONGODB_DATABASE"); v != "" {
		cfg.Storage.MongoDB.Database = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("GSM_PROJECT_ID"); v != "" {
		cfg.GoogleSecretManager.ProjectID = v
	}

	ints := []struct {
		name string
		dst  *int64
	}{
		{"RPC_TIMEOUT_MILLIS", &cfg.RPC.TimeoutMillis},
		{"MONGODB_TIMEOUT_MILLIS", &cfg.Storage.MongoDB.TimeoutMillis},
		{"REPORT_ABUSE_WINDOW_SECS", &cfg.Reports.AbuseWindowSecs},
		{"WATCH_DEBOUNCE_SECS", &cfg.Watch.DebounceSecs},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", e.name, err)
		}
		*e.dst = n
	}

	smallInts := []struct {
		name string
		dst  *int
	}{
		{"REPORT_MAX_PER_USER", &cfg.Reports.MaxPerUser},
		{"REPORT_THRESHOLD", &cfg.Reports.Threshold},
		{"LIQUIDITY_CONCURRENCY", &cfg.Liquidity.Concurrency},
	}
	for _, e := range smallInts {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", e.name, err)
		}
		*e.dst = n
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"WATCH_ENABLED", &cfg.Watch.Enabled},
		{"GSM_ENABLED", &cfg.GoogleSecretManager.Enabled},
	}
	for _, e := range bools {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", e.name, err)
		}
		*e.dst = b
	}

	return nil
}
