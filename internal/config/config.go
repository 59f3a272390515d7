// Package config loads verifier settings from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"x1-token-verifier/internal/solana"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config is the full verifier configuration.
type Config struct {
	Network             string                    `yaml:"network"`
	RPC                 RPCConfig                 `yaml:"rpc"`
	Storage             StorageConfig             `yaml:"storage"`
	Server              ServerConfig              `yaml:"server"`
	Liquidity           LiquidityConfig           `yaml:"liquidity"`
	Reports             ReportsConfig             `yaml:"reports"`
	Watch               WatchConfig               `yaml:"watch"`
	Logger              LoggerConfig              `yaml:"logger"`
	GoogleSecretManager GoogleSecretManagerConfig `yaml:"google_secret_manager"`
}

// RPCConfig lists JSON-RPC endpoints in priority order.
type RPCConfig struct {
	Endpoints     []solana.Endpoint `yaml:"endpoints"`
	TimeoutMillis int64             `yaml:"timeout_millis"`
	WSURL         string            `yaml:"ws_url"`
	WSHeaders     map[string]string `yaml:"ws_headers"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend       string      `yaml:"backend"`
	PostgresDSN   string      `yaml:"postgres_dsn"`
	ClickhouseDSN string      `yaml:"clickhouse_dsn"`
	MongoDB       MongoConfig `yaml:"mongodb"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI           string `yaml:"uri"`
	Database      string `yaml:"database"`
	TimeoutMillis int64  `yaml:"timeout_millis"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr               string `yaml:"addr"`
	ReadTimeoutSecs    int64  `yaml:"read_timeout_secs"`
	WriteTimeoutSecs   int64  `yaml:"write_timeout_secs"`
	RequestTimeoutSecs int64  `yaml:"request_timeout_secs"`
}

// LiquidityConfig tunes the liquidity detector.
type LiquidityConfig struct {
	SignatureLimit  int               `yaml:"signature_limit"`
	MaxTransactions int               `yaml:"max_transactions"`
	Concurrency     int               `yaml:"concurrency"`
	DEXPrograms     map[string]string `yaml:"dex_programs"`
	LockerPrograms  map[string]string `yaml:"locker_programs"`
}

// ReportsConfig tunes report abuse limits.
type ReportsConfig struct {
	MaxPerUser      int   `yaml:"max_per_user"`
	AbuseWindowSecs int64 `yaml:"abuse_window_secs"`
	Threshold       int   `yaml:"threshold"`
}

// WatchConfig tunes the live log watcher.
type WatchConfig struct {
	Enabled      bool  `yaml:"enabled"`
	DebounceSecs int64 `yaml:"debounce_secs"`
	RefreshSecs  int64 `yaml:"refresh_secs"`
}

// LoggerConfig selects log level and format.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GoogleSecretManagerConfig maps RPC endpoint headers to secrets.
type GoogleSecretManagerConfig struct {
	Enabled   bool             `yaml:"enabled"`
	ProjectID string           `yaml:"project_id"`
	Headers   []EndpointSecret `yaml:"headers"`
}

// EndpointSecret names a secret whose latest version becomes a header value.
type EndpointSecret struct {
	Endpoint string `yaml:"endpoint"` // endpoint name, or "ws" for the WebSocket URL
	Header   string `yaml:"header"`
	Secret   string `yaml:"secret"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Network: "x1-mainnet",
		RPC: RPCConfig{
			TimeoutMillis: int64(solana.DefaultCallTimeout / time.Millisecond),
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			MongoDB: MongoConfig{TimeoutMillis: 10000},
		},
		Server: ServerConfig{
			Addr:               ":8080",
			ReadTimeoutSecs:    10,
			WriteTimeoutSecs:   60,
			RequestTimeoutSecs: 45,
		},
		Liquidity: LiquidityConfig{
			SignatureLimit:  100,
			MaxTransactions: 100,
			Concurrency:     8,
		},
		Reports: ReportsConfig{
			MaxPerUser:      3,
			AbuseWindowSecs: 3600,
			Threshold:       5,
		},
		Watch: WatchConfig{
			DebounceSecs: 60,
			RefreshSecs:  300,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configFile (optional) over the defaults, then applies envFile
// (optional) and environment overrides, then validates.
func Load(configFile, envFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file %q: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config file %q: %w", configFile, err)
		}
	}

	if err := applyEnv(&cfg, envFile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.Network == "" {
		errs = append(errs, errors.New("network is required"))
	}
	if len(c.RPC.Endpoints) == 0 {
		errs = append(errs, errors.New("rpc.endpoints requires at least one endpoint"))
	}
	for i, ep := range c.RPC.Endpoints {
		if ep.URL == "" {
			errs = append(errs, fmt.Errorf("rpc.endpoints[%d].url is required", i))
		}
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for postgres backend"))
		}
	case BackendMongo:
		if c.Storage.MongoDB.URI == "" || c.Storage.MongoDB.Database == "" {
			errs = append(errs, errors.New("storage.mongodb.uri and database are required for mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	if c.Reports.MaxPerUser <= 0 || c.Reports.Threshold <= 0 || c.Reports.AbuseWindowSecs <= 0 {
		errs = append(errs, errors.New("reports limits must be positive"))
	}
	if c.Liquidity.Concurrency <= 0 {
		errs = append(errs, errors.New("liquidity.concurrency must be positive"))
	}
	if c.Watch.Enabled && c.RPC.WSURL == "" {
		errs = append(errs, errors.New("rpc.ws_url is required when watch is enabled"))
	}
	if c.GoogleSecretManager.Enabled && c.GoogleSecretManager.ProjectID == "" {
		errs = append(errs, errors.New("google_secret_manager.project_id is required when enabled"))
	}

	return errors.Join(errs...)
}

// CallTimeout is the per-endpoint RPC deadline.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.RPC.TimeoutMillis) * time.Millisecond
}

// AbuseWindow is the report rate-limit window.
func (c *Config) AbuseWindow() time.Duration {
	return time.Duration(c.Reports.AbuseWindowSecs) * time.Second
}

// MongoTimeout bounds MongoDB operations.
func (c *Config) MongoTimeout() time.Duration {
	return time.Duration(c.Storage.MongoDB.TimeoutMillis) * time.Millisecond
}

// parseEndpoints reads "name=url,name=url" or plain "url,url".
func parseEndpoints(s string) []solana.Endpoint {
	var endpoints []solana.Endpoint
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ep := solana.Endpoint{URL: part}
		if name, url, ok := strings.Cut(part, "="); ok && !strings.Contains(name, "://") {
			ep = solana.Endpoint{Name: name, URL: url}
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints
}
