package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigPathEnv names the optional HCL config file.
const ConfigPathEnv = "PRINTPOLLER_CONFIG"

type Config struct {
	Mongo   MongoConfig
	Content ContentConfig
	Printer PrinterConfig
	Poller  PollerConfig
	Server  HTTPServerConfig
	Logging LoggingConfig
}

type MongoConfig struct {
	URI            string
	Database       string
	JobsCollection string
	// GridFS bucket for the gridfs content backend
	Bucket string
}

const (
	BackendGridFS = "gridfs"
	BackendGCS    = "gcs"
	BackendS3     = "s3"
)

type ContentConfig struct {
	Backend   string
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	PathStyle bool
	AccessKey string
	SecretKey string
	Anonymous bool
}

const (
	PrintModeLP   = "lp"
	PrintModeHTTP = "http"
)

type PrinterConfig struct {
	Mode         string
	Name         string
	LPBinary     string
	LPStatBinary string
	ServerURL    string
}

type PollerConfig struct {
	Interval     time.Duration
	StoreTimeout time.Duration
	FetchTimeout time.Duration
	PrintTimeout time.Duration
	DrainTimeout time.Duration
	TempDir      string
}

type HTTPServerConfig struct {
	Enabled      bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LoggingConfig struct {
	Level string
}

func Default() *Config {
	return &Config{
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "test",
			JobsCollection: "printjobs",
			Bucket:         "pdfs",
		},
		Content: ContentConfig{
			Backend: BackendGridFS,
			Region:  "us-east-1",
		},
		Printer: PrinterConfig{
			Mode:         PrintModeLP,
			LPBinary:     "lp",
			LPStatBinary: "lpstat",
			ServerURL:    "http://localhost:3001",
		},
		Poller: PollerConfig{
			Interval:     5 * time.Second,
			StoreTimeout: 10 * time.Second,
			FetchTimeout: 2 * time.Minute,
			PrintTimeout: time.Minute,
			DrainTimeout: 30 * time.Second,
			TempDir:      "",
		},
		Server: HTTPServerConfig{
			Enabled:      true,
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, the optional HCL file named
// by PRINTPOLLER_CONFIG, and environment overrides, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() error {
	c.Mongo.URI = getEnv("MONGO_URI", getEnv("MONGODB_URI", c.Mongo.URI))
	c.Mongo.Database = getEnv("MONGO_DB", c.Mongo.Database)
	c.Mongo.JobsCollection = getEnv("MONGO_JOBS_COLLECTION", c.Mongo.JobsCollection)
	c.Mongo.Bucket = getEnv("GRIDFS_BUCKET", c.Mongo.Bucket)

	c.Content.Backend = strings.ToLower(getEnv("CONTENT_BACKEND", c.Content.Backend))
	c.Content.Bucket = getEnv("CONTENT_BUCKET", c.Content.Bucket)
	c.Content.Prefix = getEnv("CONTENT_PREFIX", c.Content.Prefix)
	c.Content.Endpoint = getEnv("CONTENT_ENDPOINT", c.Content.Endpoint)
	c.Content.Region = getEnv("CONTENT_REGION", c.Content.Region)
	c.Content.AccessKey = getEnv("S3_ACCESS_KEY", c.Content.AccessKey)
	c.Content.SecretKey = getEnv("S3_SECRET_KEY", c.Content.SecretKey)

	c.Printer.Mode = strings.ToLower(getEnv("PRINT_MODE", c.Printer.Mode))
	c.Printer.Name = getEnv("PRINTER_NAME", c.Printer.Name)
	c.Printer.LPBinary = getEnv("LP_BINARY", c.Printer.LPBinary)
	c.Printer.LPStatBinary = getEnv("LPSTAT_BINARY", c.Printer.LPStatBinary)
	c.Printer.ServerURL = getEnv("PRINT_SERVER_URL", c.Printer.ServerURL)

	c.Poller.TempDir = getEnv("PRINT_TEMP_DIR", c.Poller.TempDir)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Logging.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Logging.Level))

	var err error
	if c.Content.PathStyle, err = getEnvBool("CONTENT_PATH_STYLE", c.Content.PathStyle); err != nil {
		return err
	}
	if c.Content.Anonymous, err = getEnvBool("CONTENT_ANONYMOUS", c.Content.Anonymous); err != nil {
		return err
	}
	if c.Server.Enabled, err = getEnvBool("SERVER_ENABLED", c.Server.Enabled); err != nil {
		return err
	}
	if c.Server.Port, err = getEnvInt("SERVER_PORT", c.Server.Port); err != nil {
		return err
	}

	// POLL_INTERVAL_MS is plain milliseconds, as the deployment scripts set it
	ms, err := getEnvInt("POLL_INTERVAL_MS", int(c.Poller.Interval/time.Millisecond))
	if err != nil {
		return err
	}
	c.Poller.Interval = time.Duration(ms) * time.Millisecond

	if c.Poller.StoreTimeout, err = getEnvDuration("STORE_TIMEOUT", c.Poller.StoreTimeout); err != nil {
		return err
	}
	if c.Poller.FetchTimeout, err = getEnvDuration("FETCH_TIMEOUT", c.Poller.FetchTimeout); err != nil {
		return err
	}
	if c.Poller.PrintTimeout, err = getEnvDuration("PRINT_TIMEOUT", c.Poller.PrintTimeout); err != nil {
		return err
	}
	if c.Poller.DrainTimeout, err = getEnvDuration("DRAIN_TIMEOUT", c.Poller.DrainTimeout); err != nil {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo database is required")
	}

	switch c.Content.Backend {
	case BackendGridFS:
	case BackendGCS, BackendS3:
		if c.Content.Bucket == "" {
			return fmt.Errorf("content bucket is required for backend %s", c.Content.Backend)
		}
	default:
		return fmt.Errorf("invalid content backend: %s (valid: gridfs, gcs, s3)", c.Content.Backend)
	}

	switch c.Printer.Mode {
	case PrintModeLP:
		if c.Printer.LPBinary == "" || c.Printer.LPStatBinary == "" {
			return fmt.Errorf("lp and lpstat binaries are required in lp mode")
		}
	case PrintModeHTTP:
		if !strings.HasPrefix(c.Printer.ServerURL, "http://") && !strings.HasPrefix(c.Printer.ServerURL, "https://") {
			return fmt.Errorf("print server url must be http(s), got %q", c.Printer.ServerURL)
		}
	default:
		return fmt.Errorf("invalid print mode: %s (valid: lp, http)", c.Printer.Mode)
	}

	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Poller.StoreTimeout <= 0 || c.Poller.FetchTimeout <= 0 || c.Poller.PrintTimeout <= 0 {
		return fmt.Errorf("store, fetch and print timeouts must be positive")
	}
	if c.Poller.DrainTimeout < 0 {
		return fmt.Errorf("drain timeout must be non-negative")
	}

	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a configured level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", s)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
