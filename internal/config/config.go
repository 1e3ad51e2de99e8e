// Package config resolves the storefront settings: defaults, then an optional
// YAML file, then environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// PathEnv names the config file when no -config flag is given.
const PathEnv = "SHOPFLOW_CONFIG"

type Config struct {
	HTTPAddr          string  `yaml:"http_addr"`
	GRPCAddr          string  `yaml:"grpc_addr"`
	LogLevel          string  `yaml:"log_level"`
	StorageBackend    string  `yaml:"storage_backend"`
	StoreNamespace    string  `yaml:"store_namespace"`
	SQLitePath        string  `yaml:"sqlite_path"`
	PGURL             string  `yaml:"pg_url"`
	RedisAddr         string  `yaml:"redis_addr"`
	KafkaAddr         string  `yaml:"kafka_addr"`
	OutboxTopic       string  `yaml:"outbox_topic"`
	OTelEndpoint      string  `yaml:"otel_endpoint"`
	CartEventsChannel string  `yaml:"cart_events_channel"`
	CatalogPath       string  `yaml:"catalog_path"`
	LatencyScale      float64 `yaml:"latency_scale"`
}

func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		GRPCAddr:       ":50051",
		LogLevel:       "info",
		StorageBackend: BackendMemory,
		StoreNamespace: "shopflow",
		SQLitePath:     "shopflow.db",
		OutboxTopic:    "order.events",
		LatencyScale:   1,
	}
}

// Load reads path when it is non-empty, applies the environment and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"HTTP_ADDR":           &c.HTTPAddr,
		"GRPC_ADDR":           &c.GRPCAddr,
		"LOG_LEVEL":           &c.LogLevel,
		"STORAGE_BACKEND":     &c.StorageBackend,
		"STORE_NAMESPACE":     &c.StoreNamespace,
		"SQLITE_PATH":         &c.SQLitePath,
		"PG_URL":              &c.PGURL,
		"REDIS_ADDR":          &c.RedisAddr,
		"KAFKA_ADDR":          &c.KafkaAddr,
		"OUTBOX_TOPIC":        &c.OutboxTopic,
		"OTEL_ENDPOINT":       &c.OTelEndpoint,
		"CART_EVENTS_CHANNEL": &c.CartEventsChannel,
		"CATALOG_PATH":        &c.CatalogPath,
	}
	for k, dst := range strs {
		if v, ok := os.LookupEnv(k); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("LATENCY_SCALE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("LATENCY_SCALE: %w", err)
		}
		c.LatencyScale = f
	}
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	return nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.StorageBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite backend needs sqlite_path"))
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis backend needs redis_addr"))
		}
	case BackendPostgres:
		if c.PGURL == "" {
			errs = append(errs, errors.New("postgres backend needs pg_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	if c.CartEventsChannel != "" && c.RedisAddr == "" {
		errs = append(errs, errors.New("cart_events_channel needs redis_addr"))
	}
	if c.LatencyScale < 0 {
		errs = append(errs, errors.New("latency_scale must not be negative"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
