/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads the settings of a record store from a YAML file
// overlaid by RECORDSTORE_* environment variables. A .env file in the
// working directory is read into the environment first when present.
package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/suparena/recordstore/consistency"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/schema"
	"gopkg.in/yaml.v3"
)

// Backend names a DataStore implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendDynamoDB Backend = "dynamodb"
	BackendRedis    Backend = "redis"
	BackendSQLite   Backend = "sqlite"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RECORDSTORE_"

// Config holds configuration for a record store.
type Config struct {
	// Backend selects the data store: memory, dynamodb, redis or sqlite.
	// Default: memory
	Backend     Backend           `yaml:"backend"`
	DynamoDB    DynamoDBConfig    `yaml:"dynamodb"`
	Redis       RedisConfig       `yaml:"redis"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Query       QueryConfig       `yaml:"query"`
	Consistency ConsistencyConfig `yaml:"consistency"`
	Log         LogConfig         `yaml:"log"`
	// Models are the schemas registered at startup.
	Models []*schema.Schema `yaml:"models"`
	// ModelFiles name YAML files of further model definitions, appended to
	// Models by Load. Relative paths are resolved against the config file.
	ModelFiles []string `yaml:"modelFiles"`
}

// DynamoDBConfig configures the dynamodb backend.
type DynamoDBConfig struct {
	Region string `yaml:"region"`
	Table  string `yaml:"table"`

	// Index is the GSI serving collection queries. Default: GSI1
	Index string `yaml:"index"`

	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`

	// PageSize is the number of items evaluated per Query request.
	// Default: 100
	PageSize int32 `yaml:"pageSize"`

	// MaxRetries bounds retries of a throttled page. Default: 3
	// A negative value disables retries.
	MaxRetries   int           `yaml:"maxRetries"`
	RetryBackoff time.Duration `yaml:"retryBackoff"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	// Addr is host:port. Default: localhost:6379
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Prefix is prepended to every key. Default: "recordstore:"
	Prefix string `yaml:"prefix"`
}

// SQLiteConfig configures the sqlite backend.
type SQLiteConfig struct {
	// Path is the database file. Default: ":memory:"
	Path string `yaml:"path"`
}

// QueryConfig bounds query planning and batch execution.
type QueryConfig struct {
	// DefaultLimit caps finds that request no limit. Default: 1000
	DefaultLimit int `yaml:"defaultLimit"`
	// BatchConcurrency bounds the key operations in flight per batch.
	// Default: 8
	// Max: 256
	BatchConcurrency int `yaml:"batchConcurrency"`
}

// ConsistencyConfig configures stale index detection.
type ConsistencyConfig struct {
	// Policy is one of ignore, warn or reject. Default: warn
	Policy string `yaml:"policy"`
	// IndexLag is how long after a key-path write the index is assumed
	// to be stale. Default: 1s
	IndexLag time.Duration `yaml:"indexLag"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`
	// Format is text or json. Default: text
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration for the in-memory backend.
func DefaultConfig() Config {
	c := Config{}
	c.validate()
	return c
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var c Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.loadModelFiles(filepath.Dir(path)); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) loadModelFiles(base string) error {
	for _, name := range c.ModelFiles {
		if !filepath.IsAbs(name) {
			name = filepath.Join(base, name)
		}
		models, err := schema.LoadFile(name)
		if err != nil {
			return err
		}
		c.Models = append(c.Models, models...)
	}
	return nil
}

// Validate applies defaults and checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	c.validate()
	switch c.Backend {
	case BackendMemory, BackendRedis, BackendSQLite:
	case BackendDynamoDB:
		if c.DynamoDB.Table == "" {
			return errors.NewValidationError("dynamodb.table", "table is required for the dynamodb backend")
		}
	default:
		return errors.NewValidationError("backend", fmt.Sprintf("unknown backend %q", c.Backend))
	}
	if _, err := consistency.ParsePolicy(c.Consistency.Policy); err != nil {
		return err
	}
	if _, err := c.Log.NewLogger(io.Discard); err != nil {
		return err
	}
	for _, s := range c.Models {
		if err := s.Resolve(); err != nil {
			return err
		}
	}
	return nil
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.DynamoDB.Index == "" {
		c.DynamoDB.Index = "GSI1"
	}
	if c.DynamoDB.PageSize <= 0 {
		c.DynamoDB.PageSize = 100
	}
	if c.DynamoDB.MaxRetries == 0 {
		c.DynamoDB.MaxRetries = 3
	}
	if c.DynamoDB.RetryBackoff <= 0 {
		c.DynamoDB.RetryBackoff = 100 * time.Millisecond
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "recordstore:"
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = ":memory:"
	}
	if c.Query.DefaultLimit <= 0 {
		c.Query.DefaultLimit = 1000
	}
	if c.Query.BatchConcurrency < 1 {
		c.Query.BatchConcurrency = 8
	}
	if c.Query.BatchConcurrency > 256 {
		c.Query.BatchConcurrency = 256
	}
	if c.Consistency.Policy == "" {
		c.Consistency.Policy = string(consistency.Warn)
	}
	if c.Consistency.IndexLag <= 0 {
		c.Consistency.IndexLag = time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// ConsistencyPolicy returns the parsed consistency policy.
func (c *Config) ConsistencyPolicy() consistency.Config {
	p, _ := consistency.ParsePolicy(c.Consistency.Policy)
	return consistency.Config{Policy: p, IndexLag: c.Consistency.IndexLag}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+name, fmt.Sprintf("%q is not an integer", v))
		}
		*dst = n
		return nil
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+name, fmt.Sprintf("%q is not a duration", v))
		}
		*dst = d
		return nil
	}

	backend := string(c.Backend)
	str("BACKEND", &backend)
	c.Backend = Backend(strings.ToLower(backend))

	str("DDB_REGION", &c.DynamoDB.Region)
	str("DDB_TABLE", &c.DynamoDB.Table)
	str("DDB_INDEX", &c.DynamoDB.Index)
	str("DDB_ENDPOINT", &c.DynamoDB.Endpoint)
	str("DDB_ACCESS_KEY", &c.DynamoDB.AccessKey)
	str("DDB_SECRET_KEY", &c.DynamoDB.SecretKey)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("REDIS_PREFIX", &c.Redis.Prefix)
	str("SQLITE_PATH", &c.SQLite.Path)
	str("CONSISTENCY_POLICY", &c.Consistency.Policy)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	if v, ok := lookup(EnvPrefix + "MODEL_FILES"); ok && v != "" {
		c.ModelFiles = strings.Split(v, ",")
	}

	if err := num("REDIS_DB", &c.Redis.DB); err != nil {
		return err
	}
	if err := num("QUERY_DEFAULT_LIMIT", &c.Query.DefaultLimit); err != nil {
		return err
	}
	if err := num("QUERY_BATCH_CONCURRENCY", &c.Query.BatchConcurrency); err != nil {
		return err
	}
	return dur("CONSISTENCY_INDEX_LAG", &c.Consistency.IndexLag)
}

// NewLogger builds a slog logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(l.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.NewValidationError("log.format", fmt.Sprintf("unknown format %q", l.Format))
	}
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, errors.NewValidationError("log.level", fmt.Sprintf("unknown level %q", l.Level))
	}
	return level, nil
}
