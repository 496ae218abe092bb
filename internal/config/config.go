// Package config loads CLI settings from defaults, an optional config file,
// CQ_* environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment variable, e.g. CQ_STORAGE_BACKEND.
const EnvPrefix = "CQ"

// Supported storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

type Config struct {
	Storage Storage `mapstructure:"storage"`
	Log     Log     `mapstructure:"log"`
}

type Storage struct {
	Backend     string `mapstructure:"backend"`
	Dir         string `mapstructure:"dir"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	// Namespace prefixes slot keys so several queues can share one backend.
	Namespace string `mapstructure:"namespace"`
	S3        S3     `mapstructure:"s3"`
}

type S3 struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"storage":       "storage.backend",
	"dir":           "storage.dir",
	"sqlite-path":   "storage.sqlite_path",
	"postgres-dsn":  "storage.postgres_dsn",
	"namespace":     "storage.namespace",
	"s3-bucket":     "storage.s3.bucket",
	"s3-prefix":     "storage.s3.prefix",
	"s3-region":     "storage.s3.region",
	"s3-endpoint":   "storage.s3.endpoint",
	"s3-access-key": "storage.s3.access_key",
	"s3-secret-key": "storage.s3.secret_key",
	"log-level":     "log.level",
}

// DefaultDir is where the file backend keeps its slots unless configured otherwise.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".capture-queue"
	}
	return filepath.Join(base, "capture-queue")
}

func defaults() map[string]any {
	dir := DefaultDir()
	return map[string]any{
		"storage.backend":       BackendFile,
		"storage.dir":           dir,
		"storage.sqlite_path":   filepath.Join(dir, "queue.db"),
		"storage.postgres_dsn":  "",
		"storage.namespace":     "",
		"storage.s3.bucket":     "",
		"storage.s3.prefix":     "",
		"storage.s3.region":     "us-east-1",
		"storage.s3.endpoint":   "",
		"storage.s3.access_key": "",
		"storage.s3.secret_key": "",
		"log.level":             "warn",
	}
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml, json or toml)")
	fs.String("storage", BackendFile, "storage backend: memory, file, sqlite, postgres, s3")
	fs.String("dir", "", "directory for the file backend")
	fs.String("sqlite-path", "", "database file for the sqlite backend")
	fs.String("postgres-dsn", "", "PostgreSQL DSN for the postgres backend")
	fs.String("namespace", "", "slot key namespace")
	fs.String("s3-bucket", "", "S3 bucket")
	fs.String("s3-prefix", "", "S3 object key prefix")
	fs.String("s3-region", "", "S3 region")
	fs.String("s3-endpoint", "", "S3 endpoint URL (for S3-compatible stores)")
	fs.String("s3-access-key", "", "S3 access key ID")
	fs.String("s3-secret-key", "", "S3 secret access key")
	fs.String("log-level", "", "log level: debug, info, warn, error")
}

// Load resolves the configuration. fs may be nil; only flags that were set
// explicitly override the file and the environment.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", f.Value.String(), err)
			}
		}
		fs.Visit(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok {
				v.Set(key, f.Value.String())
			}
		})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	var errList []error
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.Dir == "" {
			errList = append(errList, errors.New("storage.dir is required for the file backend"))
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			errList = append(errList, errors.New("storage.sqlite_path is required for the sqlite backend"))
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errList = append(errList, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			errList = append(errList, errors.New("storage.s3.bucket is required for the s3 backend"))
		}
	default:
		errList = append(errList, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errList = append(errList, fmt.Errorf("log.level: %w", err))
	}
	if len(errList) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errList...))
	}
	return nil
}
