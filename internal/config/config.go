// Package config loads server settings from ACME_* environment variables and
// the optional YAML seed file applied at startup.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const envPrefix = "ACME"

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreMySQL  StoreKind = "mysql"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr string `envconfig:"GRPC_ADDR" default:":50051"`

	Store    StoreKind `envconfig:"STORE" default:"memory"`
	MySQLDSN string    `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/acme?parseTime=true&multiStatements=true"`

	// RedisAddr left empty disables the request guard and pub/sub notifications.
	RedisAddr    string `envconfig:"REDIS_ADDR"`
	RedisChannel string `envconfig:"REDIS_CHANNEL" default:"acme:orders:placed"`

	Administrator string `envconfig:"ADMINISTRATOR" required:"true"`
	SeedFile      string `envconfig:"SEED_FILE"`

	NotifyWorkers   int `envconfig:"NOTIFY_WORKERS" default:"4"`
	NotifyQueueSize int `envconfig:"NOTIFY_QUEUE_SIZE" default:"1024"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "process environment")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Administrator == "" {
		return errors.New("administrator address is required")
	}
	switch c.Store {
	case StoreMemory, StoreMySQL:
	default:
		return errors.Errorf("unknown store %q, want %q or %q", c.Store, StoreMemory, StoreMySQL)
	}
	if c.NotifyWorkers < 1 {
		return errors.Errorf("notify workers must be positive, got %d", c.NotifyWorkers)
	}
	if c.NotifyQueueSize < 1 {
		return errors.Errorf("notify queue size must be positive, got %d", c.NotifyQueueSize)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
