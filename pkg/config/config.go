package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`

	CatalogBaseURL string        `envconfig:"CATALOG_BASE_URL" default:"http://localhost:3333"`
	CatalogTimeout time.Duration `envconfig:"CATALOG_TIMEOUT" default:"5s"`

	// StoreBackend selects where the cart snapshot lives: "redis" or "file".
	StoreBackend string `envconfig:"STORE_BACKEND" default:"redis"`
	RedisAddr    string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	SnapshotKey  string `envconfig:"SNAPSHOT_KEY" default:"rocketshoes:cart"`
	SnapshotPath string `envconfig:"SNAPSHOT_PATH" default:"cart.json"`

	// AMQPURL enables the broker-backed notice channel when non-empty.
	AMQPURL        string `envconfig:"AMQP_URL" default:""`
	NoticeExchange string `envconfig:"NOTICE_EXCHANGE" default:"cart.notices"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
