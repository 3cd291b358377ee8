package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`

	DatabasePath   string `env:"DATABASE_PATH" env-default:"storefront.db"`
	MigrationsPath string `env:"MIGRATIONS_PATH" env-default:"migrations"`

	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`

	CartDataDir    string        `env:"CART_DATA_DIR" env-default:"data/carts"`
	CartWriteDelay time.Duration `env:"CART_WRITE_DELAY" env-default:"100ms"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" env-default:"30m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &cfg, nil
}
