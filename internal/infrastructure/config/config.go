package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Session SessionConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=edustream"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// SessionConfig tunes the session and device-quota lifecycle.
type SessionConfig struct {
	MaxDevices        int           `env:"SESSION_MAX_DEVICES,        default=2"`
	CookieName        string        `env:"SESSION_COOKIE_NAME,        default=edu_session"`
	CookieTTL         time.Duration `env:"SESSION_COOKIE_TTL,         default=1h"`
	SecureCookies     bool          `env:"SESSION_SECURE_COOKIES,     default=true"`
	RetryMaxAttempts  int           `env:"SESSION_RETRY_MAX_ATTEMPTS, default=3"`
	RetryBaseDelay    time.Duration `env:"SESSION_RETRY_BASE_DELAY,   default=1s"`
	UnregisterTimeout time.Duration `env:"SESSION_UNREGISTER_TIMEOUT, default=2s"`
	NotifyWorkers     int           `env:"SESSION_NOTIFY_WORKERS,     default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
