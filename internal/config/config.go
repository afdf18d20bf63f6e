package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Client captures the terminal client's runtime configuration.
type Client struct {
	APIBaseURL       string        `env:"AQARLINK_API_BASE_URL" envDefault:"http://localhost:5001"`
	StateDir         string        `env:"AQARLINK_STATE_DIR" envDefault:".aqarlink"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPTimeout      time.Duration `env:"AQARLINK_HTTP_TIMEOUT" envDefault:"30s"`
	ResendCooldown   time.Duration `env:"AQARLINK_RESEND_COOLDOWN" envDefault:"60s"`
	AutoAdvanceDelay time.Duration `env:"AQARLINK_AUTO_ADVANCE_DELAY" envDefault:"300ms"`
}

// Server captures the development stub server's runtime configuration.
// DatabaseURL and RedisURL are optional; when either is unset the stub
// falls back to in-memory stores.
type Server struct {
	AppName        string        `env:"APP_NAME" envDefault:"aqarlink-stub"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"5001"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	RedisURL       string        `env:"REDIS_URL"`
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"dev-secret"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	CodeTTL        time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"5m"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadClient reads client configuration from the environment.
func LoadClient() (Client, error) {
	var cfg Client
	if err := env.Parse(&cfg); err != nil {
		return Client{}, fmt.Errorf("parse client config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	return cfg, nil
}

// LoadServer reads stub server configuration from the environment.
func LoadServer() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse server config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Server) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
