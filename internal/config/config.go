package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultAppName         = "tronscope"
	defaultAppEnv          = "production"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultDBAddr          = "postgres:5432"
	defaultTronAPIURL      = "https://api.trongrid.io"
	defaultTronTimeout     = 15 * time.Second
	defaultDBMaxConns      = 10
	defaultWalletRateLimit = 60
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 10 * time.Minute
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Error reports a required environment variable that is not set.
type Error struct {
	Var string
}

func (e *Error) Error() string {
	return fmt.Sprintf("'%s' is not specified in environment variable", e.Var)
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	APIKey     string
	DBUser     string
	DBPassword string
	DBHost     string // host:port

	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	DatabaseName    string
	RedisURL        string
	TronAPIURL      string
	TronTimeout     time.Duration
	DBMaxConns      int32
	DBLogQueries    bool
	WalletRateLimit int
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
}

// Get returns the process-wide configuration. The environment is read on the
// first call only; later calls observe the same value (or the same error)
// regardless of changes to the environment.
var Get = sync.OnceValues(Load)

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		return Config{}, &Error{Var: "API_KEY"}
	}

	user, ok := os.LookupEnv("POSTGRES_USER")
	if !ok {
		return Config{}, &Error{Var: "POSTGRES_USER"}
	}

	password, ok := os.LookupEnv("POSTGRES_PASSWORD")
	if !ok {
		return Config{}, &Error{Var: "POSTGRES_PASSWORD"}
	}

	cfg := Config{
		APIKey:          apiKey,
		DBUser:          user,
		DBPassword:      password,
		DBHost:          getEnv("DBADDR", defaultDBAddr),
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseName:    os.Getenv("POSTGRES_DB"),
		RedisURL:        os.Getenv("REDIS_URL"),
		TronAPIURL:      strings.TrimRight(getEnv("TRON_API_URL", defaultTronAPIURL), "/"),
		TronTimeout:     defaultTronTimeout,
		DBMaxConns:      defaultDBMaxConns,
		WalletRateLimit: defaultWalletRateLimit,
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
	}

	if v := os.Getenv("TRON_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TRON_TIMEOUT: %w", err)
		}
		cfg.TronTimeout = d
	}

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid DB_MAX_CONNS %q", v)
		}
		cfg.DBMaxConns = int32(n)
	}

	if v := os.Getenv("DB_LOG_QUERIES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DB_LOG_QUERIES: %w", err)
		}
		cfg.DBLogQueries = b
	}

	if v := os.Getenv("WALLET_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid WALLET_RATE_LIMIT %q", v)
		}
		cfg.WalletRateLimit = n
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	return cfg, nil
}

// DatabaseURL returns the postgres connection string for pgx. Credentials
// are escaped, so passwords may contain reserved URL characters.
func (c Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   c.DBHost,
		Path:   "/" + c.DatabaseName,
	}
	return u.String()
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
