package shared

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StoreDriver string
	MySQLDSN    string
	SQLitePath  string

	RedisAddr string // empty disables the review cache
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	MinApprovalCount int
	RateLimitRPS     float64 // <= 0 disables rate limiting
	RateLimitBurst   int
	SeedWorkers      int
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first if present; real env vars win.
func Load() Config {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() Config {
	c := Config{
		AppEnv:           env("APP_ENV", "prod"),
		LogLevel:         env("LOG_LEVEL", "info"),
		HTTPAddr:         env("HTTP_ADDR", ":8080"),
		MetricsAddr:      env("METRICS_ADDR", ""),
		StoreDriver:      env("STORE_DRIVER", DriverMySQL),
		MySQLDSN:         env("MYSQL_DSN", "root:root@tcp(localhost:3306)/campus_coffee?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC"),
		SQLitePath:       env("SQLITE_PATH", "campus_coffee.db"),
		RedisAddr:        env("REDIS_ADDR", "localhost:6379"),
		RedisPass:        env("REDIS_PASSWORD", ""),
		RedisDB:          atoi("REDIS_DB", 0),
		CacheTTL:         time.Duration(atoi("CACHE_TTL_SECONDS", 60)) * time.Second,
		MinApprovalCount: atoi("MIN_APPROVAL_COUNT", 3),
		RateLimitRPS:     atof("RATE_LIMIT_RPS", 50),
		RateLimitBurst:   atoi("RATE_LIMIT_BURST", 100),
		SeedWorkers:      atoi("SEED_WORKERS", 4),
	}
	if c.MinApprovalCount < 1 {
		log.Warn().Int("min_approval_count", c.MinApprovalCount).Msg("MIN_APPROVAL_COUNT below 1, using 1")
		c.MinApprovalCount = 1
	}
	if c.SeedWorkers < 1 {
		c.SeedWorkers = 1
	}
	return c
}

// Validate rejects settings the binaries cannot start with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required for driver %q", c.StoreDriver)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", c.StoreDriver, DriverMySQL, DriverSQLite)
	}
	return nil
}

func env(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
	}
	return def
}

func atof(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not a number, using default")
	}
	return def
}
