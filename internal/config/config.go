package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	DBDriver       string
	MySQLDSN       string
	SQLitePath     string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxLife  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	CacheTTL      time.Duration
	CacheNS       string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        slog.Level
}

// CacheEnabled reports whether a Redis address was configured.
func (c Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// Load reads the configuration from the environment. Unset variables take
// their defaults; set but malformed ones are an error.
func Load() (Config, error) {
	l := loader{}
	cfg := Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr: getEnv("GRPC_ADDR", ":50051"),

		DBDriver:       getEnv("DB_DRIVER", "mysql"),
		MySQLDSN:       getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/shop?parseTime=true"),
		SQLitePath:     getEnv("SQLITE_PATH", "./data/shop.db"),
		DBMaxOpenConns: l.intVar("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdleConns: l.intVar("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLife:  l.durationVar("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       l.intVar("REDIS_DB", 0),
		RedisPoolSize: l.intVar("REDIS_POOL_SIZE", 100),
		CacheTTL:      l.durationVar("CACHE_TTL", 15*time.Minute),
		CacheNS:       getEnv("CACHE_NAMESPACE", "shop"),

		RequestTimeout:  l.durationVar("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout: l.durationVar("SHUTDOWN_TIMEOUT", 5*time.Second),
		LogLevel:        l.levelVar("LOG_LEVEL", slog.LevelInfo),
	}

	switch cfg.DBDriver {
	case "mysql", "sqlite":
	default:
		l.fail("DB_DRIVER", cfg.DBDriver, fmt.Errorf("must be mysql or sqlite"))
	}

	if l.err != nil {
		return Config{}, l.err
	}
	return cfg, nil
}

// getEnv distinguishes unset from empty so REDIS_ADDR="" can disable the cache.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// loader keeps the first parse error so Load can report it once.
type loader struct {
	err error
}

func (l *loader) fail(key, value string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("config %s=%q: %w", key, value, err)
	}
}

func (l *loader) intVar(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail(key, v, err)
		return fallback
	}
	return n
}

func (l *loader) durationVar(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(key, v, err)
		return fallback
	}
	return d
}

func (l *loader) levelVar(key string, fallback slog.Level) slog.Level {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
		l.fail(key, v, err)
		return fallback
	}
	return lvl
}
