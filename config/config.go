package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mmdatafocus/inventory_backend/utils"
)

const defaultPort = "8080"

type Config struct {
	DBDriver   string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	SQLitePath string

	// empty means in-process locks (single instance)
	RedisAddress string

	Port               string
	LogLevel           string
	Production         bool
	CORSAllowedOrigins []string

	ShortagePolicy string
	SkipMigrations bool

	RateLimitEnabled     bool
	RateLimitMaxRequests int64
	RateLimitWindow      time.Duration
}

func init() {
	// Load env from .env
	godotenv.Load()
}

// Load reads the process environment into a Config.
func Load() Config {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	driver := strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER")))
	if driver == "" {
		driver = "mysql"
	}
	sqlitePath := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if sqlitePath == "" {
		sqlitePath = "inventory.db"
	}

	return Config{
		DBDriver:   driver,
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBName:     os.Getenv("DB_NAME"),
		SQLitePath: sqlitePath,

		RedisAddress: strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),

		Port:               port,
		LogLevel:           strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		Production:         strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production"),
		CORSAllowedOrigins: utils.SplitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),

		ShortagePolicy: FifoShortagePolicy(),
		SkipMigrations: SkipMigrations(),

		RateLimitEnabled:     envBool("RATE_LIMIT_ENABLED"),
		RateLimitMaxRequests: int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600)),
		RateLimitWindow:      time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
