package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultSearchURL = "https://www.airbnb.com/s/Downtown-Dubai--Dubai--United-Arab-Emirates/homes"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SearchURL  string
	SiteOrigin string

	TimeLimitMinutes float64
	MaxNewListings   int
	MaxPages         int
	PageSize         int

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	NavTimeout     time.Duration
	ItemTimeout    time.Duration
	SettleDelay    time.Duration

	RunOutputPath string
	MasterPath    string

	CheckpointBackend string
	CheckpointPath    string
	CheckpointEvery   int

	HostEnrichment bool
	HostMaxScrolls int
	SelectorsFile  string

	BlockResources bool
	Locale         string
	Headless       bool
	ChromeBin      string

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	MetricsPath string
	LogLevel    string
	LogFormat   string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		SearchURL:  getEnv("SEARCH_URL", defaultSearchURL),
		SiteOrigin: getEnv("SITE_ORIGIN", "https://www.airbnb.com"),

		TimeLimitMinutes: getEnvFloat("TIME_LIMIT_MIN", 28),
		MaxNewListings:   getEnvInt("MAX_NEW_LISTINGS", 100),
		MaxPages:         getEnvInt("MAX_PAGES", 30),
		PageSize:         getEnvInt("PAGE_SIZE", 18),

		MaxConcurrency: clamp(getEnvInt("MAX_CONCURRENCY", 1), 1, 4),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1200),
		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		NavTimeout:     getEnvDuration("NAV_TIMEOUT", 40*time.Second),
		ItemTimeout:    getEnvDuration("ITEM_TIMEOUT", 90*time.Second),
		SettleDelay:    getEnvDuration("SETTLE_DELAY", 1500*time.Millisecond),

		RunOutputPath: getEnv("RUN_OUTPUT_PATH", "./output/airbnb_listings_run.csv"),
		MasterPath:    getEnv("MASTER_PATH", "./output/airbnb_listings_master.csv"),

		CheckpointBackend: strings.ToLower(getEnv("CHECKPOINT_BACKEND", "file")),
		CheckpointPath:    getEnv("CHECKPOINT_PATH", "./output/checkpoint.json"),
		CheckpointEvery:   getEnvInt("CHECKPOINT_EVERY", 10),

		HostEnrichment: getEnvBool("HOST_ENRICHMENT", true),
		HostMaxScrolls: getEnvInt("HOST_MAX_SCROLLS", 10),
		SelectorsFile:  getEnv("SELECTORS_FILE", ""),

		BlockResources: getEnvBool("BLOCK_RESOURCES", true),
		Locale:         getEnv("LOCALE", "en-US"),
		Headless:       getEnvBool("HEADLESS", true),
		ChromeBin:      getEnv("CHROME_BIN", ""),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisKey:      getEnv("REDIS_KEY", "airbnb-harvester:checkpoint"),

		MetricsPath: getEnv("METRICS_PATH", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	origin, err := url.Parse(c.SiteOrigin)
	if err != nil || !origin.IsAbs() || origin.Host == "" {
		return fmt.Errorf("config: SITE_ORIGIN must be an absolute URL, got %q", c.SiteOrigin)
	}
	if strings.TrimSpace(c.SearchURL) == "" {
		return errors.New("config: SEARCH_URL is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.TimeLimitMinutes < 0 || c.MaxNewListings < 0 || c.MaxPages < 0 {
		return errors.New("config: TIME_LIMIT_MIN, MAX_NEW_LISTINGS and MAX_PAGES must not be negative")
	}
	switch c.CheckpointBackend {
	case "file", "redis", "none":
	default:
		return fmt.Errorf("config: unknown CHECKPOINT_BACKEND %q", c.CheckpointBackend)
	}
	return nil
}

// TimeLimit returns the run's wall-clock budget.
func (c *Config) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitMinutes * float64(time.Minute))
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("40s") or plain seconds ("40").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
