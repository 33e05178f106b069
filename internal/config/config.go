package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	DB          DatabaseConfig
	OpenAI      OpenAIConfig
	Feed        FeedConfig
	RedisURL    string
	LockTTL     time.Duration
	MetricsPort string
}

// DatabaseConfig holds the PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// OpenAIConfig holds the completion API credentials and model selection.
type OpenAIConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	MarketingLanguage string
}

// FeedConfig describes where the product feed comes from.
type FeedConfig struct {
	// Path overrides CSV discovery when set.
	Path     string
	Dir      string
	URL      string
	Email    string
	Password string
}

func Load() (*Config, error) {
	// .env at the project root when run via go run ./cmd/...
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	lockTTL, err := time.ParseDuration(getEnv("LOCK_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCK_TTL: %w", err)
	}
	if lockTTL <= 0 {
		return nil, fmt.Errorf("invalid LOCK_TTL: duration must be > 0")
	}

	return &Config{
		Env: getEnv("ENV", "development"),
		DB: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			User:     os.Getenv("PG_USERNAME"),
			Password: os.Getenv("PG_PASSWORD"),
			Name:     os.Getenv("PG_DATABASE"),
			SSLMode:  getEnv("PG_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:            os.Getenv("OPENAI_API_KEY"),
			Model:             getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:           os.Getenv("OPENAI_BASE_URL"),
			MarketingLanguage: getEnv("MARKETING_LANGUAGE", "Romanian"),
		},
		Feed: FeedConfig{
			Path:     os.Getenv("PRODUCT_CSV_PATH"),
			Dir:      getEnv("FEED_DIR", "."),
			URL:      os.Getenv("CSV_URL"),
			Email:    os.Getenv("EMAIL"),
			Password: os.Getenv("PASSWORD"),
		},
		RedisURL:    os.Getenv("REDIS_URL"),
		LockTTL:     lockTTL,
		MetricsPort: os.Getenv("METRICS_PORT"),
	}, nil
}

// RequireDatabase reports which PostgreSQL variables are missing, if any.
func (c *Config) RequireDatabase() error {
	return requireAll(map[string]string{
		"PG_USERNAME": c.DB.User,
		"PG_PASSWORD": c.DB.Password,
		"PG_DATABASE": c.DB.Name,
	}, "PostgreSQL")
}

func (c *Config) RequireOpenAI() error {
	return requireAll(map[string]string{"OPENAI_API_KEY": c.OpenAI.APIKey}, "OpenAI")
}

func (c *Config) RequireFeedSource() error {
	return requireAll(map[string]string{
		"CSV_URL":  c.Feed.URL,
		"EMAIL":    c.Feed.Email,
		"PASSWORD": c.Feed.Password,
	}, "feed download")
}

// URL builds a postgres:// connection string accepted by both lib/pq and pgx.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// Redacted is URL without the password, for logging.
func (d DatabaseConfig) Redacted() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.User(d.User),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	return u.String()
}

func requireAll(vars map[string]string, what string) error {
	var missing []string
	for _, name := range sortedKeys(vars) {
		if strings.TrimSpace(vars[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required %s environment variables: %s", what, strings.Join(missing, ", "))
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
