package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"archie-shopify-app-core/internal/domain"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Session storage backends
const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
	StorageRedis  = "redis"
)

const (
	defaultAPIVersion  = "2024-01"
	defaultWebhookPath = "/webhooks"
	defaultPort        = "8080"
	defaultMongoURI    = "mongodb://localhost:27017"
	defaultMongoDB     = "shopify_app"
	defaultRedisAddr   = "localhost:6379"
)

// Config is the process configuration read from the environment
type Config struct {
	App            domain.AppConfig
	IsOnline       bool
	WebhookPath    string
	WebhookTopics  []string
	SessionStorage string
	MongoURI       string
	MongoDatabase  string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	Port           string
	LogLevel       zerolog.Level
}

// Load reads .env when present and then the environment
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: .env file not found")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment
func FromEnv() (*Config, error) {
	embedded, err := envBool("SHOPIFY_EMBEDDED_APP", true)
	if err != nil {
		return nil, err
	}
	private, err := envBool("SHOPIFY_PRIVATE_APP", false)
	if err != nil {
		return nil, err
	}
	redisDB, err := envInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: domain.AppConfig{
			APIKey:        os.Getenv("SHOPIFY_API_KEY"),
			APISecretKey:  os.Getenv("SHOPIFY_API_SECRET"),
			Scopes:        domain.ParseScopes(os.Getenv("SHOPIFY_SCOPES")),
			HostName:      strings.TrimPrefix(strings.TrimPrefix(os.Getenv("HOST_NAME"), "https://"), "http://"),
			APIVersion:    envString("SHOPIFY_API_VERSION", defaultAPIVersion),
			IsEmbeddedApp: embedded,
			IsPrivateApp:  private,
		},
		WebhookPath:    envString("WEBHOOK_PATH", defaultWebhookPath),
		WebhookTopics:  splitList(os.Getenv("WEBHOOK_TOPICS")),
		SessionStorage: strings.ToLower(envString("SESSION_STORAGE", StorageMemory)),
		MongoURI:       envString("MONGODB_URI", defaultMongoURI),
		MongoDatabase:  envString("MONGODB_DATABASE", defaultMongoDB),
		RedisAddr:      envString("REDIS_ADDR", defaultRedisAddr),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
		RedisKeyPrefix: os.Getenv("REDIS_KEY_PREFIX"),
		Port:           envString("PORT", defaultPort),
		LogLevel:       zerolog.InfoLevel,
	}

	switch mode := strings.ToLower(envString("SHOPIFY_ACCESS_MODE", "online")); mode {
	case "online":
		cfg.IsOnline = true
	case "offline":
		cfg.IsOnline = false
	default:
		return nil, fmt.Errorf("%w: unknown SHOPIFY_ACCESS_MODE %q", domain.ErrConfiguration, mode)
	}

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid LOG_LEVEL %q", domain.ErrConfiguration, raw)
		}
		cfg.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings needed by the selected features are present
func (c *Config) Validate() error {
	if c.App.APISecretKey == "" {
		return fmt.Errorf("%w: SHOPIFY_API_SECRET is required", domain.ErrConfiguration)
	}
	if !c.App.IsPrivateApp {
		if c.App.APIKey == "" {
			return fmt.Errorf("%w: SHOPIFY_API_KEY is required", domain.ErrConfiguration)
		}
		if c.App.HostName == "" {
			return fmt.Errorf("%w: HOST_NAME is required", domain.ErrConfiguration)
		}
	}
	if !strings.HasPrefix(c.WebhookPath, "/") {
		return fmt.Errorf("%w: WEBHOOK_PATH must start with /", domain.ErrConfiguration)
	}
	switch c.SessionStorage {
	case StorageMemory, StorageMongo, StorageRedis:
	default:
		return fmt.Errorf("%w: unknown SESSION_STORAGE %q", domain.ErrConfiguration, c.SessionStorage)
	}
	return nil
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", domain.ErrConfiguration, key, raw)
	}
	return value, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrConfiguration, key, raw)
	}
	return value, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
