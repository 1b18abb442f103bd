package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nDmitry/wpblog/internal/entity"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort        = "8080"
	defaultPerPage     = 100
	defaultCacheTTL    = 5 // minutes
	defaultLocale      = "fr_FR"
	defaultImageWidth  = 1200
	defaultQuality     = 80
	defaultPlaceholder = "/images/blog-placeholder.jpg"
	maxPerPage         = 100
)

// Load reads the optional .env file, then the YAML config file when
// configPath is set, then applies environment overrides and defaults.
func Load(configPath string) (*entity.Config, error) {
	// A missing .env is normal outside of local development.
	_ = godotenv.Load()

	config := newConfig()

	if configPath != "" {
		c, err := Read(configPath)

		if err != nil {
			return nil, err
		}

		config = *c
	}

	if err := applyEnv(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if config.APIBaseURL == "" {
		return nil, fmt.Errorf("WordPress API base URL is required (apiBaseUrl or WP_API_URL)")
	}

	return &config, nil
}

// Read parses a YAML config file.
func Read(configPath string) (*entity.Config, error) {
	contents, err := os.ReadFile(configPath)

	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	config := newConfig()

	if err = yaml.Unmarshal(contents, &config); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	return &config, nil
}

// newConfig returns a config pre-filled with the defaults that zero is a
// valid override for, so an explicit zero in the file is kept.
func newConfig() entity.Config {
	return entity.Config{CacheTTLMinutes: defaultCacheTTL}
}

func applyEnv(config *entity.Config) error {
	if v := os.Getenv("HTTP_SERVER_PORT"); v != "" {
		config.HTTPPort = v
	}

	if v := os.Getenv("WP_API_URL"); v != "" {
		config.APIBaseURL = v
	}

	if v := os.Getenv("REDIS_HOST"); v != "" {
		config.RedisAddr = fmt.Sprintf("%s:6379", v)
	}

	if v := os.Getenv("PURGE_TOKEN"); v != "" {
		config.PurgeToken = v
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		config.CORSOrigins = splitList(v)
	}

	if v := os.Getenv("CACHE_TTL_MINUTES"); v != "" {
		ttl, err := strconv.Atoi(v)

		if err != nil || ttl < 0 {
			return fmt.Errorf("CACHE_TTL_MINUTES must be a non-negative integer")
		}

		config.CacheTTLMinutes = ttl
	}

	return nil
}

func applyDefaults(config *entity.Config) {
	config.APIBaseURL = strings.TrimRight(config.APIBaseURL, "/")

	if config.HTTPPort == "" {
		config.HTTPPort = defaultPort
	}

	if config.PerPage <= 0 || config.PerPage > maxPerPage {
		config.PerPage = defaultPerPage
	}

	if config.CacheTTLMinutes < 0 {
		config.CacheTTLMinutes = 0
	}

	if config.DateLocale == "" {
		config.DateLocale = defaultLocale
	}

	if config.Image.Width <= 0 {
		config.Image.Width = defaultImageWidth
	}

	if config.Image.Quality <= 0 || config.Image.Quality > 100 {
		config.Image.Quality = defaultQuality
	}

	if config.Image.Placeholder == "" {
		config.Image.Placeholder = defaultPlaceholder
	}

	if len(config.CORSOrigins) == 0 {
		config.CORSOrigins = []string{"*"}
	}

	if config.CategoryAliases == nil {
		config.CategoryAliases = map[string]string{}
	}
}

func splitList(s string) []string {
	var items []string

	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
