package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// StoreConfig holds persistence settings. FreshTTLMinutes controls how
// long a stored record short-circuits re-extraction.
type StoreConfig struct {
	Path            string `yaml:"path"`
	FreshTTLMinutes int    `yaml:"fresh_ttl_minutes"`
}

// FetchConfig bounds the extractors' network behavior.
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Attempts       int    `yaml:"attempts"`
	BaseDelayMS    int    `yaml:"base_delay_ms"`
	MaxDelayMS     int    `yaml:"max_delay_ms"`
	UserAgent      string `yaml:"user_agent"`
}

// BrowserConfig applies to the headless-browser extractor only.
type BrowserConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Config is the complete structure of config.yml. Every field has a
// working default and an environment override, so the file is optional.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Browser BrowserConfig `yaml:"browser"`
}

// LoadEnv pulls in .env.local for local runs. Missing files are fine.
func LoadEnv() {
	if os.Getenv("APP_ENV") == "local" {
		if err := godotenv.Load(".env.local"); err != nil {
			log.Printf("Warning: .env.local not loaded: %v. Relying on system environment.", err)
		}
	}
}

// Load reads the optional config file and applies env overrides.
func Load(filepath string) *Config {
	cfg := &Config{
		Server:  ServerConfig{Port: "9090"},
		Store:   StoreConfig{Path: "./products.db", FreshTTLMinutes: 1440},
		Fetch:   FetchConfig{TimeoutSeconds: 10, Attempts: 3, BaseDelayMS: 500, MaxDelayMS: 5000},
		Browser: BrowserConfig{TimeoutSeconds: 45},
	}

	if data, err := os.ReadFile(filepath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("Error unmarshalling config YAML: %v", err)
		}
	}

	overrideString(&cfg.Server.Port, "PORT")
	overrideString(&cfg.Store.Path, "STORE_DB_PATH")
	overrideInt(&cfg.Store.FreshTTLMinutes, "STORE_FRESH_TTL_MINUTES")
	overrideInt(&cfg.Fetch.TimeoutSeconds, "FETCH_TIMEOUT_SECONDS")
	overrideInt(&cfg.Fetch.Attempts, "FETCH_ATTEMPTS")
	overrideString(&cfg.Fetch.UserAgent, "FETCH_USER_AGENT")
	overrideInt(&cfg.Browser.TimeoutSeconds, "BROWSER_TIMEOUT_SECONDS")

	return cfg
}

func (c *Config) FreshTTL() time.Duration {
	return time.Duration(c.Store.FreshTTLMinutes) * time.Minute
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

func (c *Config) FetchBaseDelay() time.Duration {
	return time.Duration(c.Fetch.BaseDelayMS) * time.Millisecond
}

func (c *Config) FetchMaxDelay() time.Duration {
	return time.Duration(c.Fetch.MaxDelayMS) * time.Millisecond
}

func (c *Config) BrowserTimeout() time.Duration {
	return time.Duration(c.Browser.TimeoutSeconds) * time.Second
}

func overrideString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func overrideInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			*dst = parsed
		}
	}
}
