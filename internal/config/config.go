package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Portal  PortalConfig  `mapstructure:"portal"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Storage StorageConfig `mapstructure:"storage"`
	Browser BrowserConfig `mapstructure:"browser"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	Log     LogConfig     `mapstructure:"log"`
}

// PortalConfig describes the trade fair portal
type PortalConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	PageSize int    `mapstructure:"page_size"`
}

// ScrapeConfig scopes product and exhibitor scraping
type ScrapeConfig struct {
	// Any mix of main, sub and product category IDs. Empty means all.
	Categories []string `mapstructure:"categories"`
	Exhibitors bool     `mapstructure:"exhibitors"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// BrowserConfig holds the browser launch options and wait bounds
type BrowserConfig struct {
	Headless                bool   `mapstructure:"headless"`
	ExecPath                string `mapstructure:"exec_path"`
	SettleMs                int    `mapstructure:"settle_ms"`
	NavTimeoutS             int    `mapstructure:"nav_timeout_s"`
	URLChangeTimeoutMs      int    `mapstructure:"url_change_timeout_ms"`
	NewTabTimeoutS          int    `mapstructure:"new_tab_timeout_s"`
	MaxNavigationsPerSecond int    `mapstructure:"max_navigations_per_second"`
}

func (b BrowserConfig) Settle() time.Duration {
	return time.Duration(b.SettleMs) * time.Millisecond
}

func (b BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(b.NavTimeoutS) * time.Second
}

func (b BrowserConfig) URLChangeTimeout() time.Duration {
	return time.Duration(b.URLChangeTimeoutMs) * time.Millisecond
}

func (b BrowserConfig) NewTabTimeout() time.Duration {
	return time.Duration(b.NewTabTimeoutS) * time.Second
}

// RetryConfig bounds the stage level retry loop
type RetryConfig struct {
	// 0 retries forever
	MaxAttempts      int `mapstructure:"max_attempts"`
	InitialIntervalS int `mapstructure:"initial_interval_s"`
	MaxIntervalS     int `mapstructure:"max_interval_s"`
}

// AuthConfig holds the portal account used by the interactive login
type AuthConfig struct {
	UserType string `mapstructure:"usertype"`
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type ProxyConfig struct {
	List    []string `mapstructure:"list"`
	TestURL string   `mapstructure:"test_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from config.yaml in the working directory with
// environment variable overrides. A .env file is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	return load(v)
}

// LoadFile loads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Warn("⚠️ config.yaml not found, using defaults and environment")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return errors.New("portal.base_url is required")
	}
	if !strings.HasSuffix(c.Portal.BaseURL, "/") {
		c.Portal.BaseURL += "/"
	}
	if c.Portal.PageSize <= 0 {
		return fmt.Errorf("portal.page_size must be positive, got %d", c.Portal.PageSize)
	}
	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if c.Retry.MaxAttempts < 0 || c.Retry.InitialIntervalS < 0 || c.Retry.MaxIntervalS < 0 {
		return errors.New("retry values must not be negative")
	}
	if c.Browser.MaxNavigationsPerSecond <= 0 {
		return fmt.Errorf("browser.max_navigations_per_second must be positive, got %d", c.Browser.MaxNavigationsPerSecond)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal.base_url", "https://www.cantonfair.org.cn/en-US/")
	v.SetDefault("portal.page_size", 60)

	v.SetDefault("scrape.categories", []string{})
	v.SetDefault("scrape.exhibitors", true)

	v.SetDefault("storage.data_dir", "./data")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.settle_ms", 3000)
	v.SetDefault("browser.nav_timeout_s", 30)
	v.SetDefault("browser.url_change_timeout_ms", 3000)
	v.SetDefault("browser.new_tab_timeout_s", 100)
	v.SetDefault("browser.max_navigations_per_second", 2)

	v.SetDefault("retry.max_attempts", 10)
	v.SetDefault("retry.initial_interval_s", 5)
	v.SetDefault("retry.max_interval_s", 120)

	v.SetDefault("auth.usertype", "")
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.email", "")
	v.SetDefault("auth.password", "")

	v.SetDefault("proxy.list", []string{})
	v.SetDefault("proxy.test_url", "")

	v.SetDefault("log.level", "info")
}
