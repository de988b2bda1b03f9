package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig     `mapstructure:"http"`
	Log        LogConfig      `mapstructure:"log"`
	MySQL      DatabaseConfig `mapstructure:"mysql"`
	ClickHouse DatabaseConfig `mapstructure:"clickhouse"`
	Redis      RedisConfig    `mapstructure:"redis"`
	CRM        CRMConfig      `mapstructure:"crm"`
	Scrape     ScrapeConfig   `mapstructure:"scrape"`
	Sender     SenderConfig   `mapstructure:"sender"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr   string `mapstructure:"addr"`
	APIKey string `mapstructure:"api_key"` // ops endpoints auth; empty disables the check
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"` // empty disables the run lock
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

// CRMConfig covers the CRM REST surface plus the company property internal
// names the pipeline writes (they must exist in the CRM portal).
type CRMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Properties  PropertyNames `mapstructure:"properties"`
}

type PropertyNames struct {
	PlaceID string `mapstructure:"place_id"`
	Rating  string `mapstructure:"rating"`
	Text    string `mapstructure:"text"`
	Date    string `mapstructure:"date"`
	URL     string `mapstructure:"url"`
}

type ScrapeConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ReviewsLimit int           `mapstructure:"reviews_limit"`
}

type SenderConfig struct {
	BatchLimit  int `mapstructure:"batch_limit"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (RVMON_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (RVMON_*)
	v.SetEnvPrefix("RVMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the delivery pipeline cannot run without.
func (c CRMConfig) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("crm access_token is empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("crm base_url is empty")
	}
	return nil
}

// Validate checks the settings the review monitor cannot run without.
func (c ScrapeConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("scrape api_key is empty")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("scrape endpoint is empty")
	}
	return nil
}
