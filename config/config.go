package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/ilyakaznacheev/cleanenv"
)

// MemoryDatabaseURL selects the in-process order store instead of Postgres.
const MemoryDatabaseURL = "memory"

type (
	Config struct {
		App     `json:"app"     toml:"app"`
		HTTP    `json:"http"    toml:"http"`
		DB      `json:"db"      toml:"db"`
		Log     `json:"logger"  toml:"logger"`
		Workers `json:"workers" toml:"workers"`
		Redis   `json:"redis"   toml:"redis"`
	}

	App struct {
		Name        string `json:"name"        toml:"name"        env:"APP_NAME"`
		Environment string `json:"environment" toml:"environment" env:"ENV_NAME" env-default:"dev"`
		Debug       bool   `json:"debug"       toml:"debug"       env:"DEBUG"    env-default:"false"`

		OperatorToken      string `json:"operator_token"      toml:"operator_token"      env:"OPERATOR_TOKEN" env-required:"true"`
		DefaultRate        string `json:"default_rate"        toml:"default_rate"        env:"DEFAULT_RATE" env-default:"0.0035"`
		InformationalPrice string `json:"informational_price" toml:"informational_price" env:"INFORMATIONAL_PRICE" env-default:"0.0035"`

		ManagedLBCAddress  string `json:"managed_lbc_address"  toml:"managed_lbc_address"  env:"MANAGED_LBC_ADDRESS"`
		ManagedUSDCAddress string `json:"managed_usdc_address" toml:"managed_usdc_address" env:"MANAGED_USDC_ADDRESS"`

		RequireBuyerUSDCAddress bool `json:"require_buyer_usdc_address" toml:"require_buyer_usdc_address" env:"REQUIRE_BUYER_USDC_ADDRESS" env-default:"false"`
	}

	HTTP struct {
		Port           string   `json:"port"            toml:"port"            env:"HTTP_PORT" env-default:"8080"`
		AllowedOrigins []string `json:"allowed_origins" toml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
		TrustedProxies []string `json:"trusted_proxies" toml:"trusted_proxies" env:"HTTP_TRUSTED_PROXIES" env-separator:","`
	}

	DB struct {
		DatabaseURL       string `json:"database_url"        toml:"database_url"        env:"DATABASE_URL" env-default:"memory"`
		PoolMax           int32  `json:"pool_max"            toml:"pool_max"            env:"PG_POOL_MAX" env-default:"10"`
		ConnectTimeout    int    `json:"connect_timeout"     toml:"connect_timeout"     env:"PG_POOL_CONN_TIMEOUT" env-default:"5"`
		HealthCheckPeriod int    `json:"health_check_period" toml:"health_check_period" env:"PG_POOL_HEALTHCHECK" env-default:"1"`
		MigrationsPath    string `json:"migrations_path"     toml:"migrations_path"     env:"MIGRATIONS_PATH"`
	}

	Log struct {
		Level      slog.Level `json:"level"        toml:"level"        env:"LOG_LEVEL"`
		File       string     `json:"file"         toml:"file"         env:"LOG_FILE"`
		MaxSizeMB  int        `json:"max_size_mb"  toml:"max_size_mb"  env:"LOG_MAX_SIZE_MB" env-default:"100"`
		MaxBackups int        `json:"max_backups"  toml:"max_backups"  env:"LOG_MAX_BACKUPS" env-default:"5"`
		MaxAgeDays int        `json:"max_age_days" toml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"30"`
	}

	Workers struct {
		OrderExpiration    int  `json:"order_expiration_minutes"     toml:"order_expiration_minutes"     env:"ORDER_EXPIRATION_MINUTES" env-default:"30"`
		OrderSweepInterval int  `json:"order_sweep_interval_seconds" toml:"order_sweep_interval_seconds" env:"ORDER_SWEEP_INTERVAL_SECONDS" env-default:"60"`
		OrderSweepEnabled  bool `json:"order_sweep_enabled"          toml:"order_sweep_enabled"          env:"ORDER_SWEEP_ENABLED" env-default:"true"`
	}

	Redis struct {
		Addr        string `json:"addr"                 toml:"addr"                 env:"REDIS_ADDR"`
		Password    string `json:"password"             toml:"password"             env:"REDIS_PASSWORD"`
		DB          int    `json:"db"                   toml:"db"                   env:"REDIS_DB" env-default:"0"`
		OrderLimit  int64  `json:"order_limit"          toml:"order_limit"          env:"REDIS_ORDER_LIMIT" env-default:"10"`
		OrderWindow int    `json:"order_window_seconds" toml:"order_window_seconds" env:"REDIS_ORDER_WINDOW_SECONDS" env-default:"60"`
	}
)

// UsesMemoryStore reports whether orders should be kept in process memory.
func (db DB) UsesMemoryStore() bool {
	return db.DatabaseURL == "" || db.DatabaseURL == MemoryDatabaseURL
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	_, b, _, _ := runtime.Caller(0)
	basePath := filepath.Dir(b)

	configTomlPath := filepath.Join(basePath, "config.toml")
	err := cleanenv.ReadConfig(configTomlPath, cfg)
	if err != nil {
		configJsonPath := filepath.Join(basePath, "config.json")
		err = cleanenv.ReadConfig(configJsonPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	err = cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("env read error: %w", err)
	}

	return cfg, nil
}
