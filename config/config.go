package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Deposit   DepositConfig   `mapstructure:"deposit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig configures validation of session tokens issued by the auth service.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// ProcessorConfig configures the external payment processor integration.
type ProcessorConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	IPNSecret   string        `mapstructure:"ipn_secret"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CallbackURL string        `mapstructure:"callback_url"` // public URL of POST /webhooks/nowpayments
	SuccessURL  string        `mapstructure:"success_url"`
	CancelURL   string        `mapstructure:"cancel_url"`
}

// DepositConfig bounds deposit creation. The lower bound exists because the
// processor rejects amounts that fall under its own per-currency minimum
// after exchange-rate rounding.
type DepositConfig struct {
	MinAmountUSD  string   `mapstructure:"min_amount_usd"`
	MaxAmountUSD  string   `mapstructure:"max_amount_usd"`
	PayCurrencies []string `mapstructure:"pay_currencies"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CDG_ (Crypto Deposit
// Gateway), nested keys joined with underscore: CDG_PROCESSOR_API_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "crypto_deposit_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "casino-platform")
	v.SetDefault("processor.base_url", "https://api.nowpayments.io/v1")
	v.SetDefault("processor.api_key", "")
	v.SetDefault("processor.ipn_secret", "")
	v.SetDefault("processor.timeout", "15s")
	v.SetDefault("processor.callback_url", "")
	v.SetDefault("processor.success_url", "")
	v.SetDefault("processor.cancel_url", "")
	v.SetDefault("deposit.min_amount_usd", "6")
	v.SetDefault("deposit.max_amount_usd", "10000")
	v.SetDefault("deposit.pay_currencies", []string{
		"usdttrc20", "usdterc20", "usdc", "btc", "eth", "ltc", "trx", "sol", "doge",
	})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CDG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CDG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can suffice
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
