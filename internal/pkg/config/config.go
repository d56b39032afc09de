package config

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	App       AppConfig       `mapstructure:"app"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	SMS       SMSConfig       `mapstructure:"sms"`
	Cron      CronConfig      `mapstructure:"cron"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Reminders RemindersConfig `mapstructure:"reminders"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int64  `mapstructure:"expire"` // hours
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

// PaymentConfig holds the processor credentials. ApproveURL is the endpoint
// of the mandatory second-phase confirmation call.
type PaymentConfig struct {
	UserID         string `mapstructure:"user_id"`
	APIKey         string `mapstructure:"api_key"`
	PageCode       string `mapstructure:"page_code"`
	ApproveURL     string `mapstructure:"approve_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SMSConfig lists provider credentials. A provider with empty credentials is
// treated as unconfigured and skipped by the gateway chain.
type SMSConfig struct {
	Sender   string          `mapstructure:"sender"`
	SMS4Free SMS4FreeConfig  `mapstructure:"sms4free"`
	Aliyun   AliyunSMSConfig `mapstructure:"aliyun"`
}

type SMS4FreeConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type AliyunSMSConfig struct {
	RegionID        string `mapstructure:"region_id"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	SignName        string `mapstructure:"sign_name"`
	TemplateCode    string `mapstructure:"template_code"`
}

// CronConfig gates the batch endpoints with a shared bearer secret.
type CronConfig struct {
	Secret string `mapstructure:"secret"`
}

// PricingConfig drives coupon math and referral credits.
type PricingConfig struct {
	BasePrices      map[string]float64 `mapstructure:"base_prices"` // keyed by service type
	DefaultPrice    float64            `mapstructure:"default_price"`
	ReferralPercent float64            `mapstructure:"referral_percent"` // discount for the referred user
	ReferralCredit  float64            `mapstructure:"referral_credit"`  // fixed credit for the referrer
}

// RemindersConfig tunes the abandonment follow-up tiers.
type RemindersConfig struct {
	Tier1Hours int `mapstructure:"tier1_hours"`
	Tier2Hours int `mapstructure:"tier2_hours"`
	BatchSize  int `mapstructure:"batch_size"`
}

var GlobalConfig Config

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis address is required")
	}
	if c.Cron.Secret == "" {
		return errors.New("cron.secret is required: batch endpoints must not be open")
	}
	if c.JWT.Secret == "" || len(c.JWT.Secret) < 32 {
		return errors.New("jwt.secret must be set and at least 32 characters")
	}
	if c.Reminders.Tier2Hours <= c.Reminders.Tier1Hours {
		return errors.New("reminders.tier2_hours must be greater than tier1_hours")
	}
	return nil
}

// LoadConfig reads configs/config.yaml (with APP_ENV overlay), applies
// defaults and env overrides, and validates the result.
func LoadConfig() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	configName := "config"
	if env != "" && env != "dev" {
		configName = "config." + env
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("jwt.expire", 24)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("app.env", "dev")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("payment.timeout_seconds", 10)
	viper.SetDefault("pricing.default_price", 79)
	viper.SetDefault("pricing.referral_percent", 10)
	viper.SetDefault("pricing.referral_credit", 20)
	viper.SetDefault("reminders.tier1_hours", 24)
	viper.SetDefault("reminders.tier2_hours", 72)
	viper.SetDefault("reminders.batch_size", 50)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	// Explicit env overrides for the values that rotate between deploys.
	if host := os.Getenv("DB_HOST"); host != "" {
		GlobalConfig.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		GlobalConfig.Redis.Addr = redisAddr
	}
	if secret := os.Getenv("CRON_SECRET"); secret != "" {
		GlobalConfig.Cron.Secret = secret
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		GlobalConfig.JWT.Secret = secret
	}
	if key := os.Getenv("PAYMENT_API_KEY"); key != "" {
		GlobalConfig.Payment.APIKey = key
	}

	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
