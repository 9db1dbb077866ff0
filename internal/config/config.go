/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the hawala-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string  `mapstructure:"SERVER_PORT"`
	DatabaseURL              string  `mapstructure:"DATABASE_URL"`
	RedisURL                 string  `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string  `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL              string  `mapstructure:"RABBITMQ_URL"`
	TransactionEventExchange string  `mapstructure:"TRANSACTION_EVENT_EXCHANGE"`
	JWTSecret                string  `mapstructure:"JWT_SECRET"`
	ClickSendUsername        string  `mapstructure:"CLICKSEND_USERNAME"`
	ClickSendAPIKey          string  `mapstructure:"CLICKSEND_API_KEY"`
	ClickSendSender          string  `mapstructure:"CLICKSEND_SENDER"`
	SMSRateLimitPerMinute    int     `mapstructure:"SMS_RATE_LIMIT_PER_MINUTE"`
	OpenExchangeAppID        string  `mapstructure:"OPENEXCHANGE_APP_ID"`
	CurrencyLayerKey         string  `mapstructure:"CURRENCYLAYER_KEY"`
	RateRefreshSchedule      string  `mapstructure:"RATE_REFRESH_SCHEDULE"`
	RateFreshnessMinutes     int     `mapstructure:"RATE_FRESHNESS_MINUTES"`
	RateHistoryKeep          int     `mapstructure:"RATE_HISTORY_KEEP"`
	LocalCurrency            string  `mapstructure:"LOCAL_CURRENCY"`
	FeePercent               float64 `mapstructure:"FEE_PERCENT"`
	FeeFlat                  float64 `mapstructure:"FEE_FLAT"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "hawala:rate_limit")
	viper.SetDefault("TRANSACTION_EVENT_EXCHANGE", "hawala.transaction_events")
	viper.SetDefault("SMS_RATE_LIMIT_PER_MINUTE", 3)
	viper.SetDefault("RATE_REFRESH_SCHEDULE", "0 * * * *")
	viper.SetDefault("RATE_FRESHNESS_MINUTES", 60)
	viper.SetDefault("RATE_HISTORY_KEEP", 100)
	viper.SetDefault("LOCAL_CURRENCY", "ZAR")
	viper.SetDefault("FEE_PERCENT", 0.01)
	viper.SetDefault("FEE_FLAT", 10.0)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "HAWALA_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("TRANSACTION_EVENT_EXCHANGE")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("CLICKSEND_USERNAME")
	_ = viper.BindEnv("CLICKSEND_API_KEY", "CLICKSEND_API_KEY", "CLICKSEND_KEY")
	_ = viper.BindEnv("CLICKSEND_SENDER")
	_ = viper.BindEnv("SMS_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("OPENEXCHANGE_APP_ID")
	_ = viper.BindEnv("CURRENCYLAYER_KEY")
	_ = viper.BindEnv("RATE_REFRESH_SCHEDULE")
	_ = viper.BindEnv("RATE_FRESHNESS_MINUTES")
	_ = viper.BindEnv("RATE_HISTORY_KEEP")
	_ = viper.BindEnv("LOCAL_CURRENCY")
	_ = viper.BindEnv("FEE_PERCENT")
	_ = viper.BindEnv("FEE_FLAT")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "hawala:rate_limit"
	}

	config.LocalCurrency = strings.ToUpper(strings.TrimSpace(config.LocalCurrency))
	if len(config.LocalCurrency) != 3 {
		log.Printf("level=warn component=config msg=\"invalid LOCAL_CURRENCY; falling back to ZAR\" value=%q", config.LocalCurrency)
		config.LocalCurrency = "ZAR"
	}

	if config.FeePercent < 0 {
		log.Printf("level=warn component=config msg=\"negative fee percent configured; coercing to zero\" fee_percent=%f", config.FeePercent)
		config.FeePercent = 0
	}
	if config.FeePercent > 1 {
		log.Printf("level=warn component=config msg=\"fee percent above 1.0; capping\" fee_percent=%f", config.FeePercent)
		config.FeePercent = 1
	}
	if config.FeeFlat < 0 {
		log.Printf("level=warn component=config msg=\"negative flat fee configured; coercing to zero\" fee_flat=%f", config.FeeFlat)
		config.FeeFlat = 0
	}

	if config.SMSRateLimitPerMinute <= 0 {
		config.SMSRateLimitPerMinute = 3
	}
	if config.RateFreshnessMinutes <= 0 {
		config.RateFreshnessMinutes = 60
	}
	if config.RateHistoryKeep <= 0 {
		config.RateHistoryKeep = 100
	}
	if strings.TrimSpace(config.RateRefreshSchedule) == "" {
		config.RateRefreshSchedule = "0 * * * *"
	}

	return
}
