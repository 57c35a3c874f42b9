package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	DarajaConsumerKey    string `env:"DARAJA_CONSUMER_KEY,required"`
	DarajaConsumerSecret string `env:"DARAJA_CONSUMER_SECRET,required"`
	DarajaShortcode      string `env:"DARAJA_SHORTCODE,required"`
	DarajaPasskey        string `env:"DARAJA_PASSKEY,required"`
	DarajaBaseURL        string `env:"DARAJA_BASE_URL" envDefault:"https://sandbox.safaricom.co.ke"`
	CallbackURL          string `env:"CALLBACK_URL,required"`
	GatewayTimeoutS      int    `env:"GATEWAY_TIMEOUT_S" envDefault:"30"`

	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
