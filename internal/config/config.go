// Package config содержит логику чтения конфигурации сервиса quotedesk.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса quotedesk.
type Config struct {
	RunAddress      string `env:"RUN_ADDRESS"`
	DatabaseURI     string `env:"DATABASE_URI"`
	NotifierAddress string `env:"NOTIFIER_ADDRESS"`
	GatewayAddress  string `env:"GATEWAY_ADDRESS"`
	AuthSecret      string `env:"AUTH_SECRET"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envNotifierAddress := cfg.NotifierAddress
	envGatewayAddress := cfg.GatewayAddress
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.NotifierAddress, "n", "", "invoice notifier address")
	flag.StringVar(&cfg.GatewayAddress, "g", "", "payment gateway address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "auth cookie signing secret")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envNotifierAddress != "" {
		cfg.NotifierAddress = envNotifierAddress
	}
	if envGatewayAddress != "" {
		cfg.GatewayAddress = envGatewayAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
