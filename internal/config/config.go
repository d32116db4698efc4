package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig describes one Postgres connection.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type Config struct {
	// Server
	Port string

	// Primary store: accounts, audit log, live sensor readings
	DB DatabaseConfig

	// Secondary store: long-term archive with daily hi/lo rollups
	ArchiveDB DatabaseConfig

	// Auth
	HashScheme       string // bcrypt, argon2id or sha1
	StationJWTSecret string

	// Optional admin account created when the accounts table is empty
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	BootstrapAdminName     string

	// Logging
	LogLevel  string
	LogFormat string

	// Export / streaming
	HiLoConcurrency int
	LiveInterval    time.Duration
}

// AgentConfig configures the station-side command poller.
type AgentConfig struct {
	GatewayURL     string
	StationToken   string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	ResetCommand   string
	RestartCommand string

	LogLevel  string
	LogFormat string
}

// Load reads the gateway configuration from the environment, honouring a local .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	liveInterval, err := getDuration("LIVE_INTERVAL", "5s")
	if err != nil {
		return nil, err
	}
	hiloConcurrency, err := getInt("HILO_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	maxConns, err := getInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port: getEnv("PORT", "8097"),
		DB: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "cosesweather"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: maxConns,
			MaxIdle:  maxConns / 2,
		},
		ArchiveDB: DatabaseConfig{
			Host:     getEnv("ARCHIVE_DB_HOST", "localhost"),
			Port:     getEnv("ARCHIVE_DB_PORT", "5432"),
			User:     getEnv("ARCHIVE_DB_USER", "postgres"),
			Password: getEnv("ARCHIVE_DB_PASSWORD", ""),
			Name:     getEnv("ARCHIVE_DB_NAME", "weewx"),
			SSLMode:  getEnv("ARCHIVE_DB_SSLMODE", "disable"),
			MaxConns: maxConns,
			MaxIdle:  maxConns / 2,
		},
		HashScheme:             getEnv("HASH_SCHEME", "bcrypt"),
		StationJWTSecret:       getEnv("STATION_JWT_SECRET", ""),
		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		BootstrapAdminName:     getEnv("BOOTSTRAP_ADMIN_NAME", "Administrator"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		HiLoConcurrency:        hiloConcurrency,
		LiveInterval:           liveInterval,
	}

	switch cfg.HashScheme {
	case "bcrypt", "argon2id", "sha1":
	default:
		return nil, fmt.Errorf("invalid HASH_SCHEME %q", cfg.HashScheme)
	}
	if cfg.HiLoConcurrency < 1 {
		return nil, fmt.Errorf("invalid HILO_CONCURRENCY: must be at least 1")
	}

	return cfg, nil
}

// LoadAgent reads the station agent configuration.
func LoadAgent() (*AgentConfig, error) {
	_ = godotenv.Load()

	pollInterval, err := getDuration("POLL_INTERVAL", "10s")
	if err != nil {
		return nil, err
	}
	timeout, err := getDuration("REQUEST_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	cfg := &AgentConfig{
		GatewayURL:     getEnv("GATEWAY_URL", "http://localhost:8097"),
		StationToken:   getEnv("STATION_TOKEN", ""),
		PollInterval:   pollInterval,
		RequestTimeout: timeout,
		ResetCommand:   getEnv("RESET_COMMAND", ""),
		RestartCommand: getEnv("RESTART_COMMAND", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}
	if cfg.PollInterval < time.Second {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: must be at least 1s")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
