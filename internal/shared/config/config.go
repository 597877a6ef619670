package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server          ServerConfig
	Database        DatabaseConfig
	EventStore      EventStoreConfig
	Auth            AuthConfig
	StationRegistry StationRegistryConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// EventStoreConfig holds the connection settings for the transition event
// stream (EventStoreDB).
type EventStoreConfig struct {
	// Host is the EventStoreDB server hostname
	Host string
	// Port is the gRPC port (default 2113)
	Port int
	// Insecure disables TLS (for development)
	Insecure bool
	// Username for authentication (optional)
	Username string
	// Password for authentication (optional)
	Password string
	// Enabled controls whether transition events are published at all
	Enabled bool
}

type AuthConfig struct {
	JWTSecret string
}

// StationRegistryConfig holds the connection settings for the legacy
// police-station registry (CCTNS, SQL Server).
type StationRegistryConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func (s StationRegistryConfig) DSN() string {
	return fmt.Sprintf(
		"sqlserver://%s:%s@%s:%d?database=%s",
		s.User, s.Password, s.Host, s.Port, s.Database,
	)
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "justice"),
			Password: getEnv("DB_PASSWORD", "justice"),
			Database: getEnv("DB_NAME", "justice"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		EventStore: EventStoreConfig{
			Host:     getEnv("EVENTSTORE_HOST", "localhost"),
			Port:     getEnvInt("EVENTSTORE_PORT", 2113),
			Insecure: getEnvBool("EVENTSTORE_INSECURE", true),
			Username: getEnv("EVENTSTORE_USERNAME", ""),
			Password: getEnv("EVENTSTORE_PASSWORD", ""),
			Enabled:  getEnvBool("EVENTSTORE_ENABLED", true),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
		},
		StationRegistry: StationRegistryConfig{
			Enabled:  getEnvBool("STATION_REGISTRY_ENABLED", false),
			Host:     getEnv("STATION_REGISTRY_HOST", "localhost"),
			Port:     getEnvInt("STATION_REGISTRY_PORT", 1433),
			User:     getEnv("STATION_REGISTRY_USER", "sa"),
			Password: getEnv("STATION_REGISTRY_PASSWORD", ""),
			Database: getEnv("STATION_REGISTRY_DB", "cctns"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
