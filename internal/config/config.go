package config // package config loads application configuration from environment variables

import (
	"fmt"
	"log"
	"os"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable; required ones are enforced
// by must() and missing values abort startup.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	DBUser      string // database username
	DBPass      string // database password (optional)
	DBHost      string // database host address
	DBPort      string // database port number
	DBName      string // database name
	DBSSLMode   string // Postgres sslmode (default "require", hosted Postgres insists)
	AdminSecret string // shared secret accepted in the x-admin-secret header
	BrokerURL   string // RabbitMQ URL for the audit pipeline; empty disables the broker
}

// Load reads configuration values from environment variables and
// returns a Config.
func Load() Config {
	return Config{
		Env:         must("APP_ENV"),
		Port:        must("APP_PORT"),
		DBUser:      must("DB_USER"),
		DBPass:      os.Getenv("DB_PASS"),
		DBHost:      must("DB_HOST"),
		DBPort:      must("DB_PORT"),
		DBName:      must("DB_NAME"),
		DBSSLMode:   getenv("DB_SSLMODE", "require"),
		AdminSecret: must("ADMIN_SECRET"),
		BrokerURL:   os.Getenv("RABBITMQ_URL"),
	}
}

// DSN renders the Postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName, c.DBSSLMode)
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
