package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"studio_booking_backend/pkg/utils"

	"gopkg.in/yaml.v3"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	StoreDriver string

	JWTSecret string
	JWTTTL    time.Duration

	CORSAllowedOrigins []string

	Location            *time.Location
	ServicesCatalogPath string
	SerializeAdmissions bool

	LogLevel  string
	LogPretty bool
}

// DSN returns the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// FromEnv reads Config from the environment and rejects values the server cannot start with.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:                utils.Getenv("PORT", "8080"),
		DBHost:              utils.Getenv("DB_HOST", "localhost"),
		DBPort:              utils.Getenv("DB_PORT", "5432"),
		DBUser:              utils.Getenv("DB_USER", "studio_user"),
		DBPassword:          utils.Getenv("DB_PASSWORD", "studio_password"),
		DBName:              utils.Getenv("DB_NAME", "studio_booking_db"),
		DBSSLMode:           utils.Getenv("DB_SSLMODE", "disable"),
		StoreDriver:         strings.ToLower(utils.Getenv("STORE_DRIVER", StoreDriverPostgres)),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		CORSAllowedOrigins:  utils.SplitList(utils.Getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		ServicesCatalogPath: os.Getenv("SERVICES_CATALOG_PATH"),
		SerializeAdmissions: utils.GetenvBool("SERIALIZE_ADMISSIONS", false),
		LogLevel:            utils.Getenv("LOG_LEVEL", "info"),
		LogPretty:           utils.GetenvBool("LOG_PRETTY", false),
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return Config{}, fmt.Errorf("invalid STORE_DRIVER %q: want %q or %q", cfg.StoreDriver, StoreDriverPostgres, StoreDriverMemory)
	}

	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS lists no origins")
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	ttl, err := utils.GetenvDuration("JWT_TTL", 2*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("JWT_TTL: %w", err)
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL must be positive, got %s", ttl)
	}
	cfg.JWTTTL = ttl

	loc, err := time.LoadLocation(utils.Getenv("TIMEZONE", "Local"))
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	return cfg, nil
}

// Catalog is the YAML services catalog file.
//
//	group_services:
//	  - Clase de Yoga
//	  - Pilates Grupal
type Catalog struct {
	GroupServices []string `yaml:"group_services"`
}

// LoadCatalog reads the group services list from path. An empty path yields fallback.
func LoadCatalog(path string, fallback []string) ([]string, error) {
	if path == "" {
		return fallback, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read services catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse services catalog %s: %w", path, err)
	}

	var out []string
	for _, s := range c.GroupServices {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("services catalog %s lists no group_services", path)
	}
	return out, nil
}
