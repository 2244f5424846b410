package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported dataset sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Database DatabaseConfig
	Cache    CacheConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DataConfig selects where the three input tables are read from.
type DataConfig struct {
	Source          string
	Dir             string
	SalesFile       string
	AssessmentsFile string
	ParcelsFile     string
}

// SalesPath returns the sales CSV path.
func (d DataConfig) SalesPath() string { return filepath.Join(d.Dir, d.SalesFile) }

// AssessmentsPath returns the assessments CSV path.
func (d DataConfig) AssessmentsPath() string { return filepath.Join(d.Dir, d.AssessmentsFile) }

// ParcelsPath returns the parcel details CSV path.
func (d DataConfig) ParcelsPath() string { return filepath.Join(d.Dir, d.ParcelsFile) }

// DatabaseConfig holds PostgreSQL connection configuration.
// Only used when the data source is postgres.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CacheConfig holds the optional Redis result cache configuration.
// An empty Addr disables caching.
type CacheConfig struct {
	Addr     string
	Password string
	TTL      time.Duration
}

// Enabled reports whether a Redis address was configured.
func (c CacheConfig) Enabled() bool {
	return c.Addr != ""
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// Load reads configuration from an optional .env file and environment variables.
func Load() (*Config, error) {
	// A missing .env is fine; deployments inject the environment directly.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATA_SOURCE", SourceCSV)
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("SALES_FILE", "Real_Estate_Sales.csv")
	v.SetDefault("ASSESSMENTS_FILE", "Real_Estate_All_Assessments.csv")
	v.SetDefault("PARCELS_FILE", "Parcel_Boundary_Area_Details.csv")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "housing")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 1)
	v.SetDefault("DB_POOL_MAX", 4)
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Data: DataConfig{
			Source:          strings.ToLower(strings.TrimSpace(v.GetString("DATA_SOURCE"))),
			Dir:             v.GetString("DATA_DIR"),
			SalesFile:       v.GetString("SALES_FILE"),
			AssessmentsFile: v.GetString("ASSESSMENTS_FILE"),
			ParcelsFile:     v.GetString("PARCELS_FILE"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		Cache: CacheConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			TTL:      v.GetDuration("CACHE_TTL"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Data.Source {
	case SourceCSV:
		if c.Data.Dir == "" {
			return fmt.Errorf("DATA_DIR is required for the csv source")
		}
		if c.Data.SalesFile == "" || c.Data.AssessmentsFile == "" || c.Data.ParcelsFile == "" {
			return fmt.Errorf("SALES_FILE, ASSESSMENTS_FILE and PARCELS_FILE are required for the csv source")
		}
	case SourcePostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("DATA_SOURCE must be %q or %q, got %q", SourceCSV, SourcePostgres, c.Data.Source)
	}

	if c.Cache.Enabled() && c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when REDIS_ADDR is set")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

// Validate checks the database settings used by the postgres source.
func (d DatabaseConfig) Validate() error {
	if d.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if d.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if d.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if d.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if d.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if d.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if d.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if d.PoolMin > d.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}
	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
