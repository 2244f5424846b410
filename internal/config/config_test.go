package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvVars = []string{
	"PORT", "ENV", "DATA_SOURCE", "DATA_DIR", "SALES_FILE", "ASSESSMENTS_FILE", "PARCELS_FILE",
	"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_POOL_MIN", "DB_POOL_MAX",
	"REDIS_ADDR", "REDIS_PASSWORD", "CACHE_TTL", "CORS_ORIGINS",
}

// Helper function to clear all config-related environment variables
func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	clearConfigEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.Env != "development" {
		t.Errorf("Expected env development, got %s", cfg.Server.Env)
	}
	if cfg.Data.Source != SourceCSV {
		t.Errorf("Expected csv source, got %s", cfg.Data.Source)
	}
	if cfg.Data.SalesPath() != filepath.Join("data", "Real_Estate_Sales.csv") {
		t.Errorf("Unexpected sales path %s", cfg.Data.SalesPath())
	}
	if cfg.Data.AssessmentsPath() != filepath.Join("data", "Real_Estate_All_Assessments.csv") {
		t.Errorf("Unexpected assessments path %s", cfg.Data.AssessmentsPath())
	}
	if cfg.Data.ParcelsPath() != filepath.Join("data", "Parcel_Boundary_Area_Details.csv") {
		t.Errorf("Unexpected parcels path %s", cfg.Data.ParcelsPath())
	}
	if cfg.Cache.Enabled() {
		t.Error("Expected cache to be disabled without REDIS_ADDR")
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("Expected cache ttl 10m, got %s", cfg.Cache.TTL)
	}
	if len(cfg.CORS.Origins) != 2 {
		t.Errorf("Expected 2 CORS origins, got %d", len(cfg.CORS.Origins))
	}
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	clearConfigEnvVars(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATA_SOURCE", " Postgres ")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "testdb")
	t.Setenv("DB_USER", "testuser")
	t.Setenv("DB_PASSWORD", "testpass")
	t.Setenv("DB_POOL_MIN", "5")
	t.Setenv("DB_POOL_MAX", "20")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("CORS_ORIGINS", "http://example.com,https://app.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.Env != "production" {
		t.Errorf("Expected env production, got %s", cfg.Server.Env)
	}
	if cfg.Data.Source != SourcePostgres {
		t.Errorf("Expected normalized postgres source, got %q", cfg.Data.Source)
	}
	if cfg.Database.Port != "5433" {
		t.Errorf("Expected port 5433, got %s", cfg.Database.Port)
	}
	if cfg.Database.Name != "testdb" {
		t.Errorf("Expected db name testdb, got %s", cfg.Database.Name)
	}
	if cfg.Database.Password != "testpass" {
		t.Errorf("Expected password testpass, got %s", cfg.Database.Password)
	}
	if cfg.Database.PoolMin != 5 || cfg.Database.PoolMax != 20 {
		t.Errorf("Expected pool 5-20, got %d-%d", cfg.Database.PoolMin, cfg.Database.PoolMax)
	}
	if !cfg.Cache.Enabled() || cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Expected enabled cache with 30s ttl, got %+v", cfg.Cache)
	}
	if cfg.CORS.Origins[0] != "http://example.com" {
		t.Errorf("Expected first origin http://example.com, got %s", cfg.CORS.Origins[0])
	}
}

func TestLoad_PostgresMissingPassword(t *testing.T) {
	clearConfigEnvVars(t)
	t.Setenv("DATA_SOURCE", "postgres")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when DB_PASSWORD is missing for the postgres source")
	}
}

func TestLoad_UnknownSource(t *testing.T) {
	clearConfigEnvVars(t)
	t.Setenv("DATA_SOURCE", "parquet")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for an unknown data source")
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Env: "development"},
		Data: DataConfig{
			Source:          SourceCSV,
			Dir:             "data",
			SalesFile:       "sales.csv",
			AssessmentsFile: "assessments.csv",
			ParcelsFile:     "parcels.csv",
		},
		Database: DatabaseConfig{
			Host: "localhost", Port: "5432", Name: "housing",
			User: "postgres", Password: "postgres", PoolMin: 1, PoolMax: 4,
		},
		CORS: CORSConfig{Origins: []string{"http://localhost:3000"}},
	}
}

func TestValidate_InvalidPoolSizes(t *testing.T) {
	tests := []struct {
		name    string
		poolMin int
		poolMax int
		wantErr bool
	}{
		{
			name:    "negative pool min",
			poolMin: -1,
			poolMax: 10,
			wantErr: true,
		},
		{
			name:    "zero pool max",
			poolMin: 0,
			poolMax: 0,
			wantErr: true,
		},
		{
			name:    "pool min greater than max",
			poolMin: 15,
			poolMax: 10,
			wantErr: true,
		},
		{
			name:    "valid pool sizes",
			poolMin: 2,
			poolMax: 10,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Data.Source = SourcePostgres
			cfg.Database.PoolMin = tt.poolMin
			cfg.Database.PoolMax = tt.poolMax

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }},
		{"missing data dir", func(c *Config) { c.Data.Dir = "" }},
		{"missing sales file", func(c *Config) { c.Data.SalesFile = "" }},
		{"postgres missing db host", func(c *Config) { c.Data.Source = SourcePostgres; c.Database.Host = "" }},
		{"postgres missing db password", func(c *Config) { c.Data.Source = SourcePostgres; c.Database.Password = "" }},
		{"cache without ttl", func(c *Config) { c.Cache.Addr = "localhost:6379" }},
		{"missing CORS origins", func(c *Config) { c.CORS.Origins = []string{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error but got none")
			}
		})
	}
}

func TestValidate_CSVIgnoresDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Database = DatabaseConfig{}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected csv config without database settings to be valid, got %v", err)
	}
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{
			name:   "single origin",
			input:  "http://localhost:3000",
			expect: []string{"http://localhost:3000"},
		},
		{
			name:   "origins with spaces",
			input:  " http://localhost:3000 , http://localhost:3001 ",
			expect: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		{
			name:   "empty string",
			input:  "",
			expect: []string{},
		},
		{
			name:   "only commas",
			input:  ",,,",
			expect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseOrigins(tt.input)
			if len(result) != len(tt.expect) {
				t.Errorf("Expected %d origins, got %d", len(tt.expect), len(result))
				return
			}
			for i, origin := range result {
				if origin != tt.expect[i] {
					t.Errorf("Expected origin %s at index %d, got %s", tt.expect[i], i, origin)
				}
			}
		})
	}
}
