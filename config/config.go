package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Maps      MapsConfig
	Redis     RedisConfig
	Optimizer OptimizerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"SERVER_HOST"`
	Port         int           `mapstructure:"SERVER_PORT"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
}

// MapsConfig holds credentials and dial settings for the geocoding/matrix/
// directions provider.
type MapsConfig struct {
	APIKey  string        `mapstructure:"GOOGLE_MAPS_API_KEY"`
	BaseURL string        `mapstructure:"GOOGLE_MAPS_BASE_URL"`
	Timeout time.Duration `mapstructure:"GOOGLE_MAPS_TIMEOUT"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	PoolSize int    `mapstructure:"REDIS_POOL_SIZE"`
}

// OptimizerConfig holds the tunable resource ceilings and defaults for the
// routing optimizer itself.
type OptimizerConfig struct {
	DefaultFuelCostPerKm  float64       `mapstructure:"OPTIMIZER_DEFAULT_FUEL_COST_PER_KM"`
	BaseFishPopulation    int           `mapstructure:"OPTIMIZER_BASE_FISH_POPULATION"`
	BaseIterations        int           `mapstructure:"OPTIMIZER_BASE_ITERATIONS"`
	MaxRetries            int           `mapstructure:"OPTIMIZER_MAX_RETRIES"`
	Deadline              time.Duration `mapstructure:"OPTIMIZER_DEADLINE"`
	MaxOriginsPerRequest  int           `mapstructure:"OPTIMIZER_MAX_ORIGINS_PER_REQUEST"`
	MaxElementsPerRequest int           `mapstructure:"OPTIMIZER_MAX_ELEMENTS_PER_REQUEST"`
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// ── Defaults ────────────────────────────────────────
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "5s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	viper.SetDefault("GOOGLE_MAPS_API_KEY", "")
	viper.SetDefault("GOOGLE_MAPS_BASE_URL", "")
	viper.SetDefault("GOOGLE_MAPS_TIMEOUT", "10s")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 100)

	viper.SetDefault("OPTIMIZER_DEFAULT_FUEL_COST_PER_KM", 0.15)
	viper.SetDefault("OPTIMIZER_BASE_FISH_POPULATION", 30)
	viper.SetDefault("OPTIMIZER_BASE_ITERATIONS", 200)
	viper.SetDefault("OPTIMIZER_MAX_RETRIES", 3)
	viper.SetDefault("OPTIMIZER_DEADLINE", "25s")
	viper.SetDefault("OPTIMIZER_MAX_ORIGINS_PER_REQUEST", 10)
	viper.SetDefault("OPTIMIZER_MAX_ELEMENTS_PER_REQUEST", 100)

	// Try to read .env file. If it doesn't exist (e.g., inside Docker),
	// env vars injected by docker-compose env_file are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{}

	// ── Server ──────────────────────────────────────────
	cfg.Server = ServerConfig{
		Host:         viper.GetString("SERVER_HOST"),
		Port:         viper.GetInt("SERVER_PORT"),
		ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
		IdleTimeout:  viper.GetDuration("SERVER_IDLE_TIMEOUT"),
	}

	// ── Maps ────────────────────────────────────────────
	cfg.Maps = MapsConfig{
		APIKey:  viper.GetString("GOOGLE_MAPS_API_KEY"),
		BaseURL: viper.GetString("GOOGLE_MAPS_BASE_URL"),
		Timeout: viper.GetDuration("GOOGLE_MAPS_TIMEOUT"),
	}
	if cfg.Maps.APIKey == "" {
		return nil, fmt.Errorf("config: GOOGLE_MAPS_API_KEY is required")
	}

	// ── Redis ───────────────────────────────────────────
	cfg.Redis = RedisConfig{
		Host:     viper.GetString("REDIS_HOST"),
		Port:     viper.GetInt("REDIS_PORT"),
		Password: viper.GetString("REDIS_PASSWORD"),
		DB:       viper.GetInt("REDIS_DB"),
		PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
	}

	// ── Optimizer ───────────────────────────────────────
	cfg.Optimizer = OptimizerConfig{
		DefaultFuelCostPerKm:  viper.GetFloat64("OPTIMIZER_DEFAULT_FUEL_COST_PER_KM"),
		BaseFishPopulation:    viper.GetInt("OPTIMIZER_BASE_FISH_POPULATION"),
		BaseIterations:        viper.GetInt("OPTIMIZER_BASE_ITERATIONS"),
		MaxRetries:            viper.GetInt("OPTIMIZER_MAX_RETRIES"),
		Deadline:              viper.GetDuration("OPTIMIZER_DEADLINE"),
		MaxOriginsPerRequest:  viper.GetInt("OPTIMIZER_MAX_ORIGINS_PER_REQUEST"),
		MaxElementsPerRequest: viper.GetInt("OPTIMIZER_MAX_ELEMENTS_PER_REQUEST"),
	}

	return cfg, nil
}
