package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/andresuchdata/stockintel/internal/inventory/forecast"
	"github.com/andresuchdata/stockintel/internal/inventory/reorder"
	"github.com/andresuchdata/stockintel/internal/inventory/simulation"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Policy     PolicyConfig
	Forecast   ForecastConfig
	Simulation SimulationConfig
	Pipeline   PipelineConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// DSN is the lib/pq keyword connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ResultTTLSeconds int
}

// ResultTTL is the lifetime of cached computation results.
func (c CacheConfig) ResultTTL() time.Duration {
	return time.Duration(c.ResultTTLSeconds) * time.Second
}

// PolicyConfig is the organization-level reorder policy.
type PolicyConfig struct {
	ServiceLevel     float64
	HoldingRate      float64
	OrderingCost     float64
	DaysPerYear      float64
	GradeMultipliers map[string]float64
}

type ForecastConfig struct {
	DefaultHorizon int
	SMAWindow      int
	SESAlpha       float64
	HoltAlpha      float64
	HoltBeta       float64
	TrendThreshold float64
	SeasonLength   int
	MaxHorizon     int
}

type SimulationConfig struct {
	Trials    int
	MaxTrials int
	MaxSweep  int
}

type PipelineConfig struct {
	Workers int
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env and the environment once. Invalid policy values are fatal.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		SetDefaults(v)
		v.AutomaticEnv()

		cfg, err := FromViper(v)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid configuration")
		}
		instance = cfg
	})

	return instance
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "stockintel")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_RESULT_TTL_SECONDS", 300)

	policy := reorder.DefaultPolicy()
	v.SetDefault("POLICY_SERVICE_LEVEL", policy.ServiceLevel)
	v.SetDefault("POLICY_HOLDING_RATE", policy.HoldingRate)
	v.SetDefault("POLICY_ORDERING_COST", policy.OrderingCost)
	v.SetDefault("POLICY_DAYS_PER_YEAR", policy.DaysPerYear)
	v.SetDefault("POLICY_GRADE_MULTIPLIERS", "")

	fc := forecast.DefaultOptions()
	v.SetDefault("FORECAST_DEFAULT_HORIZON", 3)
	v.SetDefault("FORECAST_SMA_WINDOW", fc.SMAWindow)
	v.SetDefault("FORECAST_SES_ALPHA", fc.SESAlpha)
	v.SetDefault("FORECAST_HOLT_ALPHA", fc.HoltAlpha)
	v.SetDefault("FORECAST_HOLT_BETA", fc.HoltBeta)
	v.SetDefault("FORECAST_TREND_THRESHOLD", fc.TrendThreshold)
	v.SetDefault("FORECAST_SEASON_LENGTH", fc.SeasonLength)
	v.SetDefault("FORECAST_MAX_HORIZON", fc.MaxHorizon)

	sim := simulation.DefaultOptions()
	v.SetDefault("SIMULATION_TRIALS", sim.Trials)
	v.SetDefault("SIMULATION_MAX_TRIALS", sim.MaxTrials)
	v.SetDefault("SIMULATION_MAX_SWEEP", sim.MaxSweep)

	v.SetDefault("PIPELINE_WORKERS", 8)
}

// FromViper builds a Config from v and validates the algorithm settings.
func FromViper(v *viper.Viper) (*Config, error) {
	multipliers, err := reorder.ParseMultipliers(v.GetString("POLICY_GRADE_MULTIPLIERS"))
	if err != nil {
		return nil, fmt.Errorf("POLICY_GRADE_MULTIPLIERS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt("DB_MAX_CONNS"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ResultTTLSeconds: v.GetInt("CACHE_RESULT_TTL_SECONDS"),
		},
		Policy: PolicyConfig{
			ServiceLevel:     v.GetFloat64("POLICY_SERVICE_LEVEL"),
			HoldingRate:      v.GetFloat64("POLICY_HOLDING_RATE"),
			OrderingCost:     v.GetFloat64("POLICY_ORDERING_COST"),
			DaysPerYear:      v.GetFloat64("POLICY_DAYS_PER_YEAR"),
			GradeMultipliers: multipliers,
		},
		Forecast: ForecastConfig{
			DefaultHorizon: v.GetInt("FORECAST_DEFAULT_HORIZON"),
			SMAWindow:      v.GetInt("FORECAST_SMA_WINDOW"),
			SESAlpha:       v.GetFloat64("FORECAST_SES_ALPHA"),
			HoltAlpha:      v.GetFloat64("FORECAST_HOLT_ALPHA"),
			HoltBeta:       v.GetFloat64("FORECAST_HOLT_BETA"),
			TrendThreshold: v.GetFloat64("FORECAST_TREND_THRESHOLD"),
			SeasonLength:   v.GetInt("FORECAST_SEASON_LENGTH"),
			MaxHorizon:     v.GetInt("FORECAST_MAX_HORIZON"),
		},
		Simulation: SimulationConfig{
			Trials:    v.GetInt("SIMULATION_TRIALS"),
			MaxTrials: v.GetInt("SIMULATION_MAX_TRIALS"),
			MaxSweep:  v.GetInt("SIMULATION_MAX_SWEEP"),
		},
		Pipeline: PipelineConfig{
			Workers: v.GetInt("PIPELINE_WORKERS"),
		},
	}

	if err := cfg.ReorderPolicy().Validate(); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	if err := cfg.ForecastOptions().Validate(); err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	if err := cfg.SimulationOptions().Validate(); err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}
	if cfg.Forecast.DefaultHorizon < 1 || cfg.Forecast.DefaultHorizon > cfg.Forecast.MaxHorizon {
		return nil, fmt.Errorf("FORECAST_DEFAULT_HORIZON must be in [1, %d], got %d", cfg.Forecast.MaxHorizon, cfg.Forecast.DefaultHorizon)
	}
	if cfg.Pipeline.Workers < 1 {
		cfg.Pipeline.Workers = 1
	}
	return cfg, nil
}

// ReorderPolicy converts the policy block for the optimizer.
func (c *Config) ReorderPolicy() reorder.Policy {
	return reorder.Policy{
		ServiceLevel:     c.Policy.ServiceLevel,
		HoldingRate:      c.Policy.HoldingRate,
		OrderingCost:     c.Policy.OrderingCost,
		DaysPerYear:      c.Policy.DaysPerYear,
		GradeMultipliers: c.Policy.GradeMultipliers,
	}
}

// ForecastOptions overlays the configured values on the forecaster defaults.
func (c *Config) ForecastOptions() forecast.Options {
	opts := forecast.DefaultOptions()
	opts.SMAWindow = c.Forecast.SMAWindow
	opts.SESAlpha = c.Forecast.SESAlpha
	opts.HoltAlpha = c.Forecast.HoltAlpha
	opts.HoltBeta = c.Forecast.HoltBeta
	opts.TrendThreshold = c.Forecast.TrendThreshold
	opts.SeasonLength = c.Forecast.SeasonLength
	opts.MaxHorizon = c.Forecast.MaxHorizon
	return opts
}

func (c *Config) SimulationOptions() simulation.Options {
	opts := simulation.DefaultOptions()
	opts.Trials = c.Simulation.Trials
	opts.MaxTrials = c.Simulation.MaxTrials
	opts.MaxSweep = c.Simulation.MaxSweep
	return opts
}
