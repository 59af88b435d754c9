package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Rollup   RollupConfig   `mapstructure:"rollup"`
	Trends   TrendsConfig   `mapstructure:"trends"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the storage driver: "mongo", "sqlite" or "memory".
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	URI        string `mapstructure:"uri"`
	Name       string `mapstructure:"name"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// S3Config configures media storage. An empty bucket disables media endpoints.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// RollupConfig tunes adherence summaries.
type RollupConfig struct {
	CountUnit          string `mapstructure:"count_unit"` // "items" or "sessions"
	StreakLookbackDays int    `mapstructure:"streak_lookback_days"`
}

// MetricRange bounds the synthetic value of one trend metric.
type MetricRange struct {
	Min       float64 `mapstructure:"min"`
	Max       float64 `mapstructure:"max"`
	Precision int     `mapstructure:"precision"`
}

// TrendsConfig configures the trend synthesizer.
type TrendsConfig struct {
	SyntheticFallback bool                   `mapstructure:"synthetic_fallback"`
	DefaultWeeks      int                    `mapstructure:"default_weeks"`
	Metrics           map[string]MetricRange `mapstructure:"metrics"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Nested keys map to env vars, e.g. database.driver -> DATABASE_DRIVER
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, err
		}
		// No file; defaults and env vars only
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, err
	}
	return config, config.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "adherence_app")
	v.SetDefault("database.sqlite_path", "data/adherence.db")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("rollup.count_unit", "items")
	v.SetDefault("rollup.streak_lookback_days", 90)
	v.SetDefault("trends.synthetic_fallback", true)
	v.SetDefault("trends.default_weeks", 8)
	v.SetDefault("trends.metrics", map[string]any{
		"weight":   map[string]any{"min": 60, "max": 90, "precision": 1},
		"calories": map[string]any{"min": 1600, "max": 2600, "precision": 0},
		"protein":  map[string]any{"min": 80, "max": 180, "precision": 0},
		"carbs":    map[string]any{"min": 150, "max": 300, "precision": 0},
		"fat":      map[string]any{"min": 40, "max": 100, "precision": 0},
		"volume":   map[string]any{"min": 2000, "max": 12000, "precision": 0},
		"duration": map[string]any{"min": 1200, "max": 5400, "precision": 0},
	})
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "mongo", "sqlite", "memory":
	default:
		return fmt.Errorf("database.driver must be mongo, sqlite or memory, got %q", c.Database.Driver)
	}
	switch c.Rollup.CountUnit {
	case "items", "sessions":
	default:
		return fmt.Errorf("rollup.count_unit must be items or sessions, got %q", c.Rollup.CountUnit)
	}
	if c.Rollup.StreakLookbackDays <= 0 || c.Rollup.StreakLookbackDays > 366 {
		return fmt.Errorf("rollup.streak_lookback_days must be between 1 and 366")
	}
	for name, r := range c.Trends.Metrics {
		if r.Max < r.Min {
			return fmt.Errorf("trends.metrics.%s: max is below min", name)
		}
		if r.Precision < 0 || r.Precision > 6 {
			return fmt.Errorf("trends.metrics.%s: precision must be between 0 and 6", name)
		}
	}
	return nil
}
