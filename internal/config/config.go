package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap/zapcore"

	"github.com/danieljhkim/appmigrate/internal/apperrors"
	"github.com/danieljhkim/appmigrate/internal/planner"
)

// Config holds the tool configuration.
// Values come from the YAML config file when present; environment variables
// always override them. Secrets only come from the environment.
type Config struct {
	// BenchPath is the Frappe bench directory holding sites/.
	BenchPath string `yaml:"bench_path" env:"APPMIGRATE_BENCH_PATH" env-default:"."`

	// LogLevel is the zap level for diagnostics on stderr.
	LogLevel string `yaml:"log_level" env:"APPMIGRATE_LOG_LEVEL" env-default:"warn"`

	// BatchSize is recorded in generated data rules.
	BatchSize int `yaml:"batch_size" env:"APPMIGRATE_BATCH_SIZE" env-default:"1000"`

	// SimilarityThreshold for naming-similarity conflicts, in (0, 1].
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"APPMIGRATE_SIMILARITY_THRESHOLD" env-default:"0.8"`

	// ResolutionPolicy is first-match or last-match.
	ResolutionPolicy string `yaml:"resolution_policy" env:"APPMIGRATE_RESOLUTION_POLICY" env-default:"first-match"`

	// DBPassword overrides the site's db_password.
	DBPassword string `yaml:"-" env:"APPMIGRATE_DB_PASSWORD"` // Secret - not in YAML
}

// Load reads the config file at path with environment variable overrides.
// An empty path selects the default config file, which may be absent; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		paths, err := DefaultPaths()
		if err != nil {
			return nil, err
		}
		path = paths.Config
	}

	cfg := &Config{}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to read config %s: %w", apperrors.ErrValidation, path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to read environment: %w", apperrors.ErrValidation, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("config file %s: %w", path, apperrors.ErrNotFound)
	default:
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", apperrors.ErrValidation, c.BatchSize)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be in (0, 1], got %v", apperrors.ErrValidation, c.SimilarityThreshold)
	}
	if _, err := planner.ParsePolicy(c.ResolutionPolicy); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", apperrors.ErrValidation, err)
	}
	return nil
}

// Policy returns the parsed resolution policy.
func (c *Config) Policy() planner.Policy {
	p, err := planner.ParsePolicy(c.ResolutionPolicy)
	if err != nil {
		return planner.PolicyFirstMatch
	}
	return p
}
