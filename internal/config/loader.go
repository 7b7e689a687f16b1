package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is read when CONFIG_PATH is unset. Its absence is not an error.
const DefaultPath = "./config.yaml"

// Load reads the file named by CONFIG_PATH (or DefaultPath) and then the
// environment. Environment variables override the file; env-default tags
// fill whatever neither sets.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile is Load with an explicit path. An explicitly named file must
// exist; an empty path falls back to DefaultPath.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	if err := read(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func read(path string, cfg *Config) error {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("file %s: %w", path, err)
	default:
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("read env: %w", err)
		}
	}
	return nil
}

// normalize folds enum-like settings so "Postgres" and " memory " load.
func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Submission.SystemIDStrategy = strings.ToLower(strings.TrimSpace(c.Submission.SystemIDStrategy))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}
