// Package config loads the importer settings from a YAML or TOML file with
// environment overrides.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/mrsinham/importctx/internal/importmode"
	"github.com/mrsinham/importctx/internal/modality"
)

// Environment variables overriding file values.
const (
	EnvMode         = "IMPORTCTX_MODE"
	EnvLogLevel     = "IMPORTCTX_LOG_LEVEL"
	EnvBackupPath   = "IMPORTCTX_BACKUP_PATH"
	EnvRegistryPath = "IMPORTCTX_REGISTRY_PATH"
)

// ErrInvalid is returned when a loaded configuration does not validate.
var ErrInvalid = eris.New("invalid configuration")

// Config holds the importer settings.
type Config struct {
	Mode string `yaml:"mode" toml:"mode"`
	// UseStudyCard overrides the per-modality default when set.
	UseStudyCard       *bool     `yaml:"use_study_card,omitempty" toml:"use_study_card,omitempty"`
	FillSoleCandidates bool      `yaml:"fill_sole_candidates" toml:"fill_sole_candidates"`
	Principal          Principal `yaml:"principal" toml:"principal"`
	BackupPath         string    `yaml:"backup_path" toml:"backup_path"`
	RegistryPath       string    `yaml:"registry_path" toml:"registry_path"`
	LogLevel           string    `yaml:"log_level" toml:"log_level"`
}

// Principal describes the operator running the import.
type Principal struct {
	Admin  bool `yaml:"admin" toml:"admin"`
	Expert bool `yaml:"expert" toml:"expert"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Mode:       string(importmode.DirectTransfer),
		BackupPath: "importctx-backup.yaml",
		LogLevel:   "info",
	}
}

// Load reads path, applies environment overrides and validates the result.
// An empty path loads the defaults. Files ending in .toml are read as TOML,
// anything else as YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, eris.Wrapf(err, "read config %s", path)
		}
		if err := decode(path, data, &cfg); err != nil {
			return Config{}, eris.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// ApplyEnv overrides fields from the environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvMode); ok && v != "" {
		c.Mode = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvBackupPath); ok && v != "" {
		c.BackupPath = v
	}
	if v, ok := lookup(EnvRegistryPath); ok && v != "" {
		c.RegistryPath = v
	}
}

// Validate checks the mode and log level.
func (c Config) Validate() error {
	if _, err := importmode.Parse(c.Mode); err != nil {
		return eris.Wrap(ErrInvalid, err.Error())
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return eris.Wrapf(ErrInvalid, "log level %q", c.LogLevel)
	}
	return nil
}

// ImportMode returns the configured import mode.
func (c Config) ImportMode() importmode.Mode {
	m, err := importmode.Parse(c.Mode)
	if err != nil {
		return importmode.DirectTransfer
	}
	return m
}

// Level returns the configured log level, info when unparsable.
func (c Config) Level() zapcore.Level {
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// StudyCardEnabled reports whether the wizard starts with study cards for a
// scan of modality m.
func (c Config) StudyCardEnabled(m modality.Modality) bool {
	if c.UseStudyCard != nil {
		return *c.UseStudyCard
	}
	return m.UsesStudyCardByDefault()
}
