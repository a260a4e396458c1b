// Package config loads the command-line tool's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meigma/car"
)

// Config holds settings shared by every subcommand. Flags given on the
// command line override these values.
type Config struct {
	// Hash names the identifier digest used when writing ("sha2-256" or "blake3").
	Hash string `yaml:"hash"`

	// Verify re-hashes row bytes on read.
	Verify bool `yaml:"verify"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// Concurrency bounds parallel random-access reads.
	Concurrency int `yaml:"concurrency"`

	// CatalogDir is the default catalog location for index and seek.
	CatalogDir string `yaml:"catalog_dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Hash:        car.HashSHA256.String(),
		Verify:      true,
		LogLevel:    "info",
		Concurrency: 4,
	}
}

// Load reads the file at path over the defaults. Keys absent from the file
// keep their default values; unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path) //nolint:gosec // user-supplied config path
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	if _, err := car.ParseHash(c.Hash); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}

// HashAlgorithm returns the configured hash.
func (c Config) HashAlgorithm() (car.Hash, error) {
	return car.ParseHash(c.Hash)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}
