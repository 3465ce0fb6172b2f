// Package kbconfig loads the service's operational configuration
// using spf13/viper: an optional YAML file read through
// viper.New()/SetConfigFile, with environment variables bound over it
// and always taking precedence.
package kbconfig

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the subset of on-disk/env configuration the service needs
// at startup.
type Config struct {
	// DatabaseURL is the "file:<path>" locator for the embedded
	// database, from SHIROKUMA_DATABASE_URL or derived from DataDir.
	DatabaseURL string

	// DataDir is the base directory for data when DatabaseURL is
	// unset, from SHIROKUMA_DATA_DIR.
	DataDir string

	// ExportDir enables the file-mirror when non-empty, from
	// SHIROKUMA_EXPORT_DIR.
	ExportDir string

	// DefaultStatus is the status name assigned to new items when the
	// caller does not supply one.
	DefaultStatus string

	// EnrichmentTimeout is read from the config file or
	// SHIROKUMA_ENRICHMENT_TIMEOUT (a duration string). No component
	// consumes it: enrichment provider calls are not bounded by it.
	EnrichmentTimeout time.Duration

	// ListLimit is the configured default page size for
	// list_items/search_items. It is not passed to the store, which
	// applies its own default of 20 when the caller omits a limit.
	ListLimit int

	// MaxListLimit is the configured ceiling on caller-supplied limits.
	// It is not passed to the store, which caps limits at 100.
	MaxListLimit int
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		DataDir:           "./shirokuma-data",
		DefaultStatus:     "Open",
		EnrichmentTimeout: 30 * time.Second,
		ListLimit:         20,
		MaxListLimit:      100,
	}
}

// Load reads configPath (if it exists) over the defaults, then applies
// environment variable overrides via viper's env binding. A
// viper.ConfigFileNotFoundError from ReadInConfig is swallowed and Load
// degrades to defaults plus env; any other read or parse error is
// returned.
func Load(configPath string) (Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("database-url", def.DatabaseURL)
	v.SetDefault("data-dir", def.DataDir)
	v.SetDefault("export-dir", def.ExportDir)
	v.SetDefault("default-status", def.DefaultStatus)
	v.SetDefault("enrichment-timeout", def.EnrichmentTimeout)
	v.SetDefault("list-limit", def.ListLimit)
	v.SetDefault("max-list-limit", def.MaxListLimit)

	_ = v.BindEnv("database-url", "SHIROKUMA_DATABASE_URL")
	_ = v.BindEnv("data-dir", "SHIROKUMA_DATA_DIR")
	_ = v.BindEnv("export-dir", "SHIROKUMA_EXPORT_DIR")
	_ = v.BindEnv("enrichment-timeout", "SHIROKUMA_ENRICHMENT_TIMEOUT")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return def, err
			}
		}
	}

	cfg := Config{
		DatabaseURL:       v.GetString("database-url"),
		DataDir:           v.GetString("data-dir"),
		ExportDir:         v.GetString("export-dir"),
		DefaultStatus:     v.GetString("default-status"),
		EnrichmentTimeout: v.GetDuration("enrichment-timeout"),
		ListLimit:         v.GetInt("list-limit"),
		MaxListLimit:      v.GetInt("max-list-limit"),
	}
	if cfg.DatabaseURL == "" && cfg.DataDir != "" {
		cfg.DatabaseURL = "file:" + filepath.Join(cfg.DataDir, "shirokuma.db")
	}
	return cfg, nil
}
