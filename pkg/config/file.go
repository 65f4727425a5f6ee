package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// File is the on-disk server configuration.
type File struct {
	Server   ServerConfig   `yaml:"server"`
	Archiver ArchiverConfig `yaml:"archiver"`
	Live     LiveConfig     `yaml:"live"`
	Plot     PlotConfig     `yaml:"plot"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// ArchiverConfig configures the backfill client.
type ArchiverConfig struct {
	URL            string   `yaml:"url"`
	RequestTimeout Duration `yaml:"request_timeout"`
	CacheDir       string   `yaml:"cache_dir"`
	CacheInMemory  bool     `yaml:"cache_in_memory"`
	CacheTTL       Duration `yaml:"cache_ttl"`
}

// LiveConfig configures the live sample stream.
type LiveConfig struct {
	URL string `yaml:"url"`
}

// PlotConfig configures buffers, request planning, and the initial curve
// set.
type PlotConfig struct {
	LiveBufferSize      int             `yaml:"live_buffer_size"`
	ArchiveBufferSize   int             `yaml:"archive_buffer_size"`
	OptimizedBins       int             `yaml:"optimized_bins"`
	RawThresholdSeconds float64         `yaml:"raw_threshold_seconds"`
	Curves              []CurveConfig   `yaml:"curves"`
	Formulas            []FormulaConfig `yaml:"formulas"`
}

// CurveConfig declares a channel curve to register at startup.
type CurveConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// FormulaConfig declares a formula curve to register at startup. Formulas
// are registered after curves, in file order.
type FormulaConfig struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// Defaults returns a File with every tunable at its default.
func Defaults() *File {
	return &File{
		Server: ServerConfig{Port: DefaultPort},
		Archiver: ArchiverConfig{
			RequestTimeout: Duration{DefaultRequestTimeout},
			CacheTTL:       Duration{DefaultCacheTTL},
			CacheInMemory:  DefaultCacheInMemory,
		},
		Plot: PlotConfig{
			LiveBufferSize:      DefaultLiveBufferSize,
			ArchiveBufferSize:   DefaultArchiveBufferSize,
			OptimizedBins:       DefaultOptimizedBins,
			RawThresholdSeconds: DefaultRawThresholdSeconds,
		},
	}
}

// Load reads a YAML config file, layers it over the defaults, applies
// environment overrides, and validates the result. An empty path returns
// defaults with environment overrides only.
func Load(path string) (*File, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over the file for the
// settings that differ per deployment.
func (c *File) applyEnvOverrides() {
	if v := os.Getenv("ARCHPLOT_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ARCHPLOT_ARCHIVER_URL"); v != "" {
		c.Archiver.URL = v
	}
	if v := os.Getenv("ARCHPLOT_LIVE_URL"); v != "" {
		c.Live.URL = v
	}
	if v := os.Getenv("ARCHPLOT_CACHE_DIR"); v != "" {
		c.Archiver.CacheDir = v
	}
}

// Validate rejects configurations the server cannot run with.
func (c *File) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	if c.Archiver.URL == "" {
		return fmt.Errorf("archiver.url must be set")
	}
	if c.Plot.LiveBufferSize <= 0 {
		return fmt.Errorf("plot.live_buffer_size must be positive")
	}
	if c.Plot.ArchiveBufferSize <= 0 {
		return fmt.Errorf("plot.archive_buffer_size must be positive")
	}
	if c.Plot.OptimizedBins <= 0 {
		return fmt.Errorf("plot.optimized_bins must be positive")
	}
	if c.Plot.RawThresholdSeconds <= 0 {
		return fmt.Errorf("plot.raw_threshold_seconds must be positive")
	}

	seen := make(map[string]bool)
	for _, cc := range c.Plot.Curves {
		if cc.Name == "" || cc.Address == "" {
			return fmt.Errorf("plot.curves entries need both name and address")
		}
		if seen[cc.Name] {
			return fmt.Errorf("duplicate curve name %q", cc.Name)
		}
		seen[cc.Name] = true
	}
	for _, fc := range c.Plot.Formulas {
		if fc.Name == "" || fc.Expression == "" {
			return fmt.Errorf("plot.formulas entries need both name and expression")
		}
		if seen[fc.Name] {
			return fmt.Errorf("duplicate curve name %q", fc.Name)
		}
		seen[fc.Name] = true
	}
	return nil
}
