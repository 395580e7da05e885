// Package config loads teachdash settings.
//
// Precedence (highest to lowest): flags > TEACHDASH_* env vars > config
// file > defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"teachdash/internal/api"
	"teachdash/internal/auth"
	"teachdash/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g. TEACHDASH_API_URL.
const EnvPrefix = "TEACHDASH_"

// Defaults.
const (
	DefaultPageSize          = api.DefaultPageSize
	DefaultImportConcurrency = 1
	DefaultLogFileName       = "teachdash.log"
)

// configFileNames are searched in the working directory, then the state dir.
var configFileNames = []string{"teachdash.yaml", "teachdash.yml"}

// Config holds all settings.
type Config struct {
	APIURL            string        `koanf:"api_url"`
	Timeout           time.Duration `koanf:"timeout"`
	PageSize          int           `koanf:"page_size"`
	ImportConcurrency int           `koanf:"import_concurrency"`
	StateDir          string        `koanf:"state_dir"`
	LogFile           string        `koanf:"log_file"`
	Verbose           bool          `koanf:"verbose"`
	OTLPEndpoint      string        `koanf:"otlp_endpoint"`
	OTLPInsecure      bool          `koanf:"otlp_insecure"`
	ServiceName       string        `koanf:"service_name"`

	// FileUsed is the config file that was read, if any.
	FileUsed string `koanf:"-"`
}

// Telemetry returns the tracing options for this config.
func (c *Config) Telemetry() telemetry.Options {
	return telemetry.Options{
		Endpoint:    c.OTLPEndpoint,
		ServiceName: c.ServiceName,
		Insecure:    c.OTLPInsecure,
	}
}

// RegisterFlags adds the persistent flags that override config keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default ./teachdash.yaml)")
	fs.String("api-url", "", "backend base URL")
	fs.Duration("timeout", 0, "per-request timeout")
	fs.Int("page-size", 0, "teacher list page size")
	fs.Int("import-concurrency", 0, "parallel updates during bulk import")
	fs.String("log-file", "", "log file for the interactive UI")
	fs.BoolP("verbose", "v", false, "debug logging")
	fs.String("otlp-endpoint", "", "OTLP/HTTP trace endpoint (host:port)")
}

func defaults() (map[string]any, error) {
	stateDir, err := auth.StateDir()
	if err != nil {
		return nil, fmt.Errorf("resolve state dir: %w", err)
	}
	return map[string]any{
		"api_url":            api.DefaultBaseURL,
		"timeout":            api.DefaultTimeout.String(),
		"page_size":          DefaultPageSize,
		"import_concurrency": DefaultImportConcurrency,
		"state_dir":          stateDir,
		"log_file":           "",
		"verbose":            false,
		"otlp_endpoint":      "",
		"otlp_insecure":      false,
		"service_name":       telemetry.DefaultServiceName,
	}, nil
}

func findConfigFile(explicit, stateDir string) string {
	if explicit != "" {
		return explicit
	}
	for _, dir := range []string{".", stateDir} {
		for _, name := range configFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

// Load reads settings from all layers. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defs, err := defaults()
	if err != nil {
		return nil, err
	}
	if err := k.Load(confmap.Provider(defs, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	var explicit string
	if flags != nil {
		explicit, _ = flags.GetString("config")
	}
	stateDir := defs["state_dir"].(string)
	used := findConfigFile(explicit, stateDir)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = used
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.StateDir, DefaultLogFileName)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and the base URL.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: want http(s)://host[:port]", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("invalid page_size %d: must be positive", c.PageSize)
	}
	if c.ImportConcurrency < 1 {
		return fmt.Errorf("invalid import_concurrency %d: must be at least 1", c.ImportConcurrency)
	}
	return nil
}
