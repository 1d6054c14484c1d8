package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Version is the eventimx release, overridable at build time with
// -ldflags "-X github.com/crimson-sun/eventimx/internal/config.Version=...".
var Version = "0.4.0"

// Config holds all eventimx configuration.
type Config struct {
	Connector       ConnectorConfig `yaml:"connector"`
	Engine          EngineConfig    `yaml:"engine"`
	Output          OutputConfig    `yaml:"output"`
	Log             LogConfig       `yaml:"log"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
}

// ConnectorConfig holds connector-specific settings.
type ConnectorConfig struct {
	Provider string            `yaml:"provider"`
	APIKey   string            `yaml:"api_key"`
	Endpoint string            `yaml:"endpoint"`
	Extra    map[string]string `yaml:"extra"`
	Limit    int               `yaml:"limit"` // max documents per query, 0 = all
}

// EngineConfig holds parser settings.
type EngineConfig struct {
	Diagnostics bool   `yaml:"diagnostics"`
	Location    string `yaml:"location"` // IANA zone report dates are read in
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Format       string `yaml:"format"` // "xlsx", "csv", "json", "sqlite"
	Path         string `yaml:"path"`
	OutDir       string `yaml:"out_dir"` // watch mode: one file per report
	CSVDelimiter string `yaml:"csv_delimiter"`
	SQLitePath   string `yaml:"sqlite_path"` // archive every report here as well
	DateFormat   string `yaml:"date_format"`
	Pretty       bool   `yaml:"pretty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Formats lists the supported output formats.
var Formats = []string{"xlsx", "csv", "json", "sqlite"}

// Providers lists the connector providers the CLI ships with.
var Providers = []string{"localfs", "stdin", "http"}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Connector: ConnectorConfig{Provider: "localfs"},
		Engine: EngineConfig{
			Diagnostics: true,
			Location:    "UTC",
		},
		Output: OutputConfig{
			Format:       "xlsx",
			Path:         "report.xlsx",
			CSVDelimiter: ";",
			DateFormat:   "dd.mm.yy hh:mm",
		},
		Log:             LogConfig{Level: "info"},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

// LoadFile overlays the YAML file at path onto the defaults, then applies
// environment variables, which win over the file. An empty path is Load.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Connector.Provider = getenv("EVENTIMX_CONNECTOR", cfg.Connector.Provider)
	cfg.Connector.APIKey = getenv("EVENTIMX_API_KEY", cfg.Connector.APIKey)
	cfg.Connector.Endpoint = getenv("EVENTIMX_ENDPOINT", cfg.Connector.Endpoint)
	cfg.Connector.Extra = loadConnectorExtra(cfg.Connector.Extra)
	cfg.Connector.Limit = getenvInt("EVENTIMX_LIMIT", cfg.Connector.Limit)

	cfg.Engine.Diagnostics = getenvBool("EVENTIMX_DIAGNOSTICS", cfg.Engine.Diagnostics)
	cfg.Engine.Location = getenv("EVENTIMX_LOCATION", cfg.Engine.Location)

	cfg.Output.Format = getenv("EVENTIMX_OUTPUT", cfg.Output.Format)
	cfg.Output.Path = getenv("EVENTIMX_OUTPUT_PATH", cfg.Output.Path)
	cfg.Output.OutDir = getenv("EVENTIMX_OUT_DIR", cfg.Output.OutDir)
	cfg.Output.CSVDelimiter = getenv("EVENTIMX_CSV_DELIMITER", cfg.Output.CSVDelimiter)
	cfg.Output.SQLitePath = getenv("EVENTIMX_SQLITE_PATH", cfg.Output.SQLitePath)
	cfg.Output.DateFormat = getenv("EVENTIMX_DATE_FORMAT", cfg.Output.DateFormat)
	cfg.Output.Pretty = getenvBool("EVENTIMX_PRETTY", cfg.Output.Pretty)

	cfg.Log.Level = getenv("EVENTIMX_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.JSON = getenvBool("EVENTIMX_LOG_JSON", cfg.Log.JSON)

	cfg.ShutdownTimeout = getenvDuration("EVENTIMX_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
}

// Validate checks the configuration and reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if !contains(Providers, c.Connector.Provider) {
		errs = append(errs, fmt.Errorf("unknown connector %q (want one of %s)", c.Connector.Provider, strings.Join(Providers, ", ")))
	}
	if c.Connector.Provider == "http" && c.Connector.Endpoint == "" {
		errs = append(errs, errors.New("http connector requires EVENTIMX_ENDPOINT"))
	}
	if !contains(Formats, c.Output.Format) {
		errs = append(errs, fmt.Errorf("unknown output format %q (want one of %s)", c.Output.Format, strings.Join(Formats, ", ")))
	}
	if c.Output.Format == "sqlite" && c.Output.Path == "" && c.Output.SQLitePath == "" {
		errs = append(errs, errors.New("sqlite output requires an output path"))
	}
	if utf8.RuneCountInString(c.Output.CSVDelimiter) != 1 {
		errs = append(errs, fmt.Errorf("csv delimiter must be a single character, got %q", c.Output.CSVDelimiter))
	}
	if _, err := time.LoadLocation(c.Engine.Location); err != nil {
		errs = append(errs, fmt.Errorf("location: %w", err))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.Connector.Limit < 0 {
		errs = append(errs, fmt.Errorf("limit must be >= 0, got %d", c.Connector.Limit))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be >= 0, got %v", c.ShutdownTimeout))
	}

	return errors.Join(errs...)
}

// Delimiter returns the CSV delimiter as a rune.
func (o OutputConfig) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(o.CSVDelimiter)
	return r
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConnectorExtra overlays provider-specific env vars onto base.
func loadConnectorExtra(base map[string]string) map[string]string {
	vars := []struct {
		envVar   string
		extraKey string
	}{
		{"EVENTIMX_DEBOUNCE", "debounce"},
		{"EVENTIMX_POLL_INTERVAL", "poll_interval"},
		{"EVENTIMX_DOCUMENT_NAME", "name"},
		{"EVENTIMX_CONTENT_TYPE", "content_type"},
	}

	m := base
	for _, v := range vars {
		if val := os.Getenv(v.envVar); val != "" {
			if m == nil {
				m = make(map[string]string)
			}
			m[v.extraKey] = val
		}
	}
	return m
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
