package contract

import (
	"fmt"
	"net/url"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/precache/schema"
)

// Default values for configuration.
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultListenAddr   = ":8080"
	MaxWorkers          = 256
)

// DefaultWorkers is the default number of concurrent asset fetches.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for the offline cache.
// This struct remains the "final, validated" config.
type Config struct {
	Version string   // Cache version identifier; names the active bucket
	Assets  []string // Asset manifest in deployment order
	Origin  *url.URL // Origin that relative assets and requests resolve against

	Workers      int
	FetchTimeout time.Duration
	ListenAddr   string

	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Version        string   `mapstructure:"cache-version"`
	Assets         []string `mapstructure:"assets"`
	Origin         string   `mapstructure:"origin"`
	Workers        int      `mapstructure:"workers"`
	FetchTimeout   string   `mapstructure:"fetch-timeout"`
	Output         string   `mapstructure:"output"`
	OutputFile     string   `mapstructure:"output-file"`
	Width          int      `mapstructure:"width"`
	Color          string   `mapstructure:"color"`
	CacheBackend   string   `mapstructure:"cache-backend"`
	CacheDBConnect string   `mapstructure:"cache-db-connect"`

	// --- Fields from serveCmd.Flags() ---
	Listen string `mapstructure:"listen"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Assets != nil {
		clone.Assets = slices.Clone(c.Assets)
	}
	if c.Origin != nil {
		origin := *c.Origin
		clone.Origin = &origin
	}
	return &clone
}

// Whitelist returns the bucket names that survive activation.
func (c *Config) Whitelist() []string {
	return []string{c.Version}
}

// ResolveAssets returns the manifest as absolute URLs against the origin.
func (c *Config) ResolveAssets() ([]string, error) {
	urls := make([]string, 0, len(c.Assets))
	for _, asset := range c.Assets {
		u, err := schema.ResolveURL(c.Origin, asset)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processManifest(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.MemoryBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("cache-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("cache-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ValidateBackend checks a backend name and its connection string.
func ValidateBackend(backendStr, connStr string) (schema.DatabaseBackend, error) {
	backend := schema.DatabaseBackend(strings.ToLower(backendStr))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, memory", backendStr)
	}
	if err := ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", err
	}
	return backend, nil
}

// validateBackendConfigs validates the cache backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	backend, err := ValidateBackend(input.CacheBackend, input.CacheDBConnect)
	if err != nil {
		return err
	}
	cfg.CacheBackend = backend
	cfg.CacheDBConnect = input.CacheDBConnect
	return nil
}

// validateSimpleInputs processes and validates all non-manifest fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.ListenAddr = input.Listen
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Workers Validation ---
	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return fmt.Errorf("workers must be greater than 0 and cannot exceed %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Fetch timeout ---
	cfg.FetchTimeout = DefaultFetchTimeout
	if input.FetchTimeout != "" {
		d, err := time.ParseDuration(input.FetchTimeout)
		if err != nil {
			return fmt.Errorf("invalid fetch-timeout '%s': %w", input.FetchTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("fetch-timeout must be positive (received %s)", d)
		}
		cfg.FetchTimeout = d
	}

	// --- 3. Output Validation ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	return nil
}

// processManifest validates the version, origin and asset list.
func processManifest(cfg *Config, input *ConfigRawInput) error {
	cfg.Version = strings.TrimSpace(input.Version)
	if cfg.Version == "" {
		return fmt.Errorf("version cannot be empty")
	}

	cfg.Origin = nil
	if input.Origin != "" {
		origin, err := ParseOrigin(input.Origin)
		if err != nil {
			return err
		}
		cfg.Origin = origin
	}

	assets := input.Assets
	if len(assets) == 0 {
		assets = schema.DefaultAssets
	}
	parsed, err := ParseAssets(assets)
	if err != nil {
		return err
	}
	cfg.Assets = parsed
	return nil
}

// ParseAssets trims and validates an asset manifest, keeping its order.
// Each asset is an absolute path or an http(s) URL; blanks are skipped and duplicates rejected.
func ParseAssets(assets []string) ([]string, error) {
	seen := make(map[string]struct{}, len(assets))
	parsed := make([]string, 0, len(assets))
	for _, raw := range assets {
		asset := strings.TrimSpace(raw)
		if asset == "" {
			continue
		}
		if strings.HasPrefix(asset, "//") {
			return nil, fmt.Errorf("asset %q must be an absolute path or an http(s) URL", asset)
		}
		if !strings.HasPrefix(asset, "/") {
			u, err := url.Parse(asset)
			if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
				return nil, fmt.Errorf("asset %q must be an absolute path or an http(s) URL", asset)
			}
		}
		if _, dup := seen[asset]; dup {
			return nil, fmt.Errorf("asset %q is listed more than once", asset)
		}
		seen[asset] = struct{}{}
		parsed = append(parsed, asset)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("asset manifest cannot be empty")
	}
	return parsed, nil
}

// ParseOrigin parses an absolute http(s) origin URL.
func ParseOrigin(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid origin '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("origin '%s' must use http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("origin '%s' must include a host", raw)
	}
	return u, nil
}

// RequireOrigin returns an error when no origin is configured.
func (c *Config) RequireOrigin() error {
	if c.Origin == nil {
		return fmt.Errorf("--origin is required for this command")
	}
	return nil
}
