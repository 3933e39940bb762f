// Package config loads sitehunt settings from defaults, an optional YAML
// file, a .env file and SITEHUNT_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/FranksOps/sitehunt/internal/fingerprint"
	"github.com/FranksOps/sitehunt/internal/logging"
	"github.com/FranksOps/sitehunt/internal/serp"
)

// EnvPrefix prefixes every environment override, e.g. SITEHUNT_LOG_LEVEL.
const EnvPrefix = "SITEHUNT"

// Config is the full application configuration.
type Config struct {
	Workbook WorkbookConfig `mapstructure:"workbook"`
	Search   SearchConfig   `mapstructure:"search"`
	Chrome   ChromeConfig   `mapstructure:"chrome"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Console  ConsoleConfig  `mapstructure:"console"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Export   ExportConfig   `mapstructure:"export"`
}

// WorkbookConfig locates the exhibitor list.
type WorkbookConfig struct {
	Path          string `mapstructure:"path"`
	Sheet         string `mapstructure:"sheet"`
	NameColumn    int    `mapstructure:"name_column"`
	WebsiteColumn int    `mapstructure:"website_column"`
	FirstRow      int    `mapstructure:"first_row"`
	MaxCompanies  int    `mapstructure:"max_companies"`
	SaveEvery     int    `mapstructure:"save_every"`
}

// SearchConfig tunes how lookups are performed.
type SearchConfig struct {
	Engines        []string      `mapstructure:"engines"`
	Renderer       string        `mapstructure:"renderer"` // "chrome" or "http"
	MaxCandidates  int           `mapstructure:"max_candidates"`
	SearchWords    int           `mapstructure:"search_words"`
	Blocklist      []string      `mapstructure:"blocklist"`
	RowDelayMin    time.Duration `mapstructure:"row_delay_min"`
	RowDelayMax    time.Duration `mapstructure:"row_delay_max"`
	UserAgentsFile string        `mapstructure:"user_agents_file"`
	Proxies        []string      `mapstructure:"proxies"`
	ProxiesFile    string        `mapstructure:"proxies_file"`
}

// ChromeConfig tunes the headless browser.
type ChromeConfig struct {
	ExecPath          string        `mapstructure:"exec_path"`
	Headful           bool          `mapstructure:"headful"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	PageLoadMin       time.Duration `mapstructure:"page_load_min"`
	PageLoadMax       time.Duration `mapstructure:"page_load_max"`
	MouseChance       float64       `mapstructure:"mouse_chance"`
	SettleMin         time.Duration `mapstructure:"settle_min"`
	SettleMax         time.Duration `mapstructure:"settle_max"`
}

// HTTPConfig tunes the plain HTTP renderer.
type HTTPConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Fingerprint string        `mapstructure:"fingerprint"`
}

// LogConfig configures the debug log file and console output.
type LogConfig struct {
	Level        string `mapstructure:"level"`
	Format       string `mapstructure:"format"`
	File         string `mapstructure:"file"`
	ConsoleLevel string `mapstructure:"console_level"`
}

// StorageConfig selects the lookup history backend.
type StorageConfig struct {
	Type string `mapstructure:"type"` // none, sqlite, postgres, csv, json
	DSN  string `mapstructure:"dsn"`
}

// ConsoleConfig configures the web console.
type ConsoleConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	LogHistory  int      `mapstructure:"log_history"`
}

// MetricsConfig enables the Prometheus endpoint when Port is non-zero.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// ExportConfig uploads finished workbooks to S3 when Bucket is set.
type ExportConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// SetDefaults registers every key with its default so env overrides are
// recognised for all of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workbook.path", "")
	v.SetDefault("workbook.sheet", "1. Exhibitor List (Input)")
	v.SetDefault("workbook.name_column", 2)
	v.SetDefault("workbook.website_column", 3)
	v.SetDefault("workbook.first_row", 9)
	v.SetDefault("workbook.max_companies", 300)
	v.SetDefault("workbook.save_every", 5)

	v.SetDefault("search.engines", serp.DefaultEngines)
	v.SetDefault("search.renderer", "chrome")
	v.SetDefault("search.max_candidates", 5)
	v.SetDefault("search.search_words", 4)
	v.SetDefault("search.blocklist", []string{})
	v.SetDefault("search.row_delay_min", 15*time.Second)
	v.SetDefault("search.row_delay_max", 25*time.Second)
	v.SetDefault("search.user_agents_file", "")
	v.SetDefault("search.proxies", []string{})
	v.SetDefault("search.proxies_file", "")

	v.SetDefault("chrome.exec_path", "")
	v.SetDefault("chrome.headful", false)
	v.SetDefault("chrome.navigation_timeout", 60*time.Second)
	v.SetDefault("chrome.page_load_min", 5*time.Second)
	v.SetDefault("chrome.page_load_max", 8*time.Second)
	v.SetDefault("chrome.mouse_chance", 0.3)
	v.SetDefault("chrome.settle_min", time.Second)
	v.SetDefault("chrome.settle_max", 2*time.Second)

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.fingerprint", string(fingerprint.ProfileChrome))

	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "debug.log")
	v.SetDefault("log.console_level", "info")

	v.SetDefault("storage.type", "none")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("console.addr", "127.0.0.1:8090")
	v.SetDefault("console.cors_origins", []string{})
	v.SetDefault("console.log_history", 500)

	v.SetDefault("metrics.port", 0)

	v.SetDefault("export.bucket", "")
	v.SetDefault("export.prefix", "")
	v.SetDefault("export.region", "")
	v.SetDefault("export.endpoint", "")
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration into v and decodes it. file may be empty.
// Flags bound to v before calling Load take precedence over everything.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.Workbook.NameColumn < 1 || c.Workbook.WebsiteColumn < 1 || c.Workbook.FirstRow < 1 {
		errs = append(errs, errors.New("workbook columns and first row must be >= 1"))
	}
	if c.Workbook.NameColumn == c.Workbook.WebsiteColumn {
		errs = append(errs, errors.New("workbook name and website columns must differ"))
	}
	if c.Workbook.MaxCompanies < 1 {
		errs = append(errs, errors.New("workbook.max_companies must be positive"))
	}
	if _, err := serp.ParseEngines(c.Search.Engines); err != nil {
		errs = append(errs, err)
	}
	switch c.Search.Renderer {
	case "chrome", "http":
	default:
		errs = append(errs, fmt.Errorf("search.renderer must be chrome or http, got %q", c.Search.Renderer))
	}
	if c.Search.RowDelayMax < c.Search.RowDelayMin {
		errs = append(errs, errors.New("search.row_delay_max must not be below row_delay_min"))
	}
	if c.Chrome.MouseChance < 0 || c.Chrome.MouseChance > 1 {
		errs = append(errs, errors.New("chrome.mouse_chance must be within [0, 1]"))
	}
	if _, err := fingerprint.ParseProfile(c.HTTP.Fingerprint); err != nil {
		errs = append(errs, err)
	}
	switch c.Storage.Type {
	case "none", "":
	case "sqlite", "postgres", "csv", "json":
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for %s", c.Storage.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.type %q", c.Storage.Type))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Logging converts the log section into logging.Config.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:        c.Log.Level,
		Format:       c.Log.Format,
		File:         c.Log.File,
		ConsoleLevel: c.Log.ConsoleLevel,
	}
}
