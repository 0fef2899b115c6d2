package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/neboloop/turbo/internal/dataset"
	"github.com/neboloop/turbo/internal/db"
	"github.com/neboloop/turbo/internal/defaults"
	"github.com/neboloop/turbo/internal/updater"
)

// LoadFromBytes loads configuration from YAML bytes with environment variable
// expansion and fills in defaults.
func LoadFromBytes(data []byte) (Config, error) {
	var c Config
	if err := c.Merge(data); err != nil {
		return c, err
	}
	c.ApplyDefaults()
	return c, nil
}

// Load reads the embedded base config and overlays each file in order.
// Missing overlay files are skipped.
func Load(base []byte, overlays ...string) (Config, error) {
	var c Config
	if err := c.Merge(base); err != nil {
		return c, fmt.Errorf("embedded config: %w", err)
	}
	for _, path := range overlays {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return c, err
		}
		if err := c.Merge(data); err != nil {
			return c, fmt.Errorf("%s: %w", path, err)
		}
	}
	c.ApplyDefaults()
	return c, c.Validate()
}

// Merge decodes YAML on top of the current values.
func (c *Config) Merge(data []byte) error {
	expanded := os.ExpandEnv(string(data))
	return yaml.Unmarshal([]byte(expanded), c)
}

// LoadDotEnv loads .env files if present. Variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// parseBool parses a string as boolean with a default value.
// Accepts: "true", "1", "yes" as true; empty or other values return default.
func parseBool(s string, defaultVal bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return defaultVal
	}
	return s == "true" || s == "1" || s == "yes"
}

type Config struct {
	Name string `yaml:"Name"`
	Host string `yaml:"Host"`
	Port int    `yaml:"Port"`

	App struct {
		Name    string `yaml:"Name"`
		Version string `yaml:"Version"`
		BaseURL string `yaml:"BaseURL"`
		WebURL  string `yaml:"WebURL"`
		IPCPort int    `yaml:"IPCPort"`
	} `yaml:"App"`

	Security struct {
		AllowedOrigins        string `yaml:"AllowedOrigins"`
		RateLimitEnabled      string `yaml:"RateLimitEnabled"`
		RateLimitRequests     int    `yaml:"RateLimitRequests"`
		RateLimitInterval     int    `yaml:"RateLimitInterval"`
		RateLimitBurst        int    `yaml:"RateLimitBurst"`
		EnableSecurityHeaders string `yaml:"EnableSecurityHeaders"`
		MaxRequestBodySize    int64  `yaml:"MaxRequestBodySize"`
	} `yaml:"Security"`

	FS struct {
		Root string `yaml:"Root"`
	} `yaml:"FS"`

	Data struct {
		Count int    `yaml:"Count"`
		Seed  uint64 `yaml:"Seed"`
	} `yaml:"Data"`

	Database struct {
		SQLitePath string `yaml:"SQLitePath"`
	} `yaml:"Database"`

	Update struct {
		Enabled      string        `yaml:"Enabled"`
		Owner        string        `yaml:"Owner"`
		Repo         string        `yaml:"Repo"`
		Schedule     string        `yaml:"Schedule"`
		StartupDelay time.Duration `yaml:"StartupDelay"`
		AutoDownload string        `yaml:"AutoDownload"`
	} `yaml:"Update"`

	Log struct {
		Level      string `yaml:"Level"`
		File       string `yaml:"File"`
		MaxSizeMB  int    `yaml:"MaxSizeMB"`
		MaxBackups int    `yaml:"MaxBackups"`
		MaxAgeDays int    `yaml:"MaxAgeDays"`
	} `yaml:"Log"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "turbo-api"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = defaults.APIPort
	}
	if c.App.Name == "" {
		c.App.Name = defaults.AppName
	}
	if c.App.Version == "" {
		c.App.Version = defaults.AppVersion
	}
	if c.App.BaseURL == "" {
		c.App.BaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	if c.App.WebURL == "" {
		c.App.WebURL = fmt.Sprintf("http://localhost:%d", defaults.WebPort)
	}
	if c.Security.RateLimitRequests == 0 {
		c.Security.RateLimitRequests = 600
	}
	if c.Security.RateLimitInterval == 0 {
		c.Security.RateLimitInterval = 60
	}
	if c.Security.RateLimitBurst == 0 {
		c.Security.RateLimitBurst = 100
	}
	if c.Security.MaxRequestBodySize == 0 {
		c.Security.MaxRequestBodySize = 10 << 20
	}
	if c.Data.Count == 0 {
		c.Data.Count = dataset.DefaultCount
	}
	if c.Data.Seed == 0 {
		c.Data.Seed = 1
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = db.MemoryPath
	}
	if c.Update.Owner == "" {
		c.Update.Owner = updater.DefaultOwner
	}
	if c.Update.Repo == "" {
		c.Update.Repo = updater.DefaultRepo
	}
	if c.Update.Schedule == "" {
		c.Update.Schedule = updater.DefaultSchedule
	}
	if c.Update.StartupDelay == 0 {
		c.Update.StartupDelay = updater.DefaultStartupDelay
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("Port %d out of range", c.Port))
	}
	if c.App.IPCPort < 0 || c.App.IPCPort > 65535 {
		errs = append(errs, fmt.Errorf("App.IPCPort %d out of range", c.App.IPCPort))
	}
	if c.Data.Count < 0 {
		errs = append(errs, fmt.Errorf("Data.Count must not be negative"))
	}
	if c.Security.RateLimitRequests < 0 || c.Security.RateLimitInterval < 0 || c.Security.RateLimitBurst < 0 {
		errs = append(errs, fmt.Errorf("Security rate limits must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("Log.Level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if _, err := cron.ParseStandard(c.Update.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("Update.Schedule: %w", err))
	}
	if c.Update.StartupDelay < 0 {
		errs = append(errs, fmt.Errorf("Update.StartupDelay must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address of the REST service.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IPCAddr is the loopback listen address of the desktop IPC socket. Port 0
// picks a free port.
func (c Config) IPCAddr() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(c.App.IPCPort))
}

// AllowedOrigins splits the comma separated origin list. Empty means
// loopback origins plus the web UI's origin.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.Security.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) > 0 {
		return out
	}
	out = []string{"localhost"}
	if u, err := url.Parse(c.App.WebURL); err == nil && u.Scheme != "" && u.Host != "" {
		out = append(out, u.Scheme+"://"+u.Host)
	}
	return out
}

// RateLimitWindow is the refill period of the per-client budget.
func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.Security.RateLimitInterval) * time.Second
}

func (c Config) IsRateLimitEnabled() bool {
	return parseBool(c.Security.RateLimitEnabled, true)
}

func (c Config) IsSecurityHeadersEnabled() bool {
	return parseBool(c.Security.EnableSecurityHeaders, true)
}

func (c Config) IsUpdateEnabled() bool {
	return parseBool(c.Update.Enabled, true)
}

func (c Config) IsAutoDownload() bool {
	return parseBool(c.Update.AutoDownload, false)
}
