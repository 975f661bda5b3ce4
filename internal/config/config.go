package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources Sources `yaml:"sources"`
	Ingest  Ingest  `yaml:"ingest"`
	Output  Output  `yaml:"output"`
	Search  Search  `yaml:"search"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

type Sources struct {
	Feeds []Feed `yaml:"feeds"`
	Sites []Site `yaml:"sites"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// Site describes an HTML index page listing transcript links. LinkPattern
// is a regexp matched against each href on the page.
type Site struct {
	URL         string `yaml:"url"`
	Name        string `yaml:"name"`
	LinkPattern string `yaml:"link_pattern"`
}

type Ingest struct {
	TranscriptsDir      string `yaml:"transcripts_dir"`
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	Concurrency         int    `yaml:"concurrency"`
	CutoffDays          int    `yaml:"cutoff_days"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Search struct {
	Mode     string `yaml:"mode"`
	Lookback int    `yaml:"lookback"`
	Top      int    `yaml:"top"`
}

type Server struct {
	Port  int  `yaml:"port"`
	Watch bool `yaml:"watch"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for podsift.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "podsift")
}

// DataDir returns the XDG data directory for podsift.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "podsift")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/podsift/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'podsift init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Ingest: Ingest{
			FetchTimeoutSeconds: 30,
			Concurrency:         4,
			CutoffDays:          30,
		},
		Search: Search{
			Mode:     "or",
			Lookback: 0,
			Top:      20,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return c.Server.Validate()
}

func (i *Ingest) Validate() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.FetchTimeoutSeconds, validation.Required, validation.Min(1)),
		validation.Field(&i.Concurrency, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&i.CutoffDays, validation.Min(0)),
	)
}

func (s *Search) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Mode, validation.Required, validation.In("or", "and")),
		validation.Field(&s.Lookback, validation.Min(0)),
		validation.Field(&s.Top, validation.Required, validation.Min(1)),
	)
}

func (s *Server) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetTranscriptsDir returns the directory fetched and uploaded transcripts
// are stored in.
func (c *Config) GetTranscriptsDir() string {
	if c.Ingest.TranscriptsDir != "" {
		return c.Ingest.TranscriptsDir
	}
	return filepath.Join(c.GetDataDir(), "transcripts")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
