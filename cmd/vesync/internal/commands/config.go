package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	vesync "github.com/tj-smith47/vesync-go"
	"gopkg.in/yaml.v3"
)

// Config is the YAML config file layout.
type Config struct {
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	Country     string `yaml:"country"`
	TimeZone    string `yaml:"time_zone"`
	SessionFile string `yaml:"session_file"`

	Retry     *RetryConfig   `yaml:"retry"`
	Endpoints EndpointConfig `yaml:"endpoints"`
}

// RetryConfig overrides the client's transport retry policy.
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// EndpointConfig points the client at proxies or test servers.
type EndpointConfig struct {
	Global string `yaml:"global"`
	EU     string `yaml:"eu"`
}

// defaultConfigDir returns $XDG_CONFIG_HOME/vesync or ~/.config/vesync.
func defaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vesync"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vesync"), nil
}

// LoadConfig reads the config file at path. With an empty path the default
// location is used, and a missing default file yields an empty config.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		dir, err := defaultConfigDir()
		if err != nil {
			return &Config{}, nil
		}
		path = filepath.Join(dir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Settings is the effective configuration after flags are applied.
type Settings struct {
	Email       string
	Password    string
	Country     string
	TimeZone    string
	SessionFile string
	Retry       *vesync.RetryConfig
	Endpoints   EndpointConfig
}

// Merge overlays non-empty flag values from g onto the file config.
func (c *Config) Merge(g *Globals) (*Settings, error) {
	s := &Settings{
		Email:       pick(g.Email, c.Email),
		Password:    pick(g.Password, c.Password),
		Country:     pick(g.Country, c.Country),
		TimeZone:    c.TimeZone,
		SessionFile: pick(g.SessionFile, c.SessionFile),
		Endpoints:   c.Endpoints,
	}

	if s.Email == "" {
		return nil, errors.New("no account email: pass --email, set VESYNC_EMAIL or add email to the config file")
	}
	if s.Password == "" {
		return nil, errors.New("no account password: pass --password, set VESYNC_PASSWORD or add password to the config file")
	}

	if s.SessionFile == "" {
		if dir, err := defaultConfigDir(); err == nil {
			s.SessionFile = filepath.Join(dir, "session.json")
		}
	}

	if c.Retry != nil {
		rc := vesync.DefaultRetryConfig()
		rc.MaxRetries = c.Retry.MaxRetries
		if c.Retry.InitialBackoff > 0 {
			rc.InitialBackoff = c.Retry.InitialBackoff
		}
		if c.Retry.MaxBackoff > 0 {
			rc.MaxBackoff = c.Retry.MaxBackoff
		}
		s.Retry = rc
	}
	return s, nil
}

func pick(flag, file string) string {
	if flag != "" {
		return flag
	}
	return file
}

// Options converts the settings to client options.
func (s *Settings) Options() []vesync.Option {
	opts := []vesync.Option{vesync.WithSessionFile(s.SessionFile)}
	if s.Country != "" {
		opts = append(opts, vesync.WithCountryCode(s.Country))
	}
	if s.TimeZone != "" {
		opts = append(opts, vesync.WithTimeZone(s.TimeZone))
	}
	if s.Retry != nil {
		opts = append(opts, vesync.WithRetry(s.Retry))
	}
	if s.Endpoints.Global != "" || s.Endpoints.EU != "" {
		global, eu := s.Endpoints.Global, s.Endpoints.EU
		if global == "" {
			global = vesync.GlobalBaseURL
		}
		if eu == "" {
			eu = vesync.EUBaseURL
		}
		opts = append(opts, vesync.WithEndpoints(global, eu))
	}
	return opts
}
