package common

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Project metadata.
const (
	ProjectName    = "deskline"
	ProjectVersion = "0.1.0"
)

type Config struct {
	// Backend base URL; the REST surface lives under BaseURL + "/apis".
	BaseURL string `yaml:"base_url"`
	// DataDir holds the local key-value store file.
	DataDir string `yaml:"data_dir"`
	// UserName is appended to read calls as the user_name query param.
	UserName string `yaml:"user_name"`
	// RequestTimeout bounds every backend call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// ListRetries is the attempt budget for the ticket-list fetch only.
	ListRetries int `yaml:"list_retries"`
	// PollInterval drives the ticket-list auto-refresh.
	PollInterval time.Duration `yaml:"poll_interval"`
	// MetricsAddr exposes prometheus /metrics when non-empty.
	MetricsAddr string `yaml:"metrics_addr"`
	// HTTPAddr is where the stub backend listens.
	HTTPAddr string `yaml:"http_addr"`
}

// LoadConfig builds configuration from defaults, an optional YAML file
// (DESKLINE_CONFIG or ~/.config/deskline/config.yaml), then env overrides.
func LoadConfig() *Config {
	cfg := &Config{
		BaseURL:        "http://127.0.0.1:8090",
		DataDir:        defaultDataDir(),
		RequestTimeout: 10 * time.Second,
		ListRetries:    3,
		PollInterval:   30 * time.Second,
		MetricsAddr:    "",
		HTTPAddr:       ":8090",
	}
	if path := configFilePath(); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, cfg)
		}
	}
	cfg.BaseURL = getenv("DESKLINE_BASE_URL", cfg.BaseURL)
	cfg.DataDir = getenv("DESKLINE_DATA_DIR", cfg.DataDir)
	cfg.UserName = getenv("DESKLINE_USER", cfg.UserName)
	cfg.MetricsAddr = getenv("DESKLINE_METRICS_ADDR", cfg.MetricsAddr)
	cfg.HTTPAddr = getenv("DESKLINE_HTTP_ADDR", cfg.HTTPAddr)
	if v := os.Getenv("DESKLINE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("DESKLINE_LIST_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ListRetries = n
		}
	}
	return cfg
}

func configFilePath() string {
	if v := os.Getenv("DESKLINE_CONFIG"); v != "" {
		return v
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "deskline", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "deskline", "config.yaml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".deskline"
	}
	return filepath.Join(home, ".local", "share", "deskline")
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
