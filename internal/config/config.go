package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the watch daemon.
const (
	DefaultFIFOPath       = "/run/pidwatch/pid_watch.fifo"
	DefaultCheckInterval  = 600 * time.Second
	DefaultStaleAfter     = 1200 * time.Second
	DefaultHTTPPort       = 9180
	DefaultStreamInterval = 5 * time.Second
)

// Environment variables honored as overrides, named for compatibility with
// the previous generation of the service.
const (
	EnvFIFOPath      = "PID_WATCH_FIFO"
	EnvCheckInterval = "PID_WATCH_INTERVAL_SEC"
	EnvStaleAfter    = "PID_WATCH_STALE_SEC"
	EnvSlackWebhook  = "SLACK_WEBHOOK_URL"
)

// Config is the full configuration for both binaries, parsed from one
// YAML file. The monitor section is ignored by pidwatchd and vice versa.
type Config struct {
	Watch   WatchConfig   `yaml:"watch"`
	Notify  NotifyConfig  `yaml:"notify"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// WatchConfig holds the watch daemon's settings.
type WatchConfig struct {
	// FIFOPath is the named pipe announcements arrive on.
	FIFOPath string `yaml:"fifo_path"`

	// CheckInterval is the liveness checker's period (default 600s).
	CheckInterval time.Duration `yaml:"check_interval"`

	// StaleAfter is how long a PID may stay silent before it is considered
	// stale and probed (default 1200s).
	StaleAfter time.Duration `yaml:"stale_after"`

	// HTTPPort serves the operator API, the websocket stream, and /metrics.
	// Zero disables the HTTP surface entirely.
	HTTPPort int `yaml:"http_port"`

	// StreamInterval is the websocket hub's broadcast period (default 5s).
	StreamInterval time.Duration `yaml:"stream_interval"`
}

// NotifyConfig holds alert delivery targets.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook
	// URL, so the URL itself never lives in the config file.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// MonitorConfig holds procmon's settings.
type MonitorConfig struct {
	// Mode is one of: supervisor | systemd.
	Mode string `yaml:"mode"`

	// Service is the systemd unit to watch in systemd mode.
	Service string `yaml:"service"`
}

// Load reads the config file at path, fills defaults, applies environment
// overrides, and validates. A missing file is not an error: the daemon then
// runs on defaults plus environment, matching its predecessor's behaviour.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults + environment only.
	default:
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Watch: WatchConfig{
			FIFOPath:       DefaultFIFOPath,
			CheckInterval:  DefaultCheckInterval,
			StaleAfter:     DefaultStaleAfter,
			HTTPPort:       DefaultHTTPPort,
			StreamInterval: DefaultStreamInterval,
		},
		Monitor: MonitorConfig{
			Mode: "supervisor",
		},
	}
}

// applyEnv lets the environment override the file, and registers an implicit
// Slack webhook when SLACK_WEBHOOK_URL is set and no webhooks are configured.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvFIFOPath); v != "" {
		cfg.Watch.FIFOPath = v
	}
	if d, ok := envSeconds(EnvCheckInterval); ok {
		cfg.Watch.CheckInterval = d
	}
	if d, ok := envSeconds(EnvStaleAfter); ok {
		cfg.Watch.StaleAfter = d
	}
	if len(cfg.Notify.Webhooks) == 0 && os.Getenv(EnvSlackWebhook) != "" {
		cfg.Notify.Webhooks = []WebhookConfig{{Type: "slack", URLEnv: EnvSlackWebhook}}
	}
}

func envSeconds(name string) (time.Duration, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

func validate(cfg *Config) error {
	if cfg.Watch.FIFOPath == "" {
		return fmt.Errorf("watch.fifo_path must not be empty")
	}
	if cfg.Watch.CheckInterval <= 0 {
		return fmt.Errorf("watch.check_interval must be positive, got %v", cfg.Watch.CheckInterval)
	}
	if cfg.Watch.StaleAfter <= 0 {
		return fmt.Errorf("watch.stale_after must be positive, got %v", cfg.Watch.StaleAfter)
	}
	if cfg.Watch.HTTPPort < 0 || cfg.Watch.HTTPPort > 65535 {
		return fmt.Errorf("watch.http_port %d is out of range [0, 65535]", cfg.Watch.HTTPPort)
	}
	if cfg.Watch.StreamInterval <= 0 {
		return fmt.Errorf("watch.stream_interval must be positive, got %v", cfg.Watch.StreamInterval)
	}
	for _, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("notify.webhooks: type %q unknown: want slack|teams|http", wh.Type)
		}
	}
	switch cfg.Monitor.Mode {
	case "supervisor", "systemd", "":
	default:
		return fmt.Errorf("monitor.mode %q unknown: want supervisor|systemd", cfg.Monitor.Mode)
	}
	return nil
}
