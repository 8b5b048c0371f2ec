package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/croftlabs/croft/pkg/types"
)

// EnvMasterKey overrides secrets.masterKey when set. Keeping the key out
// of config files is the expected production setup.
const EnvMasterKey = "CROFT_MASTER_KEY"

// Config is the full control-plane configuration. Durations are expressed
// in milliseconds to keep the file format free of unit suffixes.
type Config struct {
	Log             Log             `yaml:"log"`
	Scheduler       Scheduler       `yaml:"scheduler"`
	Node            Node            `yaml:"node"`
	Namespace       Namespace       `yaml:"namespace"`
	Secrets         Secrets         `yaml:"secrets"`
	Auth            Auth            `yaml:"auth"`
	Metrics         Metrics         `yaml:"metrics"`
	Store           Store           `yaml:"store"`
	PriorityClasses []PriorityClass `yaml:"priorityClasses"`
}

// Log configures the global logger.
type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Scheduler configures pod placement.
type Scheduler struct {
	MaxRetries       int                    `yaml:"maxRetries"`
	DefaultPriority  int                    `yaml:"defaultPriority"`
	EnablePreemption bool                   `yaml:"enablePreemption"`
	SchedulingPolicy types.SchedulingPolicy `yaml:"schedulingPolicy"`
}

// Node configures heartbeat liveness monitoring.
type Node struct {
	HeartbeatTimeoutMs        int64 `yaml:"heartbeatTimeoutMs"`
	HeartbeatCheckIntervalMs  int64 `yaml:"heartbeatCheckIntervalMs"`
	EnableHeartbeatMonitoring bool  `yaml:"enableHeartbeatMonitoring"`
}

// HeartbeatTimeout returns the liveness timeout as a duration.
func (n Node) HeartbeatTimeout() time.Duration {
	return time.Duration(n.HeartbeatTimeoutMs) * time.Millisecond
}

// HeartbeatCheckInterval returns the sweep interval as a duration.
func (n Node) HeartbeatCheckInterval() time.Duration {
	return time.Duration(n.HeartbeatCheckIntervalMs) * time.Millisecond
}

// Namespace configures namespace bootstrap.
type Namespace struct {
	InitializeDefaults bool `yaml:"initializeDefaults"`
}

// Secrets configures the secret manager. MasterKey may be any passphrase;
// it is stretched to a 256-bit key before use. The CROFT_MASTER_KEY
// environment variable takes precedence over the file value.
type Secrets struct {
	MasterKey        string `yaml:"masterKey"`
	DefaultNamespace string `yaml:"defaultNamespace"`
}

// Auth configures session handling.
type Auth struct {
	EnableAutoRefresh         bool  `yaml:"enableAutoRefresh"`
	AutoRefreshIntervalMs     int64 `yaml:"autoRefreshIntervalMs"`
	SessionRefreshThresholdMs int64 `yaml:"sessionRefreshThresholdMs"`
}

// AutoRefreshInterval returns the refresh timer interval as a duration.
func (a Auth) AutoRefreshInterval() time.Duration {
	return time.Duration(a.AutoRefreshIntervalMs) * time.Millisecond
}

// SessionRefreshThreshold returns the remaining-lifetime threshold below
// which a session refresh is attempted.
func (a Auth) SessionRefreshThreshold() time.Duration {
	return time.Duration(a.SessionRefreshThresholdMs) * time.Millisecond
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

// Store configures state persistence. An empty path disables persistence
// entirely; the cluster then lives in memory only.
type Store struct {
	Path string `yaml:"path"`
}

// PriorityClass seeds one priority class at startup.
type PriorityClass struct {
	Name             string                 `yaml:"name"`
	Value            int                    `yaml:"value"`
	PreemptionPolicy types.PreemptionPolicy `yaml:"preemptionPolicy"`
}

// Default returns the configuration used when no file is given. Every
// value here is safe for a single-process development cluster.
func Default() *Config {
	return &Config{
		Log: Log{
			Level: "info",
			JSON:  true,
		},
		Scheduler: Scheduler{
			MaxRetries:       3,
			DefaultPriority:  0,
			EnablePreemption: false,
			SchedulingPolicy: types.PolicySpread,
		},
		Node: Node{
			HeartbeatTimeoutMs:        30_000,
			HeartbeatCheckIntervalMs:  10_000,
			EnableHeartbeatMonitoring: true,
		},
		Namespace: Namespace{
			InitializeDefaults: true,
		},
		Secrets: Secrets{
			DefaultNamespace: "default",
		},
		Auth: Auth{
			EnableAutoRefresh:         true,
			AutoRefreshIntervalMs:     60_000,
			SessionRefreshThresholdMs: 900_000,
		},
		Metrics: Metrics{
			Enabled:    true,
			ListenAddr: ":9200",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing masterKey is
// filled from CROFT_MASTER_KEY when that is set.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if key := os.Getenv(EnvMasterKey); key != "" {
		cfg.Secrets.MasterKey = key
	}
}

// Validate checks every field for internal consistency. It is called by
// Load but exposed for callers that build configs programmatically.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be debug, info, warn, or error", c.Log.Level)
	}

	if !c.Scheduler.SchedulingPolicy.Valid() {
		return fmt.Errorf("scheduler.schedulingPolicy %q: unknown policy", c.Scheduler.SchedulingPolicy)
	}
	if c.Scheduler.MaxRetries < 0 {
		return fmt.Errorf("scheduler.maxRetries %d: must be >= 0", c.Scheduler.MaxRetries)
	}

	if c.Node.HeartbeatTimeoutMs <= 0 {
		return fmt.Errorf("node.heartbeatTimeoutMs %d: must be > 0", c.Node.HeartbeatTimeoutMs)
	}
	if c.Node.HeartbeatCheckIntervalMs <= 0 {
		return fmt.Errorf("node.heartbeatCheckIntervalMs %d: must be > 0", c.Node.HeartbeatCheckIntervalMs)
	}

	if c.Secrets.DefaultNamespace == "" {
		return fmt.Errorf("secrets.defaultNamespace: must not be empty")
	}

	if c.Auth.AutoRefreshIntervalMs <= 0 {
		return fmt.Errorf("auth.autoRefreshIntervalMs %d: must be > 0", c.Auth.AutoRefreshIntervalMs)
	}
	if c.Auth.SessionRefreshThresholdMs <= 0 {
		return fmt.Errorf("auth.sessionRefreshThresholdMs %d: must be > 0", c.Auth.SessionRefreshThresholdMs)
	}

	seen := make(map[string]bool, len(c.PriorityClasses))
	for _, pc := range c.PriorityClasses {
		if pc.Name == "" {
			return fmt.Errorf("priorityClasses: name must not be empty")
		}
		if seen[pc.Name] {
			return fmt.Errorf("priorityClasses: duplicate name %q", pc.Name)
		}
		seen[pc.Name] = true
		if pc.PreemptionPolicy != "" &&
			pc.PreemptionPolicy != types.PreemptLowerPriority &&
			pc.PreemptionPolicy != types.PreemptNever {
			return fmt.Errorf("priorityClasses %q: unknown preemptionPolicy %q", pc.Name, pc.PreemptionPolicy)
		}
	}

	return nil
}

// Dump renders the configuration as YAML, used by the print-default
// command. The master key is redacted.
func (c *Config) Dump() (string, error) {
	dup := *c
	if dup.Secrets.MasterKey != "" {
		dup.Secrets.MasterKey = "<redacted>"
	}
	out, err := yaml.Marshal(&dup)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(out), nil
}
