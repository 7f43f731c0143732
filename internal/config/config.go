package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jordanhubbard/volition/internal/drive"
)

// Config is the full configuration for the drive engine and its daemon.
type Config struct {
	// StatePath is where the persisted drive state document lives.
	StatePath string `yaml:"state_path"`

	// LockPath is the cycle lock file; defaults to StatePath + ".lock".
	LockPath string `yaml:"lock_path"`

	// FirstLightMarker gates first-light drives: they are instantiated only
	// once this file exists. Empty means the gate is open.
	FirstLightMarker string `yaml:"first_light_marker"`

	Engine     EngineConfig     `yaml:"engine"`
	QuietHours QuietHoursConfig `yaml:"quiet_hours"`
	Launcher   LauncherConfig   `yaml:"launcher"`
	Events     EventsConfig     `yaml:"events"`
	Redis      RedisConfig      `yaml:"redis"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Daemon     DaemonConfig     `yaml:"daemon"`

	// Drives holds external per-drive overrides, applied on each load with
	// individual validation.
	Drives map[string]drive.Override `yaml:"drives"`
}

// EngineConfig tunes the pressure model and scheduler.
type EngineConfig struct {
	MaxPressureRatio    float64            `yaml:"max_pressure_ratio"`
	QuietRateFactor     float64            `yaml:"quiet_rate_factor"`
	ThresholdRatios     map[string]float64 `yaml:"threshold_ratios"`
	CooldownMinutes     int                `yaml:"cooldown_minutes"`
	StaleTriggerMinutes int                `yaml:"stale_trigger_minutes"`
	DefaultBumpHours    float64            `yaml:"default_bump_hours"`

	// LaunchDuringQuietHours lets the scheduler ignore the quiet-hours gate
	// (accumulation throttling still applies).
	LaunchDuringQuietHours bool `yaml:"launch_during_quiet_hours"`
}

// QuietHoursConfig is a daily window in which pressure accumulates slowly
// and triggering is normally suppressed. The window may cross midnight.
type QuietHoursConfig struct {
	Enabled bool   `yaml:"enabled"`
	Start   string `yaml:"start"` // "23:00"
	End     string `yaml:"end"`   // "07:00"
}

// Active reports whether t falls inside the quiet window.
func (q QuietHoursConfig) Active(t time.Time) bool {
	if !q.Enabled {
		return false
	}
	start, err1 := parseMinuteOfDay(q.Start)
	end, err2 := parseMinuteOfDay(q.End)
	if err1 != nil || err2 != nil || start == end {
		return false
	}

	now := t.Hour()*60 + t.Minute()
	if start < end {
		return now >= start && now < end
	}
	// Window wraps midnight.
	return now >= start || now < end
}

func parseMinuteOfDay(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// LauncherConfig configures the session transports.
type LauncherConfig struct {
	Command CommandConfig `yaml:"command"`
	Gateway GatewayConfig `yaml:"gateway"`
}

// CommandConfig is the primary, local-command transport.
type CommandConfig struct {
	Path           string   `yaml:"path"`
	Args           []string `yaml:"args"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// GatewayConfig is the fallback, remote HTTP transport.
type GatewayConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	SigningSecret  string `yaml:"signing_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// EventsConfig configures the optional NATS event publisher.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// RedisConfig switches the cycle lock to Redis when Addr is set.
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	LockKey        string `yaml:"lock_key"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

// MetricsConfig configures the Prometheus endpoint served by the daemon.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// DaemonConfig drives the cron schedules in daemon mode.
type DaemonConfig struct {
	TickSchedule    string  `yaml:"tick_schedule"`
	CleanupSchedule string  `yaml:"cleanup_schedule"`
	TickHours       float64 `yaml:"tick_hours"`
}

// Default returns the default configuration. State lives under
// XDG_DATA_HOME (or ~/.local/share) like the rest of the toolkit.
func Default() (*Config, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	dataDir := filepath.Join(dataHome, "volition")
	statePath := filepath.Join(dataDir, "drives.json")

	return &Config{
		StatePath: statePath,
		LockPath:  statePath + ".lock",
		Engine: EngineConfig{
			MaxPressureRatio:    drive.DefaultMaxPressureRatio,
			QuietRateFactor:     drive.DefaultQuietRateFactor,
			ThresholdRatios:     drive.DefaultThresholdRatios(),
			CooldownMinutes:     30,
			StaleTriggerMinutes: 60,
			DefaultBumpHours:    2,
		},
		QuietHours: QuietHoursConfig{
			Enabled: true,
			Start:   "23:00",
			End:     "07:00",
		},
		Launcher: LauncherConfig{
			Command: CommandConfig{TimeoutSeconds: 30},
			Gateway: GatewayConfig{TimeoutSeconds: 30},
		},
		Events: EventsConfig{
			SubjectPrefix: "volition",
		},
		Redis: RedisConfig{
			LockKey:        "volition:cycle-lock",
			LockTTLSeconds: 600,
		},
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
		Daemon: DaemonConfig{
			TickSchedule:    "@every 30m",
			CleanupSchedule: "@every 10m",
			TickHours:       0.5,
		},
	}, nil
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error: the defaults stand. Secrets may arrive via environment instead of
// the file.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if token := os.Getenv("VOLITION_GATEWAY_TOKEN"); token != "" {
		cfg.Launcher.Gateway.Token = token
	}
	if secret := os.Getenv("VOLITION_GATEWAY_SECRET"); secret != "" {
		cfg.Launcher.Gateway.SigningSecret = secret
	}
	if pw := os.Getenv("VOLITION_REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}

	if cfg.LockPath == "" {
		cfg.LockPath = cfg.StatePath + ".lock"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StatePath == "" {
		return fmt.Errorf("state_path must be set")
	}
	if c.Engine.MaxPressureRatio <= 0 {
		return fmt.Errorf("engine.max_pressure_ratio must be positive")
	}
	if c.Engine.QuietRateFactor < 0 || c.Engine.QuietRateFactor > 1 {
		return fmt.Errorf("engine.quiet_rate_factor must be in [0, 1]")
	}
	if c.Engine.CooldownMinutes < 0 {
		return fmt.Errorf("engine.cooldown_minutes must be non-negative")
	}
	if c.Engine.StaleTriggerMinutes <= 0 {
		return fmt.Errorf("engine.stale_trigger_minutes must be positive")
	}
	if c.QuietHours.Enabled {
		if _, err := parseMinuteOfDay(c.QuietHours.Start); err != nil {
			return fmt.Errorf("quiet_hours.start: %w", err)
		}
		if _, err := parseMinuteOfDay(c.QuietHours.End); err != nil {
			return fmt.Errorf("quiet_hours.end: %w", err)
		}
	}
	return nil
}

// FirstLightDone reports whether the first-light marker exists. With no
// marker configured the gate is open.
func (c *Config) FirstLightDone() bool {
	if c.FirstLightMarker == "" {
		return true
	}
	_, err := os.Stat(c.FirstLightMarker)
	return err == nil
}
