package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/srcdsmon/internal/logger"
	"github.com/spf13/viper"
)

// DefaultFileName is the optional monitor settings file looked up in the work directory.
const DefaultFileName = "srcdsmon.toml"

// EnvPrefix is prepended to every environment override, e.g. SRCDSMON_MONITOR_POLL_INTERVAL.
const EnvPrefix = "SRCDSMON"

// Config holds the monitor's own settings. The game server's parameters live
// in the startup script (see LoadScript), not here.
type Config struct {
	WorkDir       string              `mapstructure:"-"`
	Monitor       MonitorConfig       `mapstructure:"monitor"`
	RCON          RCONConfig          `mapstructure:"rcon"`
	CrashReporter CrashReporterConfig `mapstructure:"crash_reporter"`
	Log           LogConfig           `mapstructure:"log"`
	ServerLog     ServerLogConfig     `mapstructure:"server_log"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	History       HistoryConfig       `mapstructure:"history"`
	API           APIConfig           `mapstructure:"api"`
}

type MonitorConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	GracePeriod   time.Duration `mapstructure:"grace_period"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	StopStepDelay time.Duration `mapstructure:"stop_step_delay"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout"`
	QuitPause     time.Duration `mapstructure:"quit_pause"`
}

type RCONConfig struct {
	// Address overrides the discovered local IPv4 address.
	Address        string        `mapstructure:"address"`
	Timeout        time.Duration `mapstructure:"timeout"`
	PasswordLength int           `mapstructure:"password_length"`
}

type CrashReporterConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Names are process-name prefixes; empty selects the platform default.
	Names []string `mapstructure:"names"`
}

type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	Color  bool          `mapstructure:"color"`
	File   LogFileConfig `mapstructure:"file"`
}

type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ServerLogConfig controls capture of the child's stdout/stderr.
type ServerLogConfig struct {
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type HistoryConfig struct {
	DSN []string `mapstructure:"dsn"`
}

type APIConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.poll_interval", 3*time.Second)
	v.SetDefault("monitor.grace_period", 120*time.Second)
	v.SetDefault("monitor.settle_delay", 500*time.Millisecond)
	v.SetDefault("monitor.stop_step_delay", 250*time.Millisecond)
	v.SetDefault("monitor.stop_timeout", 5*time.Second)
	v.SetDefault("monitor.quit_pause", 250*time.Millisecond)

	v.SetDefault("rcon.address", "")
	v.SetDefault("rcon.timeout", 5*time.Second)
	v.SetDefault("rcon.password_length", 12)

	v.SetDefault("crash_reporter.enabled", true)
	v.SetDefault("crash_reporter.names", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.color", true)
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", 10)
	v.SetDefault("log.file.max_backups", 3)
	v.SetDefault("log.file.max_age_days", 7)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("server_log.dir", "")
	v.SetDefault("server_log.max_size_mb", 10)
	v.SetDefault("server_log.max_backups", 3)
	v.SetDefault("server_log.max_age_days", 7)
	v.SetDefault("server_log.compress", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9797")

	v.SetDefault("history.dsn", []string{})

	v.SetDefault("api.listen", "")
	v.SetDefault("api.base_path", "/api")
}

// Load reads monitor settings. An explicit path must exist; with an empty path
// srcdsmon.toml in workDir is used when present, otherwise defaults apply.
// Environment variables prefixed with SRCDSMON_ override both.
func Load(path, workDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		candidate := filepath.Join(workDir, DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		v.SetConfigFile(filepath.Clean(path))
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.WorkDir = workDir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that would otherwise break the monitor loop.
func (c *Config) Validate() error {
	var errs []error
	if c.Monitor.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("monitor.poll_interval must be positive, got %s", c.Monitor.PollInterval))
	}
	if c.Monitor.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("monitor.grace_period must not be negative, got %s", c.Monitor.GracePeriod))
	}
	if c.Monitor.SettleDelay < 0 || c.Monitor.StopStepDelay < 0 || c.Monitor.QuitPause < 0 {
		errs = append(errs, errors.New("monitor delays must not be negative"))
	}
	if c.Monitor.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("monitor.stop_timeout must be positive, got %s", c.Monitor.StopTimeout))
	}
	if c.RCON.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("rcon.timeout must be positive, got %s", c.RCON.Timeout))
	}
	if c.RCON.PasswordLength < 8 {
		errs = append(errs, fmt.Errorf("rcon.password_length must be at least 8, got %d", c.RCON.PasswordLength))
	}
	if !logger.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// LoggerConfig converts the log section for logger.New.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Color:  c.Log.Color,
		File: logger.FileConfig{
			Path:       c.resolve(c.Log.File.Path),
			MaxSizeMB:  c.Log.File.MaxSizeMB,
			MaxBackups: c.Log.File.MaxBackups,
			MaxAgeDays: c.Log.File.MaxAgeDays,
			Compress:   c.Log.File.Compress,
		},
	}
}

// ProcessLogConfig converts the server_log section for child output capture.
func (c *Config) ProcessLogConfig() logger.ProcessConfig {
	return logger.ProcessConfig{
		Dir:        c.resolve(c.ServerLog.Dir),
		MaxSizeMB:  c.ServerLog.MaxSizeMB,
		MaxBackups: c.ServerLog.MaxBackups,
		MaxAgeDays: c.ServerLog.MaxAgeDays,
		Compress:   c.ServerLog.Compress,
	}
}

// resolve makes a relative path relative to the work directory.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.WorkDir == "" {
		return p
	}
	return filepath.Join(c.WorkDir, p)
}
