// Package config resolves the capture settings from command-line flags and an
// optional YAML file using viper.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/mcastdump/internal/core"
)

// Keys understood by Load. Flags are bound to the same names.
const (
	KeyAddress = "address"
	KeyPort    = "port"
	KeyTime    = "time"
	KeyOutput  = "output"

	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyLogFilePath       = "log.file.path"
	KeyLogFileMaxSizeMB  = "log.file.max_size_mb"
	KeyLogFileMaxBackups = "log.file.max_backups"
	KeyLogFileMaxAgeDays = "log.file.max_age_days"
	KeyLogFileCompress   = "log.file.compress"

	KeyMetricsListen = "metrics.listen"
	KeyMetricsPath   = "metrics.path"
)

// StdoutPath selects standard output as the sink.
const StdoutPath = "-"

// Config is the resolved, validated capture configuration.
type Config struct {
	Address string        `mapstructure:"address" yaml:"address"`
	Port    int           `mapstructure:"port"    yaml:"port"`
	Time    int           `mapstructure:"time"    yaml:"time"` // seconds, 0 = unbounded
	Output  string        `mapstructure:"output"  yaml:"output,omitempty"`
	Log     LogConfig     `mapstructure:"log"     yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	group netip.Addr
}

// LogConfig contains diagnostic logging settings.
type LogConfig struct {
	Level  string        `mapstructure:"level"  yaml:"level"`  // trace / debug / info / warn / error
	Format string        `mapstructure:"format" yaml:"format"` // text / json / pattern
	File   FileLogConfig `mapstructure:"file"   yaml:"file,omitempty"`
}

// FileLogConfig configures the optional rotated log file.
type FileLogConfig struct {
	Path       string `mapstructure:"path"         yaml:"path,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb,omitempty"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups,omitempty"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days,omitempty"`
	Compress   bool   `mapstructure:"compress"     yaml:"compress,omitempty"`
}

// MetricsConfig contains Prometheus endpoint settings. An empty Listen
// disables the endpoint.
type MetricsConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen,omitempty"`
	Path   string `mapstructure:"path"   yaml:"path,omitempty"`
}

// required lists the keys that must be supplied, with the flag that supplies them.
var required = []struct{ key, flag string }{
	{KeyAddress, "-a"},
	{KeyPort, "-p"},
	{KeyTime, "-t"},
}

// SetDefaults registers the defaults of the optional keys.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogFileMaxSizeMB, 100)
	v.SetDefault(KeyLogFileMaxBackups, 3)
	v.SetDefault(KeyLogFileMaxAgeDays, 7)
	v.SetDefault(KeyMetricsPath, "/metrics")
}

// ReadFile merges a YAML config file into v. Values set by flags still win.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read config file %s: %w", core.ErrArgument, path, err)
	}
	return nil
}

// Load checks that the required keys are present, unmarshals v and validates
// the result. Every returned error wraps core.ErrArgument.
func Load(v *viper.Viper) (*Config, error) {
	var missing []string
	for _, r := range required {
		if !v.IsSet(r.key) {
			missing = append(missing, r.flag)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required argument(s) %s", core.ErrArgument, strings.Join(missing, ", "))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrArgument, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and resolves the group address.
func (c *Config) Validate() error {
	group, err := ParseGroup(c.Address)
	if err != nil {
		return err
	}
	c.group = group

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range 0-65535", core.ErrArgument, c.Port)
	}
	if c.Time < 0 {
		return fmt.Errorf("%w: time %d must not be negative", core.ErrArgument, c.Time)
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrArgument, c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json", "pattern":
	default:
		return fmt.Errorf("%w: invalid log format: %s (must be text/json/pattern)", core.ErrArgument, c.Log.Format)
	}

	if c.Metrics.Listen != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics path %q must start with /", core.ErrArgument, c.Metrics.Path)
	}
	return nil
}

// ParseGroup accepts a dotted-decimal IPv4 address only. Whether the address
// is a multicast group is left to the kernel at join time.
func ParseGroup(s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, fmt.Errorf("%w: multicast address is empty", core.ErrArgument)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: %q is not a dotted-decimal IPv4 address", core.ErrArgument, s)
	}
	return addr, nil
}

// Group returns the validated group address.
func (c *Config) Group() netip.Addr {
	return c.group
}

// UDPPort returns the validated port.
func (c *Config) UDPPort() uint16 {
	return uint16(c.Port)
}

// Lifetime returns the capture lifetime; zero means no deadline.
func (c *Config) Lifetime() time.Duration {
	return time.Duration(c.Time) * time.Second
}

// OutputIsStdout reports whether payloads go to standard output.
func (c *Config) OutputIsStdout() bool {
	return c.Output == "" || c.Output == StdoutPath
}
