// Package log provides the process logger, a logrus adapter configured from
// config.LogConfig. Diagnostics always go to stderr because stdout may carry
// captured payloads.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"

	"firestige.xyz/mcastdump/internal/config"
)

const (
	defaultPattern = "%time [%level] %msg %field\n"
	timeLayout     = "2006-01-02 15:04:05.000"
)

type Logger interface {
	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
}

var (
	mu     sync.RWMutex
	logger Logger = newDefault()
	closer io.Closer
)

// GetLogger returns the process logger. Before Init it logs warnings and
// errors to stderr in text format.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the process logger according to cfg. A previously opened
// log file is closed.
func Init(cfg config.LogConfig) error {
	l, c, err := build(cfg, os.Stderr)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	logger = &logrusAdapter{entry: logrus.NewEntry(l)}
	closer = c
	return nil
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

func newDefault() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(textFormatter())
	return &logrusAdapter{entry: logrus.NewEntry(l)}
}

// build creates a logrus logger writing to console and, when configured, a
// rotated file. The returned closer is nil without a file.
func build(cfg config.LogConfig, console io.Writer) (*logrus.Logger, io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	var f logrus.Formatter
	switch strings.ToLower(cfg.Format) {
	case "text", "":
		f = textFormatter()
	case "json":
		f = &logrus.JSONFormatter{TimestampFormat: timeLayout}
	case "pattern":
		f = &formatter{pattern: defaultPattern, time: timeLayout}
	default:
		return nil, nil, fmt.Errorf("unsupported log format: %s (must be text, json or pattern)", cfg.Format)
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(f)

	var c io.Closer
	out := console
	if cfg.File.Path != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,  // megabytes
			MaxBackups: cfg.File.MaxBackups, // number of backups
			MaxAge:     cfg.File.MaxAgeDays, // days
			Compress:   cfg.File.Compress,
		}
		out = io.MultiWriter(console, file)
		c = file
	}
	l.SetOutput(out)

	return l, c, nil
}

func textFormatter() logrus.Formatter {
	return &prefixed.TextFormatter{
		DisableColors:   true,
		TimestampFormat: timeLayout,
		FullTimestamp:   true,
		ForceFormatting: true,
	}
}

func parseLevel(s string) (logrus.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.WarnLevel, fmt.Errorf("unknown level: %q", s)
	}
}
