package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/mcastdump/internal/config"
)

func TestParseLevelValid(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"trace", logrus.TraceLevel},
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"ERROR", logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestParseLevelInvalid(t *testing.T) {
	for _, input := range []string{"invalid", "fatal", ""} {
		t.Run(input, func(t *testing.T) {
			_, err := parseLevel(input)
			assert.Error(t, err)
		})
	}
}

func TestBuildInvalidFormat(t *testing.T) {
	_, _, err := build(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported log format")
}

func TestBuildInvalidLevel(t *testing.T) {
	_, _, err := build(config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, c, err := build(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)
	assert.Nil(t, c)

	log := &logrusAdapter{entry: logrus.NewEntry(l)}
	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
	assert.False(t, log.IsDebugEnabled())
	assert.False(t, log.IsTraceEnabled())
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := build(config.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	log := &logrusAdapter{entry: logrus.NewEntry(l)}
	log.WithField("group", "239.1.1.1").WithFields(map[string]interface{}{"port": 5000}).Info("joined")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "joined", decoded["msg"])
	assert.Equal(t, "239.1.1.1", decoded["group"])
	assert.Equal(t, float64(5000), decoded["port"])
}

func TestPatternFormat(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := build(config.LogConfig{Level: "info", Format: "pattern"}, &buf)
	require.NoError(t, err)

	log := &logrusAdapter{entry: logrus.NewEntry(l)}
	log.WithError(errors.New("boom")).WithField("a", 1).Warn("capture stopped")

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "[WARNING] capture stopped a=1 error=boom")
}

func TestFormatterFieldsSorted(t *testing.T) {
	f := &formatter{pattern: "%msg %field", time: time.RFC3339}
	entry := &logrus.Entry{
		Message: "m",
		Data:    logrus.Fields{"z": 1, "b": "two", "a": 3.5},
		Time:    time.Unix(0, 0),
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "m a=3.5 b=two z=1", string(out))
}

func TestInitWithFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "mcastdump.log")

	err := Init(config.LogConfig{
		Level:  "info",
		Format: "text",
		File: config.FileLogConfig{
			Path:       logPath,
			MaxSizeMB:  10,
			MaxBackups: 1,
			MaxAgeDays: 1,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close() })

	GetLogger().Info("file message")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file message")
}

func TestCloseWithoutFile(t *testing.T) {
	require.NoError(t, Init(config.LogConfig{Level: "warn", Format: "text"}))
	assert.NoError(t, Close())
	assert.NoError(t, Close())
}
