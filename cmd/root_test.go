package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/mcastdump/internal/config"
	"firestige.xyz/mcastdump/internal/core"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := execute(context.Background(), root, args)
	return stdout.String(), stderr.String(), err
}

func TestValidate_Flags(t *testing.T) {
	stdout, _, err := run(t, "validate", "-a", "239.1.1.1", "-p", "5000", "-t", "2", "-o", "feed.bin")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, "239.1.1.1", cfg.Address)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, 2, cfg.Time)
	assert.Equal(t, "feed.bin", cfg.Output)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestValidate_ConfigFileWithOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.yml")
	content := `
address: 239.2.2.2
port: 6000
time: 30
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	stdout, _, err := run(t, "validate", "-c", path, "-t", "5")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, "239.2.2.2", cfg.Address)
	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, 5, cfg.Time, "flag must override the file")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing time", []string{"-a", "239.1.1.1", "-p", "5000"}},
		{"missing address", []string{"-p", "5000", "-t", "1"}},
		{"missing port", []string{"-a", "239.1.1.1", "-t", "1"}},
		{"no arguments", []string{}},
		{"port out of range", []string{"-a", "239.1.1.1", "-p", "70000", "-t", "1"}},
		{"negative time", []string{"-a", "239.1.1.1", "-p", "5000", "-t", "-1"}},
		{"port not a number", []string{"-a", "239.1.1.1", "-p", "http", "-t", "1"}},
		{"hostname address", []string{"-a", "localhost", "-p", "5000", "-t", "1"}},
		{"unknown flag", []string{"-a", "239.1.1.1", "-p", "5000", "-t", "1", "--bogus"}},
		{"positional argument", []string{"-a", "239.1.1.1", "-p", "5000", "-t", "1", "extra"}},
		{"bad log level", []string{"-a", "239.1.1.1", "-p", "5000", "-t", "1", "--log-level", "loud"}},
		{"missing config file", []string{"-c", "/nonexistent/capture.yml", "-t", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := run(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrArgument), "got %v", err)
			assert.Contains(t, stderr, "Usage:")
		})
	}
}

func TestValidate_ArgumentError(t *testing.T) {
	stdout, stderr, err := run(t, "validate", "-a", "239.1.1.1", "-p", "5000")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrArgument)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "validate")
}

func TestDump_SinkOpenFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing", "dump.bin")
	_, stderr, err := run(t, "-a", "239.255.42.97", "-p", "0", "-t", "1", "-o", out)
	require.Error(t, err)
	if errors.Is(err, core.ErrJoin) {
		t.Skipf("multicast join unavailable: %v", err)
	}
	assert.ErrorIs(t, err, core.ErrSinkOpen)
	assert.NotContains(t, stderr, "Usage:", "runtime failures do not print usage")
}

func TestDump_Lifetime(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping multicast test in short mode")
	}
	out := filepath.Join(t.TempDir(), "dump.bin")
	_, _, err := run(t, "-a", "239.255.42.96", "-p", "0", "-t", "1", "-o", out)
	if errors.Is(err, core.ErrJoin) {
		t.Skipf("multicast join unavailable: %v", err)
	}
	require.NoError(t, err)

	fi, err := os.Stat(out)
	require.NoError(t, err)
	assert.True(t, fi.Mode().IsRegular())
}
