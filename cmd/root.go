// Package cmd implements the mcastdump command line using cobra.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"firestige.xyz/mcastdump/internal/config"
	"firestige.xyz/mcastdump/internal/core"
)

// flag names bound to config keys
var flagKeys = map[string]string{
	"address":        config.KeyAddress,
	"port":           config.KeyPort,
	"time":           config.KeyTime,
	"output":         config.KeyOutput,
	"log-level":      config.KeyLogLevel,
	"log-format":     config.KeyLogFormat,
	"log-file":       config.KeyLogFilePath,
	"metrics-listen": config.KeyMetricsListen,
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcastdump -a <group> -p <port> -t <seconds> [-o <file>]",
		Short: "Dump the raw payloads of an IPv4 multicast group",
		Long: `mcastdump joins an IPv4 multicast group on a UDP port and writes the payload
of every received datagram, verbatim and in arrival order, to standard output
or a file. It stops when the lifetime elapses or on SIGINT/SIGTERM.

Examples:
  mcastdump -a 239.1.1.1 -p 5000 -t 10 -o feed.bin   # capture for 10 seconds
  mcastdump -a 239.1.1.1 -p 5000 -t 0 > feed.bin     # capture until interrupted
  mcastdump -c capture.yml validate                  # check a config file`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDump,
	}

	pf := root.PersistentFlags()
	pf.StringP("address", "a", "", "multicast IPv4 group, dotted decimal (required)")
	pf.IntP("port", "p", 0, "UDP port 0-65535 (required)")
	pf.IntP("time", "t", 0, "lifetime in seconds, 0 runs until interrupted (required)")
	pf.StringP("output", "o", "", `output file; absent or "-" writes to standard output`)
	pf.StringP("config", "c", "", "optional YAML config file, flags take precedence")
	pf.String("log-level", "warn", "log level: trace|debug|info|warn|error")
	pf.String("log-format", "text", "log format: text|json|pattern")
	pf.String("log-file", "", "also write diagnostics to this rotated file")
	pf.String("metrics-listen", "", "address for the Prometheus endpoint, empty disables it")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", core.ErrArgument, err)
	})

	root.AddCommand(newValidateCmd())
	return root
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", core.ErrArgument, args[0])
	}
	return nil
}

// resolveConfig merges the optional config file with the flags the user set
// and validates the result.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)

	flags := cmd.Flags()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("%w: bind flag %s: %w", core.ErrArgument, name, err)
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		if err := config.ReadFile(v, path); err != nil {
			return nil, err
		}
	}
	return config.Load(v)
}

// Execute runs the command line and returns the first failure. Argument
// errors are followed by the usage text on stderr.
func Execute() error {
	return execute(context.Background(), newRootCmd(), nil)
}

func execute(ctx context.Context, root *cobra.Command, args []string) error {
	if args != nil {
		root.SetArgs(args)
	}
	cmd, err := root.ExecuteContextC(ctx)
	if err != nil && errors.Is(err, core.ErrArgument) {
		fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
	}
	return err
}
