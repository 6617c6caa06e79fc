package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Resolve and validate the configuration without opening a socket",
		Long: `Resolve the configuration from the config file and flags, validate it and
print the result as YAML. No socket is created and no output file is touched.

Examples:
  mcastdump validate -a 239.1.1.1 -p 5000 -t 10
  mcastdump validate -c capture.yml -t 30`,
		Args: noArgs,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	return enc.Close()
}
