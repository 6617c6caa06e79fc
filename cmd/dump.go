package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/mcastdump/internal/core"
	"firestige.xyz/mcastdump/internal/dumper"
	"firestige.xyz/mcastdump/internal/log"
)

func runDump(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("%w: %w", core.ErrArgument, err)
	}
	defer log.Close()

	log.GetLogger().WithFields(map[string]interface{}{
		"group":    cfg.Group().String(),
		"port":     cfg.UDPPort(),
		"lifetime": cfg.Lifetime().String(),
		"output":   cfg.Output,
	}).Debug("configuration resolved")

	d := dumper.New(cfg)
	if err := d.Start(); err != nil {
		return err
	}
	return d.Run(cmd.Context())
}
