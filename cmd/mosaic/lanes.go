package main

import (
	"fmt"

	"github.com/Veraticus/mosaic-money/internal/cli"
	"github.com/spf13/cobra"
)

func lanesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lanes",
		Short: "List the specialist lane registry",
		Long: `List the specialist lanes that routing can send a transaction to, and
which later stages each lane allows. Set routing.registry_path to load a
custom registry instead of the built-in one.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}
			state := "disabled"
			if cfg.RoutingEnabled {
				state = "enabled"
			}
			fmt.Println(cli.FormatTitle("Specialist lanes (routing " + state + ")"))
			fmt.Println(cli.RenderLanes(registry.Lanes()))
			return nil
		},
	}
}
