package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/isarlink/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or check client config files",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		kind  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config template",
		Long:  "Write a client (config.toml) or remoting (remoting-config.cfg) template.\nExisting files are kept unless --force is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.toml"
			if kind == "remoting" {
				path = config.DefaultRemotingConfig
			}
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteTemplate(path, kind, force); err != nil {
				return fmt.Errorf("config init: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s template to %s\n", kind, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "client", "template kind (client|remoting)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Strictly validate a client config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.toml"
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := config.ValidateFile(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s ok\n", path)
			fmt.Fprintf(out, "  device_class    %s\n", cfg.DeviceClass)
			fmt.Fprintf(out, "  touch_queue     %d (%s)\n", cfg.TouchQueueCapacity, cfg.TouchOverflow)
			fmt.Fprintf(out, "  raycast_timeout %s\n", cfg.RaycastTimeout)
			fmt.Fprintf(out, "  plane_detection %s\n", cfg.PlaneDetection)
			fmt.Fprintf(out, "  images          %d\n", len(cfg.Images))
			return nil
		},
	}
}
