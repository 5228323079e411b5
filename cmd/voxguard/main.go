// Command voxguard runs the voice feedback compliance service and its
// one-shot operator commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voxguard/internal/platform/config"
	"voxguard/internal/platform/logger"
	"voxguard/internal/platform/metrics"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "voxguard",
		Short:         "Privacy compliance core for voice feedback",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "voxguard.yaml",
		"path to the YAML config file (VOXGUARD_* env vars override it)")

	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(sweepCmd(opts))
	rootCmd.AddCommand(retentionCmd(opts))
	rootCmd.AddCommand(checkCmd(opts))
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

// bootstrap loads config and builds the app. The returned context is
// cancelled on SIGINT or SIGTERM.
func bootstrap(cmd *cobra.Command, opts *rootOptions) (context.Context, *app, func(), error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	reg := metrics.NewRegistry()
	a, err := newApp(ctx, cfg, log, reg)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}
	return ctx, a, func() {
		a.Close()
		stop()
	}, nil
}
