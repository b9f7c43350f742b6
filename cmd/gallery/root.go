package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ashureev/coin-gallery/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Coin photo gallery with password-gated metadata editing",
		Long: `Gallery serves a directory of coin photographs, paired front and back,
together with their catalogue metadata.

Visitors browse and filter the collection. An editor who knows the edit
password can correct the metadata of individual coins.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// A missing .env file is fine: the environment is used as is.
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (overrides CONFIG_FILE)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVerifyCmd(opts))
	cmd.AddCommand(newExportCmd(opts))

	return cmd
}

// load reads the configuration and installs the JSON logger writing to w.
func (o *rootOptions) load(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}
