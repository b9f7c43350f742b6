package main

import (
	"fmt"
	"log/slog"

	"github.com/ashureev/coin-gallery/internal/export"
	"github.com/ashureev/coin-gallery/internal/metadata"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the coin metadata as JSON, YAML or Parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			md := metadata.NewStore(cfg.MetadataFile)
			idx, err := md.Load()
			if err != nil {
				return fmt.Errorf("%s: %w", md.Path(), err)
			}
			records := idx.Records()

			if out == "" || out == "-" {
				return export.Write(cmd.OutOrStdout(), f, records)
			}
			if err := export.WriteFile(out, f, records); err != nil {
				return err
			}
			slog.Info("Metadata exported", "format", f, "records", len(records), "path", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSON), "output format: json, yaml or parquet")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}
