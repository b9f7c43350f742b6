package main

import (
	"fmt"
	"io"

	"github.com/ashureev/coin-gallery/internal/catalog"
	"github.com/ashureev/coin-gallery/internal/metadata"
	"github.com/spf13/cobra"
)

// verifyReport compares the metadata file against the pictures directory.
type verifyReport struct {
	Coins       int
	Records     int
	HumanEdited int
	// Records whose id has no photographs.
	Orphans []int
	// Coins without a metadata record.
	Unanalyzed []int
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the metadata file against the pictures directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report, err := verify(cfg.PicturesDir, metadata.NewStore(cfg.MetadataFile))
			if err != nil {
				return err
			}
			report.print(cmd.OutOrStdout())
			return nil
		},
	}
}

func verify(picturesDir string, md *metadata.Store) (verifyReport, error) {
	cat, err := catalog.Scan(picturesDir)
	if err != nil {
		return verifyReport{}, err
	}
	idx, err := md.Load()
	if err != nil {
		return verifyReport{}, fmt.Errorf("%s: %w", md.Path(), err)
	}

	report := verifyReport{Coins: cat.Len(), Records: len(idx)}
	for _, rec := range idx.Records() {
		if !rec.AIGenerated {
			report.HumanEdited++
		}
		if _, ok := cat.Coin(rec.ID); !ok {
			report.Orphans = append(report.Orphans, rec.ID)
		}
	}
	for _, coin := range cat.Coins() {
		if _, ok := idx[coin.ID]; !ok {
			report.Unanalyzed = append(report.Unanalyzed, coin.ID)
		}
	}
	return report, nil
}

func (r verifyReport) print(w io.Writer) {
	fmt.Fprintf(w, "coins:          %d\n", r.Coins)
	fmt.Fprintf(w, "records:        %d\n", r.Records)
	fmt.Fprintf(w, "human edited:   %d\n", r.HumanEdited)
	fmt.Fprintf(w, "without images: %s\n", formatIDs(r.Orphans))
	fmt.Fprintf(w, "not analyzed:   %s\n", formatIDs(r.Unanalyzed))
}

func formatIDs(ids []int) string {
	if len(ids) == 0 {
		return "none"
	}
	return fmt.Sprint(ids)
}
