package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardforge/cardforge/internal/config"
	"github.com/cardforge/cardforge/internal/imagecache"
	"github.com/cardforge/cardforge/internal/render"
	"github.com/cardforge/cardforge/internal/units"
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Render a single card with a synthesized bleed border",
	Long: `Render one card image into a bled, print-ready PNG.

The input may be a local file path or an http(s) URL. By default the
export-resolution image is written; --display writes the preview-scale
image instead.`,
	RunE: runCard,
}

func init() {
	rootCmd.AddCommand(cardCmd)

	cardCmd.Flags().String("in", "", "Input card image, file path or URL (required)")
	cardCmd.Flags().String("out", "card.png", "Output PNG path")
	cardCmd.Flags().Float64("bleed", 3.0, "Bleed width in mm")
	cardCmd.Flags().Int("dpi", 0, "Export DPI (0 = configured default)")
	cardCmd.Flags().String("mode", "generate", "Bleed mode: generate, use-existing, none")
	cardCmd.Flags().Bool("display", false, "Write the display-scale preview instead of the export image")
	cardCmd.Flags().Bool("darken", false, "Darken synthesized bleed pixels that border near-black content")
	cardCmd.Flags().Bool("gpu", false, "Run the flood fill on the GPU when available")
	_ = cardCmd.MarkFlagRequired("in")
}

func runCard(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	mode, err := render.ParseBleedMode(mustGetString(cmd, "mode"))
	if err != nil {
		return err
	}

	dpi := mustGetInt(cmd, "dpi")
	if dpi <= 0 {
		dpi = cfg.Render.DPI
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer store.Close()

	cache := imagecache.New(store, imagecache.NewFetcher())
	worker := render.NewWorker(cache, newGenerator(mustGetBool(cmd, "gpu") || cfg.Render.GPU))

	job := render.CardImageJob{
		ID:              "card",
		SourceURL:       mustGetString(cmd, "in"),
		BleedMode:       mode,
		BleedWidth:      mustGetFloat64(cmd, "bleed"),
		Unit:            units.Millimeter,
		TargetDPI:       dpi,
		DarkenNearBlack: mustGetBool(cmd, "darken"),
	}

	result, err := worker.Process(ctx, job)
	if err != nil {
		return fmt.Errorf("render card: %w", err)
	}

	blob := result.ExportBlob
	if mustGetBool(cmd, "display") {
		blob = result.DisplayBlob
	}

	outPath := mustGetString(cmd, "out")
	if err := os.WriteFile(outPath, blob, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	from := "rendered"
	if result.CacheHit {
		from = "cache hit"
	}
	fmt.Printf("Wrote %s (%d DPI, %.1f mm bleed, %s)\n",
		outPath, result.ExportDPI, result.ExportBleedWidthMm, from)
	return nil
}
