package cmd

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cardforge/cardforge/internal/catalog"
	"github.com/cardforge/cardforge/internal/config"
	"github.com/cardforge/cardforge/internal/page"
	"github.com/cardforge/cardforge/internal/pdfexport"
	"github.com/cardforge/cardforge/internal/pool"
	"github.com/cardforge/cardforge/internal/render"
	"github.com/cardforge/cardforge/internal/units"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a deck or image directory into print-ready pages",
	Long: `Render composes cards onto pages with cut guides and exports them as
PNG files and optionally a single PDF.

Cards come either from a deck list plus a catalog (--deck with --catalog)
or from a directory of image files treated as user uploads (--dir).`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().String("deck", "", "Deck list file (one card per line, optional leading count)")
	renderCmd.Flags().String("catalog", "", "JSON catalog mapping card names to artwork sources")
	renderCmd.Flags().String("dir", "", "Directory of card images treated as user uploads")
	renderCmd.Flags().String("out", "pages", "Output directory for page PNGs")
	renderCmd.Flags().String("pdf", "", "Also write all pages to a single PDF at this path")
	renderCmd.Flags().String("preset", "letter", "Page preset: letter, legal, a4, a3")
	renderCmd.Flags().Int("dpi", 0, "Export DPI (0 = configured default)")
	renderCmd.Flags().Float64("bleed", 0, "Default bleed width in mm (0 = preset default)")
	renderCmd.Flags().Float64("spacing", 0, "Spacing between cards in mm")
	renderCmd.Flags().String("guides", "", "Cut guide style: none, corners, rounded-corners, solid-rect, dashed-rect")
	renderCmd.Flags().String("guide-placement", "", "Guide placement relative to the cut line: inside, outside")
	renderCmd.Flags().String("page-lines", "edge", "Full-page cut lines: none, edge, full")
	renderCmd.Flags().String("registration", "none", "Registration marks: none, 3-point, 4-point")
	renderCmd.Flags().Bool("gpu", false, "Run the flood fill on the GPU when available")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	cards, err := collectCards(cmd)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		return fmt.Errorf("no cards to render")
	}

	pageCfg := buildPageConfig(cmd, cfg)

	registry := pool.NewRegistry()
	defer registry.DestroyAll()

	renderer, store, err := newWorkerStack(ctx, cfg, mustGetBool(cmd, "gpu") || cfg.Render.GPU, registry)
	if err != nil {
		return err
	}
	defer store.Close()

	perPage := pageCfg.Columns * pageCfg.Rows
	totalPages := (len(cards) + perPage - 1) / perPage
	fmt.Printf("Rendering %d cards onto %d pages (%s, %d DPI)\n",
		len(cards), totalPages, mustGetString(cmd, "preset"), pageCfg.DPI)

	bar := progressbar.NewOptions(len(cards),
		progressbar.OptionSetDescription("Rendering cards"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("cards"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	outDir := mustGetString(cmd, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	comp := page.NewCompositor(renderer)
	var pageBlobs [][]byte
	for start := 0; start < len(cards); start += perPage {
		end := min(start+perPage, len(cards))

		canvas, err := comp.ComposePage(ctx, cards[start:end], pageCfg, func(int) {
			_ = bar.Add(1)
		})
		if err != nil {
			return fmt.Errorf("page %d: %w", start/perPage+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, canvas); err != nil {
			return fmt.Errorf("encode page %d: %w", start/perPage+1, err)
		}
		path := filepath.Join(outDir, fmt.Sprintf("page-%02d.png", start/perPage+1))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		pageBlobs = append(pageBlobs, buf.Bytes())
	}
	fmt.Printf("\nWrote %d pages to %s\n", len(pageBlobs), outDir)

	if pdfPath := mustGetString(cmd, "pdf"); pdfPath != "" {
		if err := pdfexport.WritePDFFile(pdfPath, pageBlobs); err != nil {
			return fmt.Errorf("write PDF: %w", err)
		}
		fmt.Printf("Wrote PDF to %s\n", pdfPath)
	}
	return nil
}

// collectCards gathers the card jobs from the deck or directory input.
func collectCards(cmd *cobra.Command) ([]page.Card, error) {
	deckPath := mustGetString(cmd, "deck")
	dirPath := mustGetString(cmd, "dir")

	switch {
	case deckPath != "" && dirPath != "":
		return nil, fmt.Errorf("--deck and --dir are mutually exclusive")
	case deckPath != "":
		return cardsFromDeck(deckPath, mustGetString(cmd, "catalog"))
	case dirPath != "":
		return cardsFromDir(dirPath)
	default:
		return nil, fmt.Errorf("either --deck or --dir is required")
	}
}

func cardsFromDeck(deckPath, catalogPath string) ([]page.Card, error) {
	if catalogPath == "" {
		return nil, fmt.Errorf("--catalog is required with --deck")
	}
	source, err := catalog.LoadFileSource(catalogPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(deckPath)
	if err != nil {
		return nil, fmt.Errorf("open deck list: %w", err)
	}
	defer f.Close()

	entries, err := catalog.ParseDeckList(f)
	if err != nil {
		return nil, err
	}

	var cards []page.Card
	for _, e := range entries {
		rec, ok := source.Lookup(e.Name)
		if !ok {
			return nil, fmt.Errorf("card %q not found in catalog", e.Name)
		}
		mode, err := render.ParseBleedMode(rec.BleedMode)
		if err != nil {
			return nil, fmt.Errorf("card %q: %w", e.Name, err)
		}
		for range e.Count {
			cards = append(cards, page.Card{Job: render.CardImageJob{
				ID:              fmt.Sprintf("%s-%d", catalog.NormalizeName(e.Name), len(cards)),
				SourceURL:       rec.SourceURL,
				BleedMode:       mode,
				Unit:            units.Millimeter,
				HasBakedBleed:   rec.HasBakedBleed,
				IsUserUpload:    rec.IsUserUpload,
				ExistingBleedMm: rec.ExistingBleedMm,
			}})
		}
	}
	return cards, nil
}

func cardsFromDir(dir string) ([]page.Card, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory: %w", err)
	}

	supported := map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && supported[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no supported image files in %s", dir)
	}

	cards := make([]page.Card, 0, len(paths))
	for i, p := range paths {
		cards = append(cards, page.Card{Job: render.CardImageJob{
			ID:           fmt.Sprintf("upload-%d", i),
			SourceURL:    p,
			BleedMode:    render.BleedGenerate,
			Unit:         units.Millimeter,
			IsUserUpload: true,
		}})
	}
	return cards, nil
}

// buildPageConfig resolves preset, flags and configured defaults into the
// compositor configuration.
func buildPageConfig(cmd *cobra.Command, cfg *config.Config) page.Config {
	preset := cfg.PagePreset(mustGetString(cmd, "preset"))
	defaults := cfg.Presets.Defaults

	dpi := mustGetInt(cmd, "dpi")
	if dpi <= 0 {
		dpi = cfg.Render.DPI
	}
	bleed := mustGetFloat64(cmd, "bleed")
	if bleed <= 0 {
		bleed = defaults.BleedMm
	}
	guideStyle := mustGetString(cmd, "guides")
	if guideStyle == "" {
		guideStyle = defaults.GuideStyle
	}
	placement := mustGetString(cmd, "guide-placement")
	if placement == "" {
		placement = defaults.GuidePlacement
	}

	return page.Config{
		Columns:      preset.Columns,
		Rows:         preset.Rows,
		DPI:          dpi,
		PageWidthMm:  preset.WidthMm,
		PageHeightMm: preset.HeightMm,
		SpacingMm:    mustGetFloat64(cmd, "spacing"),
		BleedWidthMm: bleed,
		Guides: page.GuideSpec{
			Style:     page.GuideStyle(guideStyle),
			Placement: page.GuidePlacement(placement),
			WidthPx:   defaults.GuideWidthPx,
			Color:     color.NRGBA{0, 0, 0, 255},
		},
		PageLines:    page.PageLineMode(mustGetString(cmd, "page-lines")),
		Registration: page.ParseRegistrationMode(mustGetString(cmd, "registration")),
	}
}
