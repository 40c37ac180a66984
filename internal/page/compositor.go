package page

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"github.com/cardforge/cardforge/internal/constants"
	"github.com/cardforge/cardforge/internal/render"
	"github.com/cardforge/cardforge/internal/units"
)

// Card is one slot occupant. A Blank card participates in grid sizing but
// renders as flat page fill with no cut lines. Result may carry an
// already-rendered export; it is reused only when its DPI and bleed width
// match the page configuration.
type Card struct {
	Job    render.CardImageJob
	Result *render.BleedResult
	Blank  bool
}

// Config is the page composition configuration.
type Config struct {
	Columns int
	Rows    int
	DPI     int

	PageWidthMm  float64
	PageHeightMm float64
	SpacingMm    float64

	// BleedWidthMm is the global default bleed for cards without a
	// per-card override.
	BleedWidthMm float64

	Guides          GuideSpec
	PageLines       PageLineMode
	PageLineWidthPx int
	Registration    RegistrationMode

	Background color.NRGBA
}

// Renderer re-derives a card image when no matching result is available.
// Satisfied by render.Worker.
type Renderer interface {
	Process(ctx context.Context, job render.CardImageJob) (*render.BleedResult, error)
}

// Progress is called after each prepared card with the running count.
type Progress func(imagesProcessed int)

// Compositor rasterizes print pages. The prepare phase decodes and renders
// with bounded concurrency; the draw phase is strictly sequential because
// the page canvas is a single mutable surface.
type Compositor struct {
	renderer   Renderer
	prepareCap int
}

// NewCompositor creates a compositor over the given renderer.
func NewCompositor(r Renderer) *Compositor {
	return &Compositor{
		renderer:   r,
		prepareCap: constants.PrepareConcurrency,
	}
}

// slotState is the prepared form of one slot before drawing.
type slotState struct {
	img    *image.NRGBA
	layout CardLayout
	failed bool
	blank  bool
}

var (
	cutLineColor     = color.NRGBA{60, 60, 60, 255}
	regMarkColor     = color.NRGBA{0, 0, 0, 255}
	placeholderEdge  = color.NRGBA{200, 30, 30, 255}
	placeholderFill  = color.NRGBA{245, 235, 235, 255}
	defaultBg        = color.NRGBA{255, 255, 255, 255}
	placeholderWidth = 4
)

const (
	regMarginMm = 2.0
	regSizeMm   = 5.0
	regStrokePx = 3
)

// ComposePage renders one page. Card failures degrade to a red-outlined
// placeholder; only page-level errors (invalid config, cancellation)
// abort the page.
func (c *Compositor) ComposePage(ctx context.Context, cards []Card, cfg Config, onProgress Progress) (*image.NRGBA, error) {
	if cfg.Columns < 1 || cfg.Rows < 1 {
		return nil, fmt.Errorf("invalid grid %dx%d", cfg.Columns, cfg.Rows)
	}
	if cfg.DPI <= 0 {
		return nil, fmt.Errorf("invalid DPI %d", cfg.DPI)
	}
	if len(cards) > cfg.Columns*cfg.Rows {
		return nil, fmt.Errorf("%d cards exceed %dx%d grid", len(cards), cfg.Columns, cfg.Rows)
	}

	slots := c.prepare(ctx, cards, cfg, onProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layouts := make([]CardLayout, len(slots))
	occupied := make([]bool, len(slots))
	for i := range slots {
		layouts[i] = slots[i].layout
		occupied[i] = !slots[i].blank
	}

	pageW := units.PxMm(cfg.PageWidthMm, cfg.DPI)
	pageH := units.PxMm(cfg.PageHeightMm, cfg.DPI)
	grid := BuildGrid(layouts, cfg.Columns, cfg.Rows, units.PxMm(cfg.SpacingMm, cfg.DPI), pageW, pageH)

	canvas := image.NewNRGBA(image.Rect(0, 0, pageW, pageH))
	bg := cfg.Background
	if bg == (color.NRGBA{}) {
		bg = defaultBg
	}
	fillRect(canvas, canvas.Bounds(), bg)

	// Page cut lines go down first so card pixels sit on top of them.
	lineWidth := cfg.PageLineWidthPx
	if lineWidth <= 0 {
		lineWidth = 1
	}
	xs, ys := CutCoordinates(grid, layouts, occupied)
	DrawPageCutLines(canvas, xs, ys, cfg.PageLines, lineWidth, cutLineColor)

	// Sequential draw: the canvas is not safely writable concurrently.
	for i, s := range slots {
		if s.blank {
			continue
		}
		col, row := i%cfg.Columns, i/cfg.Columns
		origin := grid.CardOrigin(col, row, s.layout)
		cardRect := image.Rect(origin.X, origin.Y, origin.X+s.layout.CardWidthPx, origin.Y+s.layout.CardHeightPx)

		if s.failed {
			drawPlaceholder(canvas, cardRect)
		} else {
			draw.Draw(canvas, cardRect, s.img, s.img.Bounds().Min, draw.Over)
		}
		DrawCardGuides(canvas, s.layout.ContentRect(origin), cfg.Guides)
	}

	DrawRegistrationMarks(canvas, cfg.Registration,
		units.PxMm(regMarginMm, cfg.DPI), units.PxMm(regSizeMm, cfg.DPI), regStrokePx, regMarkColor)

	return canvas, nil
}

// prepare decodes or re-renders every card with bounded concurrency.
func (c *Compositor) prepare(ctx context.Context, cards []Card, cfg Config, onProgress Progress) []slotState {
	slots := make([]slotState, len(cards))
	sem := make(chan struct{}, c.prepareCap)
	var wg sync.WaitGroup
	var mu sync.Mutex
	processed := 0

	for i := range cards {
		if cards[i].Blank {
			slots[i] = slotState{blank: true, layout: c.defaultLayout(cfg.BleedWidthMm, cfg)}
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			bleedMm := effectiveBleedMm(cards[i], cfg)
			img, err := c.prepareCard(ctx, cards[i], cfg, bleedMm)
			if err != nil || img == nil {
				slots[i] = slotState{failed: true, layout: c.defaultLayout(bleedMm, cfg)}
			} else {
				slots[i] = slotState{
					img: img,
					layout: CardLayout{
						CardWidthPx:  img.Bounds().Dx(),
						CardHeightPx: img.Bounds().Dy(),
						BleedPx:      units.PxMm(bleedMm, cfg.DPI),
					},
				}
			}

			mu.Lock()
			processed++
			if onProgress != nil {
				onProgress(processed)
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	return slots
}

// prepareCard reuses a matching pre-rendered export, otherwise re-derives
// the card at the page's DPI and bleed width.
func (c *Compositor) prepareCard(ctx context.Context, card Card, cfg Config, bleedMm float64) (*image.NRGBA, error) {
	if card.Result.Matches(cfg.DPI, bleedMm) {
		return decodePNG(card.Result.ExportBlob)
	}

	job := card.Job
	job.TargetDPI = cfg.DPI
	job.BleedWidth = bleedMm
	job.Unit = units.Millimeter
	res, err := c.renderer.Process(ctx, job)
	if err != nil {
		return nil, err
	}
	return decodePNG(res.ExportBlob)
}

// effectiveBleedMm resolves a card's bleed width: per-card override first,
// then the page default. Borderless cards always use zero.
func effectiveBleedMm(card Card, cfg Config) float64 {
	if card.Job.BleedMode == render.BleedNone {
		return 0
	}
	if card.Job.BleedWidth > 0 {
		return card.Job.BleedWidthMm()
	}
	return cfg.BleedWidthMm
}

// defaultLayout is the slot footprint for blank and failed slots: the
// standard card content plus the bleed band.
func (c *Compositor) defaultLayout(bleedMm float64, cfg Config) CardLayout {
	w, h := units.ContentSizePx(cfg.DPI)
	total := units.PxMm(bleedMm, cfg.DPI)
	return CardLayout{
		CardWidthPx:  w + total,
		CardHeightPx: h + total,
		BleedPx:      total,
	}
}

// drawPlaceholder renders the "image not found" slot: flat fill with a
// red outline.
func drawPlaceholder(canvas *image.NRGBA, r image.Rectangle) {
	fillRect(canvas, r, placeholderFill)
	strokeRect(canvas, r, placeholderWidth, placeholderEdge)
}

func decodePNG(blob []byte) (*image.NRGBA, error) {
	img, err := png.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decode card image: %w", err)
	}
	if n, ok := img.(*image.NRGBA); ok {
		return n, nil
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst, nil
}
