// Package bleed synthesizes print bleed borders around card artwork and
// trims manufacturer-baked bleed from sources that already carry one.
//
// The generator fills the border region with plausible edge color using a
// distance-transform flood fill (Jump Flooding), seeded from the opaque card
// content. An optional GPU accelerator can run the flood fill; its output is
// interchangeable with the CPU path at the blob level.
package bleed

import (
	"fmt"
	"image"
	"math"
	"sync/atomic"

	"golang.org/x/image/draw"

	"github.com/cardforge/cardforge/internal/constants"
	"github.com/cardforge/cardforge/internal/units"
)

// Options configures a single bleed generation.
type Options struct {
	// WidthMm is the total growth of each dimension in millimeters.
	// Half of it lands on each edge (the odd pixel goes to the trailing edge).
	WidthMm float64

	// DPI is the output resolution.
	DPI int

	// DarkenNearBlack pulls near-black border pixels toward pure black to
	// hide compression artifacts at the seam.
	DarkenNearBlack bool
}

// Accelerator runs the flood-fill stage on dedicated hardware. The output
// must match the CPU path's mathematical contract: pixels below the fill
// threshold adopt their nearest seed's RGB and become opaque.
type Accelerator interface {
	FloodFill(img *image.NRGBA, seedThreshold, fillThreshold uint8, darkenNearBlack bool) error
}

// Generator produces bordered card bitmaps. It is safe for concurrent use.
type Generator struct {
	accel   Accelerator
	jfaRuns atomic.Int64
}

// NewGenerator creates a CPU-only generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// NewAcceleratedGenerator creates a generator that prefers the given
// accelerator for the flood-fill stage, falling back to the CPU on error.
func NewAcceleratedGenerator(accel Accelerator) *Generator {
	return &Generator{accel: accel}
}

// JFARuns reports how many times the flood-fill stage has run.
func (g *Generator) JFARuns() int64 {
	return g.jfaRuns.Load()
}

// Generate resizes src onto a content-only canvas of fixed physical card
// size (aspect-fill, cropping the longer axis), then synthesizes the bleed
// border around it. A zero bleed width returns the resized content directly.
func (g *Generator) Generate(src image.Image, opts Options) (*image.NRGBA, error) {
	if opts.DPI <= 0 {
		return nil, fmt.Errorf("invalid DPI %d", opts.DPI)
	}
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("empty source image")
	}

	cw, ch := units.ContentSizePx(opts.DPI)
	content := fitContent(src, cw, ch)

	total := units.PxMm(opts.WidthMm, opts.DPI)
	if total <= 0 {
		return content, nil
	}

	canvas, contentRect := expandCanvas(content, total)
	stampCornerPatches(canvas, contentRect)
	if opts.DarkenNearBlack {
		darkenNearBlackBand(canvas, contentRect, constants.NearBlackThreshold)
	}
	g.floodFill(canvas, opts.DarkenNearBlack)
	compositeEdgeStrips(canvas, contentRect)

	return canvas, nil
}

// floodFill runs the JFA stage, preferring the accelerator when present.
func (g *Generator) floodFill(canvas *image.NRGBA, darkenNearBlack bool) {
	g.jfaRuns.Add(1)
	if g.accel != nil {
		err := g.accel.FloodFill(canvas, constants.SeedAlphaThreshold, constants.FillAlphaThreshold, darkenNearBlack)
		if err == nil {
			return
		}
	}
	jumpFlood(canvas, constants.SeedAlphaThreshold, constants.FillAlphaThreshold)
}

// FitToCanvas scales src onto a w x h canvas (aspect-fill, cropping the
// longer axis centered). Sources already at the target size are returned
// converted, not refiltered.
func FitToCanvas(src image.Image, w, h int) *image.NRGBA {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return ToNRGBA(src)
	}
	return fitContent(src, w, h)
}

// fitContent scales src to cover a w x h canvas while preserving aspect
// ratio, cropping the longer axis centered. Distortion is avoided by
// cropping, never by stretching.
func fitContent(src image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()

	scale := math.Max(float64(w)/float64(sw), float64(h)/float64(sh))
	cropW := int(math.Round(float64(w) / scale))
	cropH := int(math.Round(float64(h) / scale))
	if cropW > sw {
		cropW = sw
	}
	if cropH > sh {
		cropH = sh
	}

	crop := image.Rect(0, 0, cropW, cropH).
		Add(sb.Min).
		Add(image.Pt((sw-cropW)/2, (sh-cropH)/2))

	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}

// expandCanvas places content on a larger transparent canvas, centered with
// the odd pixel on the trailing edge, and returns the canvas plus the
// content rectangle within it.
func expandCanvas(content *image.NRGBA, totalBleedPx int) (*image.NRGBA, image.Rectangle) {
	cw, ch := content.Bounds().Dx(), content.Bounds().Dy()
	lead := totalBleedPx / 2

	canvas := image.NewNRGBA(image.Rect(0, 0, cw+totalBleedPx, ch+totalBleedPx))
	contentRect := image.Rect(lead, lead, lead+cw, lead+ch)
	draw.Draw(canvas, contentRect, content, content.Bounds().Min, draw.Src)
	return canvas, contentRect
}

// ToNRGBA returns img as *image.NRGBA, copying only when necessary.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == image.Pt(0, 0) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Downscale resizes img by the ratio of dstDPI to srcDPI using bilinear
// interpolation. It is a pure downscale of the input, not a re-render.
func Downscale(img *image.NRGBA, srcDPI, dstDPI int) *image.NRGBA {
	if dstDPI >= srcDPI {
		return img
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * float64(dstDPI) / float64(srcDPI)))
	h := int(math.Round(float64(b.Dy()) * float64(dstDPI) / float64(srcDPI)))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
