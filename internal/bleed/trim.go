package bleed

import (
	"image"

	"github.com/cardforge/cardforge/internal/units"
)

// TrimBaked removes a manufacturer-baked bleed border using the calibrated
// per-resolution trim table, returning a content-only bitmap. Images too
// small to trim are returned unchanged.
func TrimBaked(img *image.NRGBA) *image.NRGBA {
	return TrimPx(img, units.CalibratedTrimPx(img.Bounds().Dy()))
}

// TrimPx removes px pixels from every edge. Degenerate inputs (smaller than
// twice the trim) are a no-op rather than an error.
func TrimPx(img *image.NRGBA, px int) *image.NRGBA {
	b := img.Bounds()
	if px <= 0 || b.Dx() <= 2*px || b.Dy() <= 2*px {
		return img
	}
	return extract(img, image.Rect(b.Min.X+px, b.Min.Y+px, b.Max.X-px, b.Max.Y-px))
}

// TrimToWidth trims a baked bleed of known physical width down to the target
// width. When the baked bleed already meets or exceeds the target, trimming
// alone suffices and the second return value is true (no regeneration
// needed). When it is smaller than the target, the bleed is removed entirely
// and the caller must regenerate at the new target.
func TrimToWidth(img *image.NRGBA, bakedMm, targetMm float64, dpi int) (*image.NRGBA, bool) {
	if bakedMm <= 0 {
		return img, false
	}
	if bakedMm >= targetMm {
		excess := (bakedMm - targetMm) / 2
		return TrimPx(img, units.PxMm(excess, dpi)), true
	}
	return TrimPx(img, units.PxMm(bakedMm/2, dpi)), false
}
