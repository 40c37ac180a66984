package bleed

import (
	"image"
	"image/color"
	"math/rand/v2"

	"golang.org/x/image/draw"
)

// stampCornerPatches fills the four corner blind spots of the bleed band
// with material sampled from just inside the matching content corner. Each
// corner gets a blurred semi-transparent pass first, then a sharper pass,
// with small random jitter per tile so repetition is not visible. The flood
// fill runs afterwards and smooths whatever the patches left uncovered.
func stampCornerPatches(canvas *image.NRGBA, content image.Rectangle) {
	band := content.Min.X - canvas.Bounds().Min.X
	if band <= 0 {
		return
	}

	patch := clampInt(band*2, 8, 64)
	// Sample inward of the corner so the sampled patch itself is unlikely
	// to already be empty.
	inset := patch/2 + patch/4

	corners := []struct {
		sample image.Point     // top-left of the sample rect inside content
		region image.Rectangle // blind spot to cover
	}{
		{
			sample: image.Pt(content.Min.X+inset, content.Min.Y+inset),
			region: image.Rect(canvas.Bounds().Min.X, canvas.Bounds().Min.Y, content.Min.X+patch/2, content.Min.Y+patch/2),
		},
		{
			sample: image.Pt(content.Max.X-inset-patch, content.Min.Y+inset),
			region: image.Rect(content.Max.X-patch/2, canvas.Bounds().Min.Y, canvas.Bounds().Max.X, content.Min.Y+patch/2),
		},
		{
			sample: image.Pt(content.Min.X+inset, content.Max.Y-inset-patch),
			region: image.Rect(canvas.Bounds().Min.X, content.Max.Y-patch/2, content.Min.X+patch/2, canvas.Bounds().Max.Y),
		},
		{
			sample: image.Pt(content.Max.X-inset-patch, content.Max.Y-inset-patch),
			region: image.Rect(content.Max.X-patch/2, content.Max.Y-patch/2, canvas.Bounds().Max.X, canvas.Bounds().Max.Y),
		},
	}

	for _, c := range corners {
		sampleRect := image.Rect(0, 0, patch, patch).Add(c.sample)
		sampleRect = sampleRect.Intersect(content)
		if sampleRect.Empty() {
			continue
		}
		p := extract(canvas, sampleRect)
		blurred := boxBlur(boxBlur(p, 2), 2)

		tileRegion(canvas, c.region, scaleAlpha(blurred, 0.55), patch)
		tileRegion(canvas, c.region, scaleAlpha(p, 0.70), patch)
	}
}

// tileRegion stamps patch repeatedly across region with per-tile jitter.
func tileRegion(canvas *image.NRGBA, region image.Rectangle, patch *image.NRGBA, step int) {
	region = region.Intersect(canvas.Bounds())
	if region.Empty() || step <= 0 {
		return
	}
	for y := region.Min.Y; y < region.Max.Y; y += step {
		for x := region.Min.X; x < region.Max.X; x += step {
			jx := rand.IntN(7) - 3
			jy := rand.IntN(7) - 3
			dst := image.Rect(x+jx, y+jy, x+jx+step, y+jy+step).Intersect(region)
			if dst.Empty() {
				continue
			}
			draw.Draw(canvas, dst, patch, patch.Bounds().Min, draw.Over)
		}
	}
}

// extract copies rect out of img into a zero-based NRGBA.
func extract(img *image.NRGBA, rect image.Rectangle) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}

// scaleAlpha returns a copy of img with every alpha value multiplied by f.
func scaleAlpha(img *image.NRGBA, f float64) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = uint8(float64(out.Pix[i]) * f)
	}
	return out
}

// boxBlur applies a single-pass box blur with the given radius.
func boxBlur(img *image.NRGBA, radius int) *image.NRGBA {
	if radius <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, bl, a, n int
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					c := img.NRGBAAt(b.Min.X+nx, b.Min.Y+ny)
					r += int(c.R)
					g += int(c.G)
					bl += int(c.B)
					a += int(c.A)
					n++
				}
			}
			out.SetNRGBA(x, y, color.NRGBA{
				R: uint8(r / n),
				G: uint8(g / n),
				B: uint8(bl / n),
				A: uint8(a / n),
			})
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
