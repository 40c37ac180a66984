package bleed

import "image"

// compositeEdgeStrips re-samples 1-pixel-wide slices from the content edges
// outward across the bleed band. This tightens the seam and serves as a
// cheap fallback for very thin bleeds where the flood fill has little to do.
func compositeEdgeStrips(canvas *image.NRGBA, content image.Rectangle) {
	b := canvas.Bounds()

	// Left and right bands, within the content's vertical range.
	for y := content.Min.Y; y < content.Max.Y; y++ {
		left := canvas.PixOffset(content.Min.X, y)
		for x := b.Min.X; x < content.Min.X; x++ {
			off := canvas.PixOffset(x, y)
			copy(canvas.Pix[off:off+4], canvas.Pix[left:left+4])
		}
		right := canvas.PixOffset(content.Max.X-1, y)
		for x := content.Max.X; x < b.Max.X; x++ {
			off := canvas.PixOffset(x, y)
			copy(canvas.Pix[off:off+4], canvas.Pix[right:right+4])
		}
	}

	// Top and bottom bands, within the content's horizontal range.
	for x := content.Min.X; x < content.Max.X; x++ {
		top := canvas.PixOffset(x, content.Min.Y)
		for y := b.Min.Y; y < content.Min.Y; y++ {
			off := canvas.PixOffset(x, y)
			copy(canvas.Pix[off:off+4], canvas.Pix[top:top+4])
		}
		bottom := canvas.PixOffset(x, content.Max.Y-1)
		for y := content.Max.Y; y < b.Max.Y; y++ {
			off := canvas.PixOffset(x, y)
			copy(canvas.Pix[off:off+4], canvas.Pix[bottom:bottom+4])
		}
	}
}

// darkenNearBlackBand pulls near-black pixels inside a band along the
// content edge toward pure black, hiding compression artifacts at the seam.
// The band spans the bleed width plus a few pixels into the content.
func darkenNearBlackBand(canvas *image.NRGBA, content image.Rectangle, threshold uint8) {
	band := content.Min.X - canvas.Bounds().Min.X + 4
	b := canvas.Bounds()
	inner := image.Rect(b.Min.X+band, b.Min.Y+band, b.Max.X-band, b.Max.Y-band)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if inner.Dx() > 0 && inner.Dy() > 0 && image.Pt(x, y).In(inner) {
				// Skip the interior, only the seam band is touched.
				x = inner.Max.X - 1
				continue
			}
			off := canvas.PixOffset(x, y)
			r, g, bl := canvas.Pix[off], canvas.Pix[off+1], canvas.Pix[off+2]
			if r <= threshold && g <= threshold && bl <= threshold {
				canvas.Pix[off] = r / 4
				canvas.Pix[off+1] = g / 4
				canvas.Pix[off+2] = bl / 4
			}
		}
	}
}
