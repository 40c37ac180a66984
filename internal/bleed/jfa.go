package bleed

import "image"

// jumpFlood runs the Jump Flooding Algorithm over img in place. Pixels with
// alpha >= seedThreshold act as seeds; after log2(maxDim) halving-step passes
// every pixel knows its nearest seed (by squared Euclidean distance, over a
// step-scaled 8-neighborhood). Pixels with alpha < fillThreshold are then
// recolored with their nearest seed's RGB and forced opaque.
func jumpFlood(img *image.NRGBA, seedThreshold, fillThreshold uint8) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}

	// cur[i] holds the flat index of pixel i's best seed so far, -1 for none.
	cur := make([]int32, w*h)
	next := make([]int32, w*h)
	for y := 0; y < h; y++ {
		row := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			i := y*w + x
			if img.Pix[row+x*4+3] >= seedThreshold {
				cur[i] = int32(i)
			} else {
				cur[i] = -1
			}
		}
	}

	maxDim := w
	if h > maxDim {
		maxDim = h
	}
	step := 1
	for step < maxDim {
		step <<= 1
	}

	for step >>= 1; step >= 1; step >>= 1 {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				best := cur[i]
				bestD := int64(-1)
				if best >= 0 {
					bestD = seedDistSq(best, x, y, w)
				}
				for dy := -1; dy <= 1; dy++ {
					ny := y + dy*step
					if ny < 0 || ny >= h {
						continue
					}
					for dx := -1; dx <= 1; dx++ {
						nx := x + dx*step
						if nx < 0 || nx >= w {
							continue
						}
						cand := cur[ny*w+nx]
						if cand < 0 {
							continue
						}
						d := seedDistSq(cand, x, y, w)
						if bestD < 0 || d < bestD {
							best = cand
							bestD = d
						}
					}
				}
				next[i] = best
			}
		}
		cur, next = next, cur
	}

	// Colorize: every pixel below the fill threshold adopts its nearest
	// seed's RGB and becomes opaque.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			off := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			if img.Pix[off+3] >= fillThreshold {
				continue
			}
			seed := cur[i]
			if seed < 0 {
				continue
			}
			sx := int(seed) % w
			sy := int(seed) / w
			soff := img.PixOffset(b.Min.X+sx, b.Min.Y+sy)
			img.Pix[off] = img.Pix[soff]
			img.Pix[off+1] = img.Pix[soff+1]
			img.Pix[off+2] = img.Pix[soff+2]
			img.Pix[off+3] = 0xff
		}
	}
}

// seedDistSq returns the squared distance from (x, y) to the seed at flat
// index seed in a grid of width w.
func seedDistSq(seed int32, x, y, w int) int64 {
	sx := int(seed) % w
	sy := int(seed) / w
	dx := int64(sx - x)
	dy := int64(sy - y)
	return dx*dx + dy*dy
}
