package units

// Trim calibration for sources that ship with a manufacturer-baked bleed
// border. The buckets correspond to the known upstream export resolutions
// (roughly 300/600/800/1200 DPI equivalents by pixel height). Heights between
// or above buckets fall through to the nearest lower bucket.
const (
	trimHeight1200 = 4440
	trimHeight800  = 2960
	trimHeight600  = 2220

	trimPx1200 = 156
	trimPx800  = 104
	trimPx600  = 78
	trimPx300  = 72
)

// CalibratedTrimPx returns the number of pixels to trim from each edge of a
// baked-bleed source image, keyed by the image's pixel height. The table is a
// non-decreasing step function with exactly four buckets.
func CalibratedTrimPx(heightPx int) int {
	switch {
	case heightPx >= trimHeight1200:
		return trimPx1200
	case heightPx >= trimHeight800:
		return trimPx800
	case heightPx >= trimHeight600:
		return trimPx600
	default:
		return trimPx300
	}
}
