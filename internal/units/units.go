// Package units provides DPI and physical-unit conversions plus the
// calibrated trim tables shared by the bleed generator and page compositor.
package units

import "math"

// Unit is a physical length unit.
type Unit string

// Supported physical units.
const (
	Millimeter Unit = "mm"
	Inch       Unit = "in"
)

// MmPerInch is the number of millimeters in one inch.
const MmPerInch = 25.4

// Standard poker card content dimensions (the visible face, excluding bleed).
const (
	CardWidthMm  = 63.0
	CardHeightMm = 88.0
)

// PxMm converts a length in millimeters to pixels at the given DPI.
func PxMm(mm float64, dpi int) int {
	return int(math.Round(mm / MmPerInch * float64(dpi)))
}

// PxIn converts a length in inches to pixels at the given DPI.
func PxIn(in float64, dpi int) int {
	return int(math.Round(in * float64(dpi)))
}

// Px converts a length in the given unit to pixels at the given DPI.
func Px(v float64, u Unit, dpi int) int {
	if u == Inch {
		return PxIn(v, dpi)
	}
	return PxMm(v, dpi)
}

// ToMm converts a length in the given unit to millimeters.
func ToMm(v float64, u Unit) float64 {
	if u == Inch {
		return v * MmPerInch
	}
	return v
}

// ToIn converts a length in the given unit to inches.
func ToIn(v float64, u Unit) float64 {
	if u == Inch {
		return v
	}
	return v / MmPerInch
}

// ContentSizePx returns the pixel dimensions of the card content area at the
// given DPI.
func ContentSizePx(dpi int) (w, h int) {
	return PxMm(CardWidthMm, dpi), PxMm(CardHeightMm, dpi)
}

// PxToMm converts a pixel count back to millimeters at the given DPI.
func PxToMm(px, dpi int) float64 {
	return float64(px) / float64(dpi) * MmPerInch
}
