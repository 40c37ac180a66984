package page

import (
	"image"
	"image/color"
	"sort"
)

// GuideStyle selects the per-card cut guide geometry.
type GuideStyle string

const (
	GuideNone           GuideStyle = "none"
	GuideCorners        GuideStyle = "corners"
	GuideRoundedCorners GuideStyle = "rounded-corners"
	GuideSolidRect      GuideStyle = "solid-rect"
	GuideDashedRect     GuideStyle = "dashed-rect"
)

// GuidePlacement positions the guide stroke relative to the cut boundary.
type GuidePlacement string

const (
	PlacementInside  GuidePlacement = "inside"
	PlacementOutside GuidePlacement = "outside"
	PlacementCenter  GuidePlacement = "center"
)

// PageLineMode selects how full-page cut lines are drawn.
type PageLineMode string

const (
	PageLinesNone PageLineMode = "none"
	PageLinesEdge PageLineMode = "edge"
	PageLinesFull PageLineMode = "full"
)

// RegistrationMode selects corner registration marks for cutting machines.
type RegistrationMode int

const (
	RegNone RegistrationMode = iota
	Reg3Point
	Reg4Point
)

// ParseRegistrationMode maps the user-facing mark names to a mode.
// Unknown values mean no marks.
func ParseRegistrationMode(s string) RegistrationMode {
	switch s {
	case "3-point", "3point", "3":
		return Reg3Point
	case "4-point", "4point", "4":
		return Reg4Point
	}
	return RegNone
}

// GuideSpec bundles the per-card guide configuration.
type GuideSpec struct {
	Style     GuideStyle
	Placement GuidePlacement
	WidthPx   int
	ArmPx     int
	Color     color.NRGBA
}

const (
	dashOnPx     = 8
	dashOffPx    = 6
	edgeTickPx   = 40
	defaultArmPx = 16
)

// guideStrokeRect returns the rectangle whose inward stroke of the given
// width realizes the requested placement around the cut boundary.
func guideStrokeRect(cut image.Rectangle, placement GuidePlacement, width int) image.Rectangle {
	switch placement {
	case PlacementOutside:
		return cut.Inset(-width)
	case PlacementCenter:
		return cut.Inset(-width / 2)
	default:
		return cut
	}
}

// DrawCardGuides stamps the guide overlay for one card. cut is the content
// boundary (card rectangle minus its bleed band).
func DrawCardGuides(canvas *image.NRGBA, cut image.Rectangle, spec GuideSpec) {
	if spec.Style == GuideNone || spec.WidthPx <= 0 {
		return
	}
	arm := spec.ArmPx
	if arm <= 0 {
		arm = defaultArmPx
	}
	r := guideStrokeRect(cut, spec.Placement, spec.WidthPx)

	switch spec.Style {
	case GuideCorners:
		drawCornerMarks(canvas, r, arm, spec.WidthPx, spec.Color)
	case GuideRoundedCorners:
		drawRoundedCornerMarks(canvas, r, arm, spec.WidthPx, spec.Color)
	case GuideSolidRect:
		strokeRect(canvas, r, spec.WidthPx, spec.Color)
	case GuideDashedRect:
		strokeRectDashed(canvas, r, spec.WidthPx, spec.Color)
	}
}

// CutCoordinates collects the deduplicated vertical and horizontal cut
// positions across all occupied slots. Blank slots contribute nothing.
func CutCoordinates(g Grid, layouts []CardLayout, occupied []bool) (xs, ys []int) {
	seenX := make(map[int]bool)
	seenY := make(map[int]bool)

	for i, l := range layouts {
		if i >= len(occupied) || !occupied[i] {
			continue
		}
		col, row := i%g.Columns, i/g.Columns
		if row >= g.Rows {
			break
		}
		content := l.ContentRect(g.CardOrigin(col, row, l))
		seenX[content.Min.X] = true
		seenX[content.Max.X] = true
		seenY[content.Min.Y] = true
		seenY[content.Max.Y] = true
	}

	for x := range seenX {
		xs = append(xs, x)
	}
	for y := range seenY {
		ys = append(ys, y)
	}
	sort.Ints(xs)
	sort.Ints(ys)
	return xs, ys
}

// DrawPageCutLines draws the full-page cut lines at the given coordinates,
// either spanning the page or as short ticks at the page edges.
func DrawPageCutLines(canvas *image.NRGBA, xs, ys []int, mode PageLineMode, width int, c color.NRGBA) {
	if (mode != PageLinesEdge && mode != PageLinesFull) || width <= 0 {
		return
	}
	b := canvas.Bounds()

	for _, x := range xs {
		if mode == PageLinesFull {
			fillRect(canvas, image.Rect(x, b.Min.Y, x+width, b.Max.Y), c)
			continue
		}
		fillRect(canvas, image.Rect(x, b.Min.Y, x+width, b.Min.Y+edgeTickPx), c)
		fillRect(canvas, image.Rect(x, b.Max.Y-edgeTickPx, x+width, b.Max.Y), c)
	}
	for _, y := range ys {
		if mode == PageLinesFull {
			fillRect(canvas, image.Rect(b.Min.X, y, b.Max.X, y+width), c)
			continue
		}
		fillRect(canvas, image.Rect(b.Min.X, y, b.Min.X+edgeTickPx, y+width), c)
		fillRect(canvas, image.Rect(b.Max.X-edgeTickPx, y, b.Max.X, y+width), c)
	}
}

// DrawRegistrationMarks draws cutting-machine registration marks in the
// page corners. 3-point: a solid square at the primary corner plus two
// L-marks; 4-point: four L-marks. Landscape pages swap the corner
// assignment so the primary mark stays on the feed edge.
func DrawRegistrationMarks(canvas *image.NRGBA, mode RegistrationMode, marginPx, sizePx, width int, c color.NRGBA) {
	if mode == RegNone || sizePx <= 0 {
		return
	}
	b := canvas.Bounds()
	landscape := b.Dx() > b.Dy()

	tl := image.Pt(b.Min.X+marginPx, b.Min.Y+marginPx)
	tr := image.Pt(b.Max.X-marginPx-sizePx, b.Min.Y+marginPx)
	bl := image.Pt(b.Min.X+marginPx, b.Max.Y-marginPx-sizePx)
	br := image.Pt(b.Max.X-marginPx-sizePx, b.Max.Y-marginPx-sizePx)

	if mode == Reg4Point {
		drawLMark(canvas, tl, sizePx, width, c, false, false)
		drawLMark(canvas, tr, sizePx, width, c, true, false)
		drawLMark(canvas, bl, sizePx, width, c, false, true)
		drawLMark(canvas, br, sizePx, width, c, true, true)
		return
	}

	// 3-point: the solid square anchors the scan origin; portrait pages
	// put it top-left, landscape pages top-right.
	if landscape {
		fillRect(canvas, image.Rect(tr.X, tr.Y, tr.X+sizePx, tr.Y+sizePx), c)
		drawLMark(canvas, tl, sizePx, width, c, false, false)
		drawLMark(canvas, br, sizePx, width, c, true, true)
	} else {
		fillRect(canvas, image.Rect(tl.X, tl.Y, tl.X+sizePx, tl.Y+sizePx), c)
		drawLMark(canvas, tr, sizePx, width, c, true, false)
		drawLMark(canvas, bl, sizePx, width, c, false, true)
	}
}

// drawLMark draws an L-shaped mark in a sizePx square anchored at origin.
// flipX/flipY mirror the L so its corner points toward the page corner.
func drawLMark(canvas *image.NRGBA, origin image.Point, sizePx, width int, c color.NRGBA, flipX, flipY bool) {
	hy := origin.Y
	if flipY {
		hy = origin.Y + sizePx - width
	}
	fillRect(canvas, image.Rect(origin.X, hy, origin.X+sizePx, hy+width), c)

	vx := origin.X
	if flipX {
		vx = origin.X + sizePx - width
	}
	fillRect(canvas, image.Rect(vx, origin.Y, vx+width, origin.Y+sizePx), c)
}

// drawCornerMarks draws four L-shaped corner guides stroking inward from
// the rectangle corners.
func drawCornerMarks(canvas *image.NRGBA, r image.Rectangle, arm, width int, c color.NRGBA) {
	// Top-left
	fillRect(canvas, image.Rect(r.Min.X, r.Min.Y, r.Min.X+arm, r.Min.Y+width), c)
	fillRect(canvas, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Min.Y+arm), c)
	// Top-right
	fillRect(canvas, image.Rect(r.Max.X-arm, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	fillRect(canvas, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Min.Y+arm), c)
	// Bottom-left
	fillRect(canvas, image.Rect(r.Min.X, r.Max.Y-width, r.Min.X+arm, r.Max.Y), c)
	fillRect(canvas, image.Rect(r.Min.X, r.Max.Y-arm, r.Min.X+width, r.Max.Y), c)
	// Bottom-right
	fillRect(canvas, image.Rect(r.Max.X-arm, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	fillRect(canvas, image.Rect(r.Max.X-width, r.Max.Y-arm, r.Max.X, r.Max.Y), c)
}

// drawRoundedCornerMarks draws a quarter-circle arc of radius arm at each
// corner, stroked inward with the given width.
func drawRoundedCornerMarks(canvas *image.NRGBA, r image.Rectangle, arm, width int, c color.NRGBA) {
	centers := []image.Point{
		{r.Min.X + arm, r.Min.Y + arm},
		{r.Max.X - arm, r.Min.Y + arm},
		{r.Min.X + arm, r.Max.Y - arm},
		{r.Max.X - arm, r.Max.Y - arm},
	}
	quads := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+arm, r.Min.Y+arm),
		image.Rect(r.Max.X-arm, r.Min.Y, r.Max.X, r.Min.Y+arm),
		image.Rect(r.Min.X, r.Max.Y-arm, r.Min.X+arm, r.Max.Y),
		image.Rect(r.Max.X-arm, r.Max.Y-arm, r.Max.X, r.Max.Y),
	}

	for i, center := range centers {
		drawArcQuadrant(canvas, center, arm, width, quads[i], c)
	}
}

// drawArcQuadrant fills the ring band [radius-width, radius] around center
// clipped to the quadrant rectangle.
func drawArcQuadrant(canvas *image.NRGBA, center image.Point, radius, width int, quad image.Rectangle, c color.NRGBA) {
	quad = quad.Intersect(canvas.Bounds())
	inner := (radius - width) * (radius - width)
	outer := radius * radius

	for y := quad.Min.Y; y < quad.Max.Y; y++ {
		for x := quad.Min.X; x < quad.Max.X; x++ {
			dx, dy := x-center.X, y-center.Y
			d := dx*dx + dy*dy
			if d >= inner && d <= outer {
				canvas.SetNRGBA(x, y, c)
			}
		}
	}
}

// strokeRect strokes the rectangle inward with the given width.
func strokeRect(canvas *image.NRGBA, r image.Rectangle, width int, c color.NRGBA) {
	fillRect(canvas, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	fillRect(canvas, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	fillRect(canvas, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), c)
	fillRect(canvas, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// strokeRectDashed strokes the rectangle inward with a dashed pattern.
func strokeRectDashed(canvas *image.NRGBA, r image.Rectangle, width int, c color.NRGBA) {
	for x := r.Min.X; x < r.Max.X; x += dashOnPx + dashOffPx {
		end := minInt(x+dashOnPx, r.Max.X)
		fillRect(canvas, image.Rect(x, r.Min.Y, end, r.Min.Y+width), c)
		fillRect(canvas, image.Rect(x, r.Max.Y-width, end, r.Max.Y), c)
	}
	for y := r.Min.Y; y < r.Max.Y; y += dashOnPx + dashOffPx {
		end := minInt(y+dashOnPx, r.Max.Y)
		fillRect(canvas, image.Rect(r.Min.X, y, r.Min.X+width, end), c)
		fillRect(canvas, image.Rect(r.Max.X-width, y, r.Max.X, end), c)
	}
}

// fillRect fills a rectangle clipped to the canvas.
func fillRect(canvas *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(canvas.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			canvas.SetNRGBA(x, y, c)
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
