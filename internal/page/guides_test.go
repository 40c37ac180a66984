package page

import (
	"image"
	"image/color"
	"testing"
)

var markColor = color.NRGBA{0, 0, 0, 255}

func blankCanvas(w, h int) *image.NRGBA {
	c := image.NewNRGBA(image.Rect(0, 0, w, h))
	fillRect(c, c.Bounds(), color.NRGBA{255, 255, 255, 255})
	return c
}

func isMark(c *image.NRGBA, x, y int) bool {
	return c.NRGBAAt(x, y) == markColor
}

func TestDrawPageCutLines_FullSpansPage(t *testing.T) {
	c := blankCanvas(100, 100)
	DrawPageCutLines(c, []int{50}, nil, PageLinesFull, 1, markColor)

	if !isMark(c, 50, 0) || !isMark(c, 50, 50) || !isMark(c, 50, 99) {
		t.Error("full mode must span the whole page height")
	}
}

func TestDrawPageCutLines_EdgeStopsAtTicks(t *testing.T) {
	c := blankCanvas(100, 100)
	DrawPageCutLines(c, []int{50}, nil, PageLinesEdge, 1, markColor)

	if !isMark(c, 50, 0) || !isMark(c, 50, 99) {
		t.Error("edge mode must tick at both page edges")
	}
	if isMark(c, 50, 50) {
		t.Error("edge mode must not cross the page middle")
	}
}

func TestDrawPageCutLines_NoneAndUnsetDrawNothing(t *testing.T) {
	for _, mode := range []PageLineMode{PageLinesNone, ""} {
		c := blankCanvas(100, 100)
		DrawPageCutLines(c, []int{50}, []int{50}, mode, 1, markColor)
		if isMark(c, 50, 0) || isMark(c, 0, 50) {
			t.Errorf("mode %q drew lines", mode)
		}
	}
}

func TestDrawCardGuides_PlacementShiftsStroke(t *testing.T) {
	cut := image.Rect(40, 40, 60, 60)

	inside := blankCanvas(100, 100)
	DrawCardGuides(inside, cut, GuideSpec{Style: GuideSolidRect, Placement: PlacementInside, WidthPx: 2, Color: markColor})
	if !isMark(inside, 40, 40) {
		t.Error("inside placement must stroke within the cut boundary")
	}
	if isMark(inside, 38, 38) {
		t.Error("inside placement must not spill outside the cut boundary")
	}

	outside := blankCanvas(100, 100)
	DrawCardGuides(outside, cut, GuideSpec{Style: GuideSolidRect, Placement: PlacementOutside, WidthPx: 2, Color: markColor})
	if !isMark(outside, 38, 38) {
		t.Error("outside placement must stroke beyond the cut boundary")
	}
	if isMark(outside, 41, 41) {
		t.Error("outside placement must leave the content untouched")
	}
}

func TestDrawCardGuides_NoneDrawsNothing(t *testing.T) {
	c := blankCanvas(100, 100)
	DrawCardGuides(c, image.Rect(40, 40, 60, 60), GuideSpec{Style: GuideNone, WidthPx: 2, Color: markColor})
	DrawCardGuides(c, image.Rect(40, 40, 60, 60), GuideSpec{Style: GuideSolidRect, WidthPx: 0, Color: markColor})

	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if isMark(c, x, y) {
				t.Fatalf("unexpected mark at (%d,%d)", x, y)
			}
		}
	}
}

func TestDrawCardGuides_CornersLeaveEdgeMiddleClear(t *testing.T) {
	c := blankCanvas(100, 100)
	DrawCardGuides(c, image.Rect(20, 20, 80, 80), GuideSpec{Style: GuideCorners, Placement: PlacementInside, WidthPx: 2, ArmPx: 10, Color: markColor})

	if !isMark(c, 20, 20) || !isMark(c, 79, 79) {
		t.Error("corner guides must mark the corners")
	}
	if isMark(c, 50, 20) {
		t.Error("corner guides must not stroke the edge middle")
	}
}

func TestDrawRegistrationMarks_ThreePointAnchorsByOrientation(t *testing.T) {
	// Portrait: solid square top-left. The square center is filled; the
	// top-right L-mark leaves its center open.
	portrait := blankCanvas(200, 300)
	DrawRegistrationMarks(portrait, Reg3Point, 10, 20, 3, markColor)
	if !isMark(portrait, 20, 20) {
		t.Error("portrait 3-point: top-left square center not filled")
	}
	if isMark(portrait, 200-10-10, 20) {
		t.Error("portrait 3-point: top-right must be an open L-mark")
	}

	// Landscape: square moves to the top-right.
	landscape := blankCanvas(300, 200)
	DrawRegistrationMarks(landscape, Reg3Point, 10, 20, 3, markColor)
	if !isMark(landscape, 300-10-10, 20) {
		t.Error("landscape 3-point: top-right square center not filled")
	}
	if isMark(landscape, 20, 20) {
		t.Error("landscape 3-point: top-left must be an open L-mark")
	}
}

func TestDrawRegistrationMarks_FourPointMarksEveryCorner(t *testing.T) {
	c := blankCanvas(200, 300)
	DrawRegistrationMarks(c, Reg4Point, 10, 20, 3, markColor)

	// Each corner L has a horizontal bar on the page-edge side.
	checks := []image.Point{
		{15, 10},        // top-left horizontal bar
		{185, 10},       // top-right
		{15, 300 - 13},  // bottom-left
		{185, 300 - 13}, // bottom-right
	}
	for _, p := range checks {
		if !isMark(c, p.X, p.Y) {
			t.Errorf("missing 4-point mark near (%d,%d)", p.X, p.Y)
		}
	}
	// No solid square in 4-point mode.
	if isMark(c, 20, 20) {
		t.Error("4-point mode must not fill a solid square")
	}
}
