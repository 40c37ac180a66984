// Package page composes rendered cards onto print pages: grid layout, cut
// guides, registration marks and the final raster.
package page

import "image"

// CardLayout is the physical footprint of one slot occupant. Bleed width
// varies card to card, so layouts are computed per card, not per page.
// BleedPx is the total bleed growth per dimension; the generator puts half
// on the leading edge and the remainder on the trailing edge.
type CardLayout struct {
	CardWidthPx  int
	CardHeightPx int
	BleedPx      int
}

// ContentRect returns the content rectangle inside a card drawn at origin,
// with the bleed band removed using the same lead/trail split the bleed
// generator uses, so odd pixel totals keep the cut on the true boundary.
func (l CardLayout) ContentRect(origin image.Point) image.Rectangle {
	lead := l.BleedPx / 2
	trail := l.BleedPx - lead
	return image.Rect(
		origin.X+lead,
		origin.Y+lead,
		origin.X+l.CardWidthPx-trail,
		origin.Y+l.CardHeightPx-trail,
	)
}

// Grid is the computed page layout. Column widths and row heights are the
// maximum over the cards occupying that column or row, so heterogeneous
// bleed sizes still tile without overlap.
type Grid struct {
	Columns    int
	Rows       int
	ColWidths  []int
	RowHeights []int
	ColOffsets []int
	RowOffsets []int
	SpacingPx  int
	StartX     int
	StartY     int
}

// BuildGrid computes the grid for a row-major slice of layouts. Slots
// beyond len(layouts) and zero-value layouts are empty; they contribute
// nothing to column and row maxima. The grid is centered on the page.
func BuildGrid(layouts []CardLayout, columns, rows, spacingPx, pageWidthPx, pageHeightPx int) Grid {
	g := Grid{
		Columns:    columns,
		Rows:       rows,
		ColWidths:  make([]int, columns),
		RowHeights: make([]int, rows),
		ColOffsets: make([]int, columns),
		RowOffsets: make([]int, rows),
		SpacingPx:  spacingPx,
	}

	for i, l := range layouts {
		col, row := i%columns, i/columns
		if row >= rows {
			break
		}
		if l.CardWidthPx > g.ColWidths[col] {
			g.ColWidths[col] = l.CardWidthPx
		}
		if l.CardHeightPx > g.RowHeights[row] {
			g.RowHeights[row] = l.CardHeightPx
		}
	}

	totalW := spacingPx * (columns - 1)
	for c := 1; c < columns; c++ {
		g.ColOffsets[c] = g.ColOffsets[c-1] + g.ColWidths[c-1] + spacingPx
	}
	for _, w := range g.ColWidths {
		totalW += w
	}

	totalH := spacingPx * (rows - 1)
	for r := 1; r < rows; r++ {
		g.RowOffsets[r] = g.RowOffsets[r-1] + g.RowHeights[r-1] + spacingPx
	}
	for _, h := range g.RowHeights {
		totalH += h
	}

	g.StartX = (pageWidthPx - totalW) / 2
	g.StartY = (pageHeightPx - totalH) / 2
	return g
}

// SlotRect returns the full slot rectangle for a grid position.
func (g Grid) SlotRect(col, row int) image.Rectangle {
	x := g.StartX + g.ColOffsets[col]
	y := g.StartY + g.RowOffsets[row]
	return image.Rect(x, y, x+g.ColWidths[col], y+g.RowHeights[row])
}

// CardOrigin returns the top-left point for drawing a card into its slot,
// centered on any size mismatch between the card and the slot.
func (g Grid) CardOrigin(col, row int, l CardLayout) image.Point {
	slot := g.SlotRect(col, row)
	return image.Pt(
		slot.Min.X+(slot.Dx()-l.CardWidthPx)/2,
		slot.Min.Y+(slot.Dy()-l.CardHeightPx)/2,
	)
}
