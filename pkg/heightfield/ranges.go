package heightfield

import "fmt"

// Range is a half-open interval [Start, End) of grid indices.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices covered by the range.
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether the range covers no indices.
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// Contains reports whether i lies in the range.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// String returns the range as "start..end".
func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Start, r.End)
}

// Range2 is a rectangular region of a grid, given as half-open row and column ranges.
type Range2 struct {
	Rows Range
	Cols Range
}

// NewRange2 builds a Range2 from row and column bounds.
func NewRange2(rowStart, rowEnd, colStart, colEnd int) Range2 {
	return Range2{
		Rows: Range{Start: rowStart, End: rowEnd},
		Cols: Range{Start: colStart, End: colEnd},
	}
}

// Empty reports whether either sub-range is empty.
func (r Range2) Empty() bool {
	return r.Rows.Empty() || r.Cols.Empty()
}

// Overlaps reports whether the two rectangles intersect.
func (r Range2) Overlaps(other Range2) bool {
	return r.Rows.Start < other.Rows.End && r.Rows.End > other.Rows.Start &&
		r.Cols.Start < other.Cols.End && r.Cols.End > other.Cols.Start
}

// Contains reports whether the cell (row, col) lies inside the rectangle.
func (r Range2) Contains(row, col int) bool {
	return r.Rows.Contains(row) && r.Cols.Contains(col)
}

// ExpandTo grows the rectangle to include the cell (row, col).
// Expanding an empty rectangle yields the 1x1 rectangle at that cell.
func (r *Range2) ExpandTo(row, col int) {
	if r.Empty() {
		r.Rows = Range{Start: row, End: row + 1}
		r.Cols = Range{Start: col, End: col + 1}
		return
	}
	r.Rows.Start = min(r.Rows.Start, row)
	r.Rows.End = max(r.Rows.End, row+1)
	r.Cols.Start = min(r.Cols.Start, col)
	r.Cols.End = max(r.Cols.End, col+1)
}

// Union returns the bounding rectangle of both ranges. Empty ranges are ignored.
func (r Range2) Union(other Range2) Range2 {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	return Range2{
		Rows: Range{Start: min(r.Rows.Start, other.Rows.Start), End: max(r.Rows.End, other.Rows.End)},
		Cols: Range{Start: min(r.Cols.Start, other.Cols.Start), End: max(r.Cols.End, other.Cols.End)},
	}
}

// String returns the rectangle as "[rows, cols]".
func (r Range2) String() string {
	return fmt.Sprintf("[%s, %s]", r.Rows, r.Cols)
}

// RestrictRanges clamps a destination range to [0, limit) and shifts the
// source range by the same amount on each side. If either range ends up
// empty both are reset to the empty range.
func RestrictRanges(from, to *Range, limit int) {
	if to.Start < 0 {
		excess := -to.Start
		from.Start += excess
		to.Start += excess
	}
	if to.End > limit {
		excess := to.End - limit
		from.End -= excess
		to.End -= excess
	}
	if from.Empty() || to.Empty() {
		*from = Range{}
		*to = Range{}
	}
}

// CopyableRange computes which part of a source axis of length srcLen,
// placed at offset in a destination axis of length dstLen, can be copied.
// It returns the source and destination ranges, which are always the same length.
func CopyableRange(srcLen, offset, dstLen int) (from, to Range) {
	from = Range{Start: 0, End: srcLen}
	to = Range{Start: offset, End: offset + srcLen}
	RestrictRanges(&from, &to, dstLen)
	return from, to
}
