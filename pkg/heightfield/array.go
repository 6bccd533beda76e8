// Package heightfield provides a dense 2D float32 grid and the rectangular
// range arithmetic used to copy patches between grids.
package heightfield

import "fmt"

// Array2 is a dense row-major 2D array of float32 values.
type Array2 struct {
	Rows int
	Cols int
	Data []float32
}

// New returns a zero-filled array with the given dimensions.
func New(rows, cols int) *Array2 {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("heightfield: negative dimensions %dx%d", rows, cols))
	}
	return &Array2{
		Rows: rows,
		Cols: cols,
		Data: make([]float32, rows*cols),
	}
}

// FromRows builds an array from a slice of equally sized rows.
func FromRows(rows [][]float32) *Array2 {
	if len(rows) == 0 {
		return New(0, 0)
	}
	a := New(len(rows), len(rows[0]))
	for r, row := range rows {
		if len(row) != a.Cols {
			panic(fmt.Sprintf("heightfield: row %d has %d columns, want %d", r, len(row), a.Cols))
		}
		copy(a.Data[r*a.Cols:], row)
	}
	return a
}

// FromFunc builds an array by evaluating fn at every cell.
func FromFunc(rows, cols int, fn func(row, col int) float32) *Array2 {
	a := New(rows, cols)
	for r := range rows {
		for c := range cols {
			a.Data[r*cols+c] = fn(r, c)
		}
	}
	return a
}

// Dim returns the number of rows and columns.
func (a *Array2) Dim() (rows, cols int) {
	return a.Rows, a.Cols
}

// Bounds returns the full extent of the array as a Range2.
func (a *Array2) Bounds() Range2 {
	return NewRange2(0, a.Rows, 0, a.Cols)
}

// InBounds reports whether (row, col) addresses a cell of the array.
func (a *Array2) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < a.Rows && col < a.Cols
}

// At returns the value at (row, col). It panics when out of bounds.
func (a *Array2) At(row, col int) float32 {
	if !a.InBounds(row, col) {
		panic(fmt.Sprintf("heightfield: index (%d,%d) out of bounds %dx%d", row, col, a.Rows, a.Cols))
	}
	return a.Data[row*a.Cols+col]
}

// Set stores v at (row, col). It panics when out of bounds.
func (a *Array2) Set(row, col int, v float32) {
	if !a.InBounds(row, col) {
		panic(fmt.Sprintf("heightfield: index (%d,%d) out of bounds %dx%d", row, col, a.Rows, a.Cols))
	}
	a.Data[row*a.Cols+col] = v
}

// Fill sets every cell to v.
func (a *Array2) Fill(v float32) {
	for i := range a.Data {
		a.Data[i] = v
	}
}

// Clone returns a deep copy of the array.
func (a *Array2) Clone() *Array2 {
	out := &Array2{Rows: a.Rows, Cols: a.Cols, Data: make([]float32, len(a.Data))}
	copy(out.Data, a.Data)
	return out
}

// Equal reports whether both arrays have the same shape and contents.
func (a *Array2) Equal(other *Array2) bool {
	if a.Rows != other.Rows || a.Cols != other.Cols {
		return false
	}
	for i, v := range a.Data {
		if other.Data[i] != v {
			return false
		}
	}
	return true
}

// Strided copies the cells of r taking every stride-th row and column,
// starting at the range's first cell. The range is clipped to the array.
func (a *Array2) Strided(r Range2, stride int) *Array2 {
	if stride < 1 {
		panic(fmt.Sprintf("heightfield: invalid stride %d", stride))
	}
	r = a.clip(r)
	if r.Empty() {
		return New(0, 0)
	}
	rows := (r.Rows.Len() + stride - 1) / stride
	cols := (r.Cols.Len() + stride - 1) / stride
	out := New(rows, cols)
	for i := range rows {
		src := (r.Rows.Start+i*stride)*a.Cols + r.Cols.Start
		dst := i * cols
		if stride == 1 {
			copy(out.Data[dst:dst+cols], a.Data[src:src+cols])
			continue
		}
		for j := range cols {
			out.Data[dst+j] = a.Data[src+j*stride]
		}
	}
	return out
}

// Assign copies src[from] into the receiver at to. Both ranges must have
// identical extents and lie inside their arrays.
func (a *Array2) Assign(to Range2, src *Array2, from Range2) {
	if to.Rows.Len() != from.Rows.Len() || to.Cols.Len() != from.Cols.Len() {
		panic(fmt.Sprintf("heightfield: assign shape mismatch %s <- %s", to, from))
	}
	if to.Empty() {
		return
	}
	width := to.Cols.Len()
	for i := range to.Rows.Len() {
		d := (to.Rows.Start+i)*a.Cols + to.Cols.Start
		s := (from.Rows.Start+i)*src.Cols + from.Cols.Start
		copy(a.Data[d:d+width], src.Data[s:s+width])
	}
}

func (a *Array2) clip(r Range2) Range2 {
	r.Rows.Start = max(r.Rows.Start, 0)
	r.Cols.Start = max(r.Cols.Start, 0)
	r.Rows.End = min(r.Rows.End, a.Rows)
	r.Cols.End = min(r.Cols.End, a.Cols)
	return r
}
