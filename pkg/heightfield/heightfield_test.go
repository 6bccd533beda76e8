package heightfield

import "testing"

func TestRestrictRanges(t *testing.T) {
	tests := []struct {
		name             string
		from, to         Range
		limit            int
		wantFrom, wantTo Range
	}{
		{"inside", Range{0, 10}, Range{0, 10}, 10, Range{0, 10}, Range{0, 10}},
		{"negative offset", Range{0, 10}, Range{-5, 5}, 10, Range{5, 10}, Range{0, 5}},
		{"overhang", Range{0, 10}, Range{5, 15}, 10, Range{0, 5}, Range{5, 10}},
		{"both sides", Range{0, 20}, Range{-5, 15}, 10, Range{5, 15}, Range{0, 10}},
		{"miss before", Range{0, 4}, Range{-10, -6}, 10, Range{}, Range{}},
		{"miss after", Range{0, 4}, Range{12, 16}, 10, Range{}, Range{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := tt.from, tt.to
			RestrictRanges(&from, &to, tt.limit)
			if from != tt.wantFrom || to != tt.wantTo {
				t.Errorf("RestrictRanges() = (%v, %v), want (%v, %v)", from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestCopyableRange(t *testing.T) {
	from, to := CopyableRange(65, -10, 129)
	if from != (Range{10, 65}) || to != (Range{0, 55}) {
		t.Errorf("CopyableRange() = (%v, %v), want (10..65, 0..55)", from, to)
	}
	if from.Len() != to.Len() {
		t.Errorf("ranges differ in length: %d vs %d", from.Len(), to.Len())
	}
}

func TestRange2Overlaps(t *testing.T) {
	a := NewRange2(0, 65, 0, 65)
	tests := []struct {
		name  string
		other Range2
		want  bool
	}{
		{"shared edge row", NewRange2(64, 129, 0, 65), true},
		{"touching only", NewRange2(65, 129, 0, 65), false},
		{"disjoint", NewRange2(100, 110, 100, 110), false},
		{"contained", NewRange2(10, 11, 10, 11), true},
		{"empty", Range2{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRange2ExpandTo(t *testing.T) {
	var r Range2
	if !r.Empty() {
		t.Fatal("zero Range2 should be empty")
	}

	r.ExpandTo(5, 7)
	if r != NewRange2(5, 6, 7, 8) {
		t.Errorf("first ExpandTo = %v, want 1x1 at (5,7)", r)
	}

	r.ExpandTo(2, 9)
	r.ExpandTo(6, 1)
	if r != NewRange2(2, 7, 1, 10) {
		t.Errorf("ExpandTo() = %v, want [2..7, 1..10]", r)
	}
}

func TestRange2Union(t *testing.T) {
	a := NewRange2(0, 2, 0, 2)
	b := NewRange2(5, 6, 1, 8)
	if got := a.Union(b); got != NewRange2(0, 6, 0, 8) {
		t.Errorf("Union() = %v", got)
	}
	if got := a.Union(Range2{}); got != a {
		t.Errorf("Union(empty) = %v, want %v", got, a)
	}
}

func TestStrided(t *testing.T) {
	a := FromFunc(9, 9, func(r, c int) float32 { return float32(r*100 + c) })

	s := a.Strided(NewRange2(0, 9, 0, 9), 4)
	if s.Rows != 3 || s.Cols != 3 {
		t.Fatalf("Strided() dims = %dx%d, want 3x3", s.Rows, s.Cols)
	}
	if got := s.At(2, 1); got != 804 {
		t.Errorf("Strided().At(2,1) = %v, want 804", got)
	}

	full := a.Strided(NewRange2(4, 9, 4, 9), 1)
	if full.Rows != 5 || full.At(0, 0) != 404 || full.At(4, 4) != 808 {
		t.Errorf("unit stride copy wrong: %dx%d first=%v last=%v", full.Rows, full.Cols, full.At(0, 0), full.At(4, 4))
	}

	// Mutating the copy must not touch the source.
	full.Set(0, 0, -1)
	if a.At(4, 4) != 404 {
		t.Error("Strided() returned a view instead of a copy")
	}
}

func TestAssign(t *testing.T) {
	dst := New(4, 4)
	src := FromRows([][]float32{
		{1, 2, 3},
		{4, 5, 6},
	})
	dst.Assign(NewRange2(2, 4, 1, 3), src, NewRange2(0, 2, 1, 3))

	want := [][]float32{
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 2, 3, 0},
		{0, 5, 6, 0},
	}
	if !dst.Equal(FromRows(want)) {
		t.Errorf("Assign() = %v, want %v", dst.Data, want)
	}
}
