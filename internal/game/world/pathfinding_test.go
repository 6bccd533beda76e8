package world

import (
	"testing"

	"github.com/Faultbox/rreng/pkg/heightfield"
)

// mockGrid creates a flat grid at height 1 with flooded cells below water.
func mockGrid(rows, cols int, flooded []Cell) *heightfield.Array2 {
	a := heightfield.New(rows, cols)
	a.Fill(1)
	for _, c := range flooded {
		if a.InBounds(c[0], c[1]) {
			a.Set(c[0], c[1], -1)
		}
	}
	return a
}

func newFinder(a *heightfield.Array2, opts PathOptions) *PathFinder {
	rows, cols := a.Dim()
	return NewPathFinder(GridHeights(a), rows, cols, opts)
}

func TestPathFinder_FindPath_Simple(t *testing.T) {
	pf := newFinder(mockGrid(5, 5, nil), DefaultPathOptions())

	path := pf.FindPath(Cell{0, 0}, Cell{4, 4})
	if path == nil {
		t.Fatal("expected path, got nil")
	}
	if path[0] != (Cell{0, 0}) {
		t.Errorf("path should start at (0,0), got %v", path[0])
	}
	if last := path[len(path)-1]; last != (Cell{4, 4}) {
		t.Errorf("path should end at (4,4), got %v", last)
	}
	if len(path) != 5 {
		t.Errorf("expected diagonal path of 5 cells, got %d", len(path))
	}
}

func TestPathFinder_FindPath_AroundWater(t *testing.T) {
	flooded := []Cell{{0, 2}, {1, 2}, {2, 2}, {3, 2}}
	pf := newFinder(mockGrid(5, 5, flooded), DefaultPathOptions())

	path := pf.FindPath(Cell{2, 0}, Cell{2, 4})
	if path == nil {
		t.Fatal("expected path around water, got nil")
	}
	for _, p := range path {
		if p[1] == 2 && p[0] < 4 {
			t.Errorf("path went through flooded cell %v", p)
		}
	}
}

func TestPathFinder_FindPath_NoPath(t *testing.T) {
	flooded := []Cell{{0, 2}, {1, 2}, {2, 2}, {3, 2}, {4, 2}}
	pf := newFinder(mockGrid(5, 5, flooded), DefaultPathOptions())

	if path := pf.FindPath(Cell{2, 0}, Cell{2, 4}); path != nil {
		t.Errorf("expected no path, got %v", path)
	}
}

func TestPathFinder_FindPath_SameStartGoal(t *testing.T) {
	pf := newFinder(mockGrid(5, 5, nil), DefaultPathOptions())

	path := pf.FindPath(Cell{2, 2}, Cell{2, 2})
	if len(path) != 1 {
		t.Errorf("expected path length 1, got %d", len(path))
	}
}

func TestPathFinder_FindPath_OutOfBounds(t *testing.T) {
	pf := newFinder(mockGrid(5, 5, nil), DefaultPathOptions())

	if path := pf.FindPath(Cell{-1, 0}, Cell{4, 4}); path != nil {
		t.Error("expected nil for out of bounds start")
	}
	if path := pf.FindPath(Cell{0, 0}, Cell{10, 10}); path != nil {
		t.Error("expected nil for out of bounds goal")
	}
}

func TestPathFinder_FindPath_FloodedGoal(t *testing.T) {
	pf := newFinder(mockGrid(5, 5, []Cell{{4, 4}}), DefaultPathOptions())

	if path := pf.FindPath(Cell{0, 0}, Cell{4, 4}); path != nil {
		t.Error("expected nil for flooded goal")
	}
}

func TestPathFinder_Cliff(t *testing.T) {
	// Columns 3 and up form a plateau 5 units high.
	a := heightfield.FromFunc(5, 5, func(_, col int) float32 {
		if col >= 3 {
			return 5
		}
		return 0
	})

	if path := newFinder(a, DefaultPathOptions()).FindPath(Cell{0, 0}, Cell{0, 4}); path != nil {
		t.Errorf("climbed a cliff: %v", path)
	}

	opts := DefaultPathOptions()
	opts.MaxStep = 10
	if path := newFinder(a, opts).FindPath(Cell{0, 0}, Cell{0, 4}); path == nil {
		t.Error("expected path with a large max step")
	}
}

func TestPathFinder_AvoidsClimbing(t *testing.T) {
	// A low bump in the middle of row 1.
	a := heightfield.FromFunc(3, 5, func(row, col int) float32 {
		if row == 1 && col >= 1 && col <= 3 {
			return 1
		}
		return 0
	})
	opts := DefaultPathOptions()
	opts.ClimbCost = 5

	path := newFinder(a, opts).FindPath(Cell{1, 0}, Cell{1, 4})
	if path == nil {
		t.Fatal("expected path")
	}
	for _, p := range path {
		if p[0] == 1 && p[1] >= 1 && p[1] <= 3 {
			t.Errorf("path crossed the bump at %v: %v", p, path)
		}
	}
}

func TestPathFinder_IsWalkable(t *testing.T) {
	pf := newFinder(mockGrid(5, 5, []Cell{{2, 2}}), DefaultPathOptions())

	if pf.IsWalkable(Cell{2, 2}) {
		t.Error("expected (2,2) to be flooded")
	}
	if !pf.IsWalkable(Cell{0, 0}) {
		t.Error("expected (0,0) to be walkable")
	}
	if pf.IsWalkable(Cell{-1, 0}) || pf.IsWalkable(Cell{5, 5}) {
		t.Error("expected out of bounds to be unwalkable")
	}
}

func TestNewPathFinder_Nil(t *testing.T) {
	if pf := NewPathFinder(nil, 5, 5, DefaultPathOptions()); pf != nil {
		t.Error("expected nil pathfinder for nil heights")
	}
	var pf *PathFinder
	if pf.FindPath(Cell{0, 0}, Cell{1, 1}) != nil {
		t.Error("nil pathfinder returned a path")
	}
}
