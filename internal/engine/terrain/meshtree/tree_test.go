package meshtree

import (
	"reflect"
	"testing"
)

func TestNew(t *testing.T) {
	tree := New([2]int{2, 2}, 1)

	if tree.NumLevels() != 2 {
		t.Fatalf("NumLevels() = %d, want 2", tree.NumLevels())
	}
	if rows, cols := tree.Level(0); rows != 2 || cols != 2 {
		t.Errorf("Level(0) = %dx%d, want 2x2", rows, cols)
	}
	if rows, cols := tree.Level(1); rows != 1 || cols != 1 {
		t.Errorf("Level(1) = %dx%d, want 1x1", rows, cols)
	}
	if got := tree.Entry(BlockID{Level: 1}).Kind; got != Pending {
		t.Errorf("root kind = %v, want Pending", got)
	}
}

func TestNewCapsDepth(t *testing.T) {
	tests := []struct {
		blocks   [2]int
		maxLevel int
		want     int
	}{
		{[2]int{1, 1}, 4, 1},
		{[2]int{2, 2}, 4, 2},
		{[2]int{16, 16}, 4, 5},
		{[2]int{64, 64}, 4, 5},
		{[2]int{64, 3}, 4, 3},
		{[2]int{8, 8}, 0, 1},
	}
	for _, tt := range tests {
		tree := New(tt.blocks, tt.maxLevel)
		if tree.NumLevels() != tt.want {
			t.Errorf("New(%v, %d).NumLevels() = %d, want %d", tt.blocks, tt.maxLevel, tree.NumLevels(), tt.want)
		}
	}
}

func TestIrregular(t *testing.T) {
	tree := New([2]int{7, 3}, 2)

	if tree.NumLevels() != 3 {
		t.Fatalf("NumLevels() = %d, want 3", tree.NumLevels())
	}
	wantDims := [][2]int{{8, 4}, {4, 2}, {2, 1}}
	for lvl, want := range wantDims {
		rows, cols := tree.Level(lvl)
		if rows != want[0] || cols != want[1] {
			t.Errorf("Level(%d) = %dx%d, want %dx%d", lvl, rows, cols, want[0], want[1])
		}
	}

	rows, cols := tree.Level(0)
	for r := range rows {
		for c := range cols {
			id := BlockID{Row: r, Col: c}
			wantValid := r < 7 && c < 3
			if tree.Valid(id) != wantValid {
				t.Errorf("Valid(%v) = %v, want %v", id, tree.Valid(id), wantValid)
			}
		}
	}

	// A parent whose children are all invalid must itself be invalid.
	for lvl := 1; lvl < tree.NumLevels(); lvl++ {
		rows, cols := tree.Level(lvl)
		for r := range rows {
			for c := range cols {
				id := BlockID{Row: r, Col: c, Level: lvl}
				anyValid := false
				for _, child := range tree.Children(id) {
					if tree.Valid(child) {
						anyValid = true
					}
				}
				if !anyValid && tree.Valid(id) {
					t.Errorf("%v valid but all children invalid", id)
				}
			}
		}
	}

	if tree.Valid(BlockID{Row: 3, Col: 1, Level: 1}) {
		t.Error("L1(3,1) should be invalid")
	}
	if !tree.Valid(BlockID{Row: 2, Col: 0, Level: 1}) {
		t.Error("L1(2,0) should be valid")
	}
	// Three columns halve to one and then to zero, so the whole top level is
	// outside the map while its valid leaves stay reachable through Walk.
	for _, root := range tree.Roots() {
		if tree.Valid(root) {
			t.Errorf("root %v should be invalid", root)
		}
	}
	leaves := 0
	tree.Walk(func(tr *Tree, id BlockID) bool {
		if id.Level == 0 && tr.Valid(id) {
			leaves++
		}
		return true
	})
	if leaves != 21 {
		t.Errorf("Walk reached %d valid leaves, want 21", leaves)
	}
}

func TestStructure(t *testing.T) {
	tree := New([2]int{2, 2}, 1)
	root := BlockID{Row: 0, Col: 0, Level: 1}
	leaves := []BlockID{
		{Row: 0, Col: 0, Level: 0},
		{Row: 0, Col: 1, Level: 0},
		{Row: 1, Col: 0, Level: 0},
		{Row: 1, Col: 1, Level: 0},
	}

	if got := tree.Ancestors(root); len(got) != 0 {
		t.Errorf("Ancestors(root) = %v, want none", got)
	}
	if got := tree.Ancestors(leaves[0]); !reflect.DeepEqual(got, []BlockID{root}) {
		t.Errorf("Ancestors(leaf) = %v, want [%v]", got, root)
	}
	if got := tree.Children(root); !reflect.DeepEqual(got, leaves) {
		t.Errorf("Children(root) = %v, want %v", got, leaves)
	}
	if got := tree.Children(leaves[0]); got != nil {
		t.Errorf("Children(leaf) = %v, want nil", got)
	}
	if got := tree.Parent(leaves[3]); got != root {
		t.Errorf("Parent(leaf) = %v, want %v", got, root)
	}
	if got := tree.Descendants(root); !reflect.DeepEqual(got, leaves) {
		t.Errorf("Descendants(root) = %v, want %v", got, leaves)
	}

	visited := 0
	tree.Walk(func(*Tree, BlockID) bool {
		visited++
		return true
	})
	if visited != 5 {
		t.Errorf("Walk visited %d nodes, want 5", visited)
	}
}

func TestDescendantsPreOrder(t *testing.T) {
	tree := New([2]int{4, 4}, 2)
	root := BlockID{Level: 2}

	got := tree.Descendants(root)
	if len(got) != 4+16 {
		t.Fatalf("len(Descendants) = %d, want 20", len(got))
	}
	// Pre-order: first child, then its four children, then the second child.
	if got[0] != (BlockID{Level: 1}) || got[1] != (BlockID{Level: 0}) || got[5] != (BlockID{Col: 1, Level: 1}) {
		t.Errorf("Descendants not in pre-order: %v", got[:6])
	}
}

func TestAncestorsDeep(t *testing.T) {
	tree := New([2]int{8, 8}, 3)
	got := tree.Ancestors(BlockID{Row: 5, Col: 6})
	want := []BlockID{
		{Row: 2, Col: 3, Level: 1},
		{Row: 1, Col: 1, Level: 2},
		{Row: 0, Col: 0, Level: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Ancestors() = %v, want %v", got, want)
	}
}

func TestSetMesh(t *testing.T) {
	tree := New([2]int{2, 2}, 1)
	id := BlockID{Row: 1, Col: 0}

	if old, ok := tree.SetMesh(id, 7); ok {
		t.Errorf("first SetMesh returned old mesh %d", old)
	}
	if !tree.Populated(id) {
		t.Error("block should be populated")
	}
	old, ok := tree.SetMesh(id, 9)
	if !ok || old != 7 {
		t.Errorf("SetMesh() = (%d, %v), want (7, true)", old, ok)
	}
	if got := tree.Entry(id); got.Mesh != 9 || got.Kind != Populated {
		t.Errorf("Entry() = %+v, want populated with 9", got)
	}

	populated, valid := tree.Progress()
	if populated != 1 || valid != 5 {
		t.Errorf("Progress() = (%d, %d), want (1, 5)", populated, valid)
	}

	if old, ok := tree.ClearMesh(id); !ok || old != 9 {
		t.Errorf("ClearMesh() = (%d, %v), want (9, true)", old, ok)
	}
	if tree.Populated(id) {
		t.Error("block should be pending after ClearMesh")
	}
}

func TestSetMeshInvalidPanics(t *testing.T) {
	tree := New([2]int{3, 3}, 2)
	defer func() {
		if recover() == nil {
			t.Error("SetMesh on invalid block did not panic")
		}
	}()
	tree.SetMesh(BlockID{Row: 3, Col: 3}, 1)
}

func TestWalkPrunes(t *testing.T) {
	tree := New([2]int{4, 4}, 2)
	var visited []BlockID
	tree.Walk(func(_ *Tree, id BlockID) bool {
		visited = append(visited, id)
		return id.Level == 2
	})
	if len(visited) != 5 {
		t.Errorf("Walk visited %d nodes, want 5 (root + 4 children)", len(visited))
	}
}
