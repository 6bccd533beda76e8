package lod

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rreng/internal/engine/terrain/meshtree"
)

const blockSize = 64

// fakeMeshes places every mesh at the centre of its block footprint.
type fakeMeshes struct {
	centers map[meshtree.MeshID]mgl32.Vec3
	visible map[meshtree.MeshID]bool
	calls   int
}

func newFakeMeshes() *fakeMeshes {
	return &fakeMeshes{
		centers: make(map[meshtree.MeshID]mgl32.Vec3),
		visible: make(map[meshtree.MeshID]bool),
	}
}

func (f *fakeMeshes) Center(id meshtree.MeshID) (mgl32.Vec3, bool) {
	c, ok := f.centers[id]
	return c, ok
}

func (f *fakeMeshes) SetVisible(id meshtree.MeshID, visible bool) {
	f.calls++
	f.visible[id] = visible
}

// populate installs a mesh at id centred on its footprint.
func (f *fakeMeshes) populate(tree *meshtree.Tree, id meshtree.BlockID) meshtree.MeshID {
	mesh := meshtree.MeshID(len(f.centers) + 1)
	size := float32(int(blockSize) << id.Level)
	f.centers[mesh] = mgl32.Vec3{(float32(id.Col) + 0.5) * size, 0, (float32(id.Row) + 0.5) * size}
	tree.SetMesh(id, mesh)
	return mesh
}

func populateAll(tree *meshtree.Tree, f *fakeMeshes) {
	tree.Walk(func(t *meshtree.Tree, id meshtree.BlockID) bool {
		if t.Valid(id) {
			f.populate(t, id)
		}
		return true
	})
}

// checkOneLOD asserts that every root to leaf path with a mesh shows exactly one.
func checkOneLOD(t *testing.T, tree *meshtree.Tree, f *fakeMeshes) {
	t.Helper()
	var walk func(id meshtree.BlockID, populated, visible int)
	walk = func(id meshtree.BlockID, populated, visible int) {
		if e := tree.Entry(id); e.Kind == meshtree.Populated {
			populated++
			if f.visible[e.Mesh] {
				visible++
			}
		}
		children := tree.Children(id)
		if len(children) == 0 {
			if visible > 1 {
				t.Errorf("path to %s shows %d levels", id, visible)
			}
			if populated > 0 && visible == 0 {
				t.Errorf("path to %s has %d meshes but shows none", id, populated)
			}
			return
		}
		for _, c := range children {
			walk(c, populated, visible)
		}
	}
	for _, root := range tree.Roots() {
		walk(root, 0, 0)
	}
}

func TestCutoff(t *testing.T) {
	s := NewSelector(256)
	if got := s.Cutoff(0); got != 256 {
		t.Errorf("Cutoff(0) = %v, want 256", got)
	}
	if got := s.Cutoff(3); got != 2048 {
		t.Errorf("Cutoff(3) = %v, want 2048", got)
	}
}

func TestSelectNearAndFar(t *testing.T) {
	tree := meshtree.New([2]int{2, 2}, 1)
	f := newFakeMeshes()
	populateAll(tree, f)
	root := tree.Entry(meshtree.BlockID{Level: 1}).Mesh
	leaf := tree.Entry(meshtree.BlockID{Row: 1, Col: 1}).Mesh

	s := NewSelector(64)
	near := mgl32.Vec3{64, 10, 64}
	st := s.Select(tree, near, f)
	if f.visible[root] {
		t.Error("root visible with camera near")
	}
	if !f.visible[leaf] {
		t.Error("leaf hidden with camera near")
	}
	if st.Shown != 4 || st.Hidden != 1 {
		t.Errorf("Select(near) = %+v, want 4 shown 1 hidden", st)
	}
	checkOneLOD(t, tree, f)

	far := mgl32.Vec3{64, 10, 5000}
	st = s.Select(tree, far, f)
	if !f.visible[root] || f.visible[leaf] {
		t.Error("camera far: want root shown and leaves hidden")
	}
	if st.Shown != 1 || st.Hidden != 4 {
		t.Errorf("Select(far) = %+v, want 1 shown 4 hidden", st)
	}
	checkOneLOD(t, tree, f)
}

func TestSelectKeepsCoarseUntilChildrenReady(t *testing.T) {
	tree := meshtree.New([2]int{2, 2}, 1)
	f := newFakeMeshes()
	root := f.populate(tree, meshtree.BlockID{Level: 1})
	child := f.populate(tree, meshtree.BlockID{Row: 0, Col: 0})

	s := NewSelector(1e6)
	s.Select(tree, mgl32.Vec3{}, f)
	if !f.visible[root] {
		t.Error("root hidden while only one child is ready")
	}
	if f.visible[child] {
		t.Error("partial child shown alongside its parent")
	}
	checkOneLOD(t, tree, f)
}

func TestSelectDescendsThroughEmptyNodes(t *testing.T) {
	tree := meshtree.New([2]int{2, 2}, 1)
	f := newFakeMeshes()
	child := f.populate(tree, meshtree.BlockID{Row: 1, Col: 0})

	NewSelector(1).Select(tree, mgl32.Vec3{0, 0, 1e6}, f)
	if !f.visible[child] {
		t.Error("leaf under an empty root not shown")
	}
}

func TestSelectIrregularTree(t *testing.T) {
	tree := meshtree.New([2]int{7, 3}, 2)
	f := newFakeMeshes()
	populateAll(tree, f)

	NewSelector(64).Select(tree, mgl32.Vec3{32, 0, 32}, f)
	checkOneLOD(t, tree, f)
}

func TestSelectRandomPopulations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := range 50 {
		tree := meshtree.New([2]int{4, 4}, 2)
		f := newFakeMeshes()
		tree.Walk(func(t *meshtree.Tree, id meshtree.BlockID) bool {
			if t.Valid(id) && rng.Intn(3) > 0 {
				f.populate(t, id)
			}
			return true
		})

		s := NewSelector(float32(16 + rng.Intn(128)))
		for range 3 {
			camera := mgl32.Vec3{rng.Float32() * 256, rng.Float32() * 50, rng.Float32() * 256}
			s.Select(tree, camera, f)
			checkOneLOD(t, tree, f)
			if t.Failed() {
				t.Fatalf("trial %d camera %v", trial, camera)
			}
		}
	}
}

func TestUpdateOnlyWhenNeeded(t *testing.T) {
	tree := meshtree.New([2]int{2, 2}, 1)
	f := newFakeMeshes()
	populateAll(tree, f)
	trees := []*meshtree.Tree{tree}

	s := NewSelector(64)
	camera := mgl32.Vec3{10, 10, 10}
	if _, ran := s.Update(trees, camera, f); !ran {
		t.Error("first Update() did not run")
	}
	if _, ran := s.Update(trees, camera, f); ran {
		t.Error("Update() ran with a still camera")
	}
	s.Invalidate()
	if _, ran := s.Update(trees, camera, f); !ran {
		t.Error("Update() skipped after Invalidate")
	}
	if _, ran := s.Update(trees, camera.Add(mgl32.Vec3{1, 0, 0}), f); !ran {
		t.Error("Update() skipped after the camera moved")
	}
}
