// Package lod picks which mesh tree level is visible for every part of the
// terrain, based on distance to the camera.
package lod

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rreng/internal/engine/terrain/meshtree"
)

// Meshes is the scene view the selector needs.
type Meshes interface {
	Center(id meshtree.MeshID) (mgl32.Vec3, bool)
	SetVisible(id meshtree.MeshID, visible bool)
}

// Stats counts what one selection pass did.
type Stats struct {
	Shown  int
	Hidden int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Shown += other.Shown
	s.Hidden += other.Hidden
}

// Selector toggles mesh visibility so exactly one level is shown along every
// root to leaf path that has any mesh.
type Selector struct {
	baseCutoff float32

	camera  mgl32.Vec3
	hasLast bool
	stale   bool
}

// NewSelector creates a selector whose level-0 cutoff distance is baseCutoff.
func NewSelector(baseCutoff float32) *Selector {
	return &Selector{baseCutoff: baseCutoff, stale: true}
}

// Cutoff returns the distance under which a level's mesh is replaced by its
// children.
func (s *Selector) Cutoff(level int) float32 {
	return s.baseCutoff * float32(uint(1)<<uint(level))
}

// Invalidate forces the next Update to run, e.g. after new meshes arrived.
func (s *Selector) Invalidate() {
	s.stale = true
}

// Update runs Select over every tree when the camera moved or the selector
// was invalidated. It reports whether a pass ran.
func (s *Selector) Update(trees []*meshtree.Tree, camera mgl32.Vec3, meshes Meshes) (Stats, bool) {
	if s.hasLast && !s.stale && camera == s.camera {
		return Stats{}, false
	}
	var total Stats
	for _, tree := range trees {
		total.Add(s.Select(tree, camera, meshes))
	}
	s.camera = camera
	s.hasLast = true
	s.stale = false
	return total, true
}

// Select walks one tree from its roots. A populated node is replaced by its
// children when the camera is within the level cutoff and all four children
// have meshes; otherwise it is shown and everything below it is hidden.
// Nodes without a mesh are passed through.
func (s *Selector) Select(tree *meshtree.Tree, camera mgl32.Vec3, meshes Meshes) Stats {
	var st Stats
	hide := func(id meshtree.MeshID) {
		meshes.SetVisible(id, false)
		st.Hidden++
	}

	tree.Walk(func(t *meshtree.Tree, id meshtree.BlockID) bool {
		e := t.Entry(id)
		if e.Kind != meshtree.Populated {
			return true
		}

		if id.Level > 0 && childrenPopulated(t, id) {
			if center, ok := meshes.Center(e.Mesh); ok && center.Sub(camera).Len() < s.Cutoff(id.Level) {
				hide(e.Mesh)
				return true
			}
		}

		meshes.SetVisible(e.Mesh, true)
		st.Shown++
		for _, d := range t.Descendants(id) {
			if de := t.Entry(d); de.Kind == meshtree.Populated {
				hide(de.Mesh)
			}
		}
		return false
	})
	return st
}

func childrenPopulated(t *meshtree.Tree, id meshtree.BlockID) bool {
	for _, c := range t.Children(id) {
		if !t.Populated(c) {
			return false
		}
	}
	return true
}
