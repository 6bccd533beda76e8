// Package scene keeps the set of terrain meshes handed to the renderer and
// their visibility. It is owned by the frame thread and is not safe for
// concurrent use.
package scene

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rreng/internal/engine/terrain"
	"github.com/Faultbox/rreng/internal/engine/terrain/meshtree"
	"github.com/Faultbox/rreng/internal/logger"
)

// Backend receives scene changes, typically a GPU renderer. All calls come
// from the frame thread.
type Backend interface {
	Upload(obj *Object) error
	Release(id meshtree.MeshID)
	SetVisible(id meshtree.MeshID, visible bool)
}

// Object is one block mesh placed in the scene.
type Object struct {
	ID        meshtree.MeshID
	Layer     terrain.Layer
	Block     meshtree.BlockID
	Quality   terrain.Quality
	Geometry  *terrain.Geometry
	Transform mgl32.Mat4
	Material  string
	Visible   bool

	// WorldBounds is the geometry box after Transform.
	WorldBounds terrain.Bounds
}

// Center returns the world-space centre of the object's bounds.
func (o *Object) Center() mgl32.Vec3 {
	return o.WorldBounds.Center()
}

// Stats summarizes the scene content.
type Stats struct {
	Objects   int
	Visible   int
	Triangles int
}

// Scene owns every terrain mesh object.
type Scene struct {
	backend Backend
	objects map[meshtree.MeshID]*Object
	nextID  meshtree.MeshID
	log     *zap.Logger
}

// New creates an empty scene. A nil backend discards all changes.
func New(backend Backend, log *zap.Logger) *Scene {
	if backend == nil {
		backend = nopBackend{}
	}
	if log == nil {
		log = logger.Named("scene")
	}
	return &Scene{
		backend: backend,
		objects: make(map[meshtree.MeshID]*Object),
		nextID:  1,
		log:     log,
	}
}

// Add registers obj under a fresh id and uploads it. The object starts
// hidden unless obj.Visible is set.
func (s *Scene) Add(obj Object) (meshtree.MeshID, error) {
	if obj.Geometry == nil {
		return 0, fmt.Errorf("scene: add %s %s: nil geometry", obj.Layer, obj.Block)
	}
	obj.ID = s.nextID
	obj.WorldBounds = obj.Geometry.Bounds.Transform(obj.Transform)

	o := &obj
	if err := s.backend.Upload(o); err != nil {
		return 0, fmt.Errorf("scene: upload %s %s: %w", obj.Layer, obj.Block, err)
	}
	s.nextID++
	s.objects[o.ID] = o
	return o.ID, nil
}

// Remove releases the object. It reports whether id was present.
func (s *Scene) Remove(id meshtree.MeshID) bool {
	if _, ok := s.objects[id]; !ok {
		return false
	}
	delete(s.objects, id)
	s.backend.Release(id)
	return true
}

// Get returns the object with the given id.
func (s *Scene) Get(id meshtree.MeshID) (*Object, bool) {
	o, ok := s.objects[id]
	return o, ok
}

// Center returns the world-space centre of a mesh.
func (s *Scene) Center(id meshtree.MeshID) (mgl32.Vec3, bool) {
	o, ok := s.objects[id]
	if !ok {
		return mgl32.Vec3{}, false
	}
	return o.Center(), true
}

// SetVisible shows or hides a mesh. The backend is only told about changes.
func (s *Scene) SetVisible(id meshtree.MeshID, visible bool) {
	o, ok := s.objects[id]
	if !ok || o.Visible == visible {
		return
	}
	o.Visible = visible
	s.backend.SetVisible(id, visible)
}

// Visible reports whether a mesh is shown.
func (s *Scene) Visible(id meshtree.MeshID) bool {
	o, ok := s.objects[id]
	return ok && o.Visible
}

// VisibleObjects returns the shown objects of layer l in id order.
func (s *Scene) VisibleObjects(l terrain.Layer) []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.Visible && o.Layer == l {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b *Object) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Len returns the number of objects.
func (s *Scene) Len() int {
	return len(s.objects)
}

// Clear releases every object.
func (s *Scene) Clear() {
	for id := range s.objects {
		s.backend.Release(id)
	}
	if n := len(s.objects); n > 0 {
		s.log.Debug("scene cleared", zap.Int("objects", n))
	}
	clear(s.objects)
}

// Stats counts objects, visible objects and visible triangles.
func (s *Scene) Stats() Stats {
	st := Stats{Objects: len(s.objects)}
	for _, o := range s.objects {
		if !o.Visible {
			continue
		}
		st.Visible++
		st.Triangles += o.Geometry.TriangleCount()
	}
	return st
}

type nopBackend struct{}

func (nopBackend) Upload(*Object) error             { return nil }
func (nopBackend) Release(meshtree.MeshID)          {}
func (nopBackend) SetVisible(meshtree.MeshID, bool) {}
