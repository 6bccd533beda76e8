// Package world owns the terrain of the loaded map and drives its per-frame
// mesh pipeline: dirty blocks are rebuilt on background workers, finished
// meshes are installed into the per-layer mesh trees and the LOD selector
// decides which of them are shown.
package world

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rreng/internal/config"
	"github.com/Faultbox/rreng/internal/engine/camera"
	"github.com/Faultbox/rreng/internal/engine/lod"
	"github.com/Faultbox/rreng/internal/engine/meshgen"
	"github.com/Faultbox/rreng/internal/engine/picking"
	"github.com/Faultbox/rreng/internal/engine/scene"
	"github.com/Faultbox/rreng/internal/engine/terrain"
	"github.com/Faultbox/rreng/internal/engine/terrain/meshtree"
	"github.com/Faultbox/rreng/internal/engine/water"
	"github.com/Faultbox/rreng/internal/logger"
	"github.com/Faultbox/rreng/pkg/heightfield"
)

// CameraHeightRange is the vertical focus range of the camera.
const CameraHeightRange = 1000

// LayerSpec holds the render parameters of one layer.
type LayerSpec struct {
	Layer        terrain.Layer
	Material     string
	HeightOffset float32
}

// MapSpec describes a map to reset the terrain to.
type MapSpec struct {
	Bounds     terrain.Rect
	Size       [2]int // rows, cols
	BlockSize  int
	CellSize   float32
	Resolution mgl32.Vec3
	Layers     []LayerSpec
}

// MapSpecFromConfig builds the map description from the config.
func MapSpecFromConfig(cfg *config.Config) (MapSpec, error) {
	m := cfg.Map
	spec := MapSpec{
		Bounds:     terrain.NewRect(m.Bounds.MinX, m.Bounds.MinY, m.Bounds.MaxX, m.Bounds.MaxY),
		Size:       [2]int{m.Rows, m.Cols},
		BlockSize:  cfg.Terrain.BlockSize,
		CellSize:   m.CellSize,
		Resolution: mgl32.Vec3{m.Resolution.X, m.Resolution.Y, m.Resolution.Z},
	}
	for _, lc := range m.Layers {
		l, err := terrain.ParseLayer(lc.Name)
		if err != nil {
			return MapSpec{}, fmt.Errorf("map layers: %w", err)
		}
		spec.Layers = append(spec.Layers, LayerSpec{Layer: l, Material: lc.Material, HeightOffset: lc.HeightOffset})
	}
	return spec, nil
}

// ResetListener is notified after the terrain was reset.
type ResetListener func(t terrain.Terrain)

// Progress counts built meshes against the meshes the trees can hold.
type Progress struct {
	Populated int
	Valid     int
	Pending   int // mesh tasks not yet installed
}

// Fraction returns the built share in [0, 1].
func (p Progress) Fraction() float32 {
	if p.Valid == 0 {
		return 0
	}
	return float32(p.Populated) / float32(p.Valid)
}

// Done reports whether every tree node has a mesh and nothing is queued.
func (p Progress) Done() bool {
	return p.Valid > 0 && p.Populated == p.Valid && p.Pending == 0
}

// FrameStats summarizes one Frame call.
type FrameStats struct {
	Scheduled int
	Installed int
	Selected  bool
	LOD       lod.Stats
	Dirty     int
	Pending   int
}

type layerState struct {
	spec LayerSpec
	tree *meshtree.Tree

	seq       uint64
	installed map[meshtree.BlockID]uint64 // Seq of the mesh in the tree
}

// TerrainService owns the elevation store, the per-layer mesh trees and the
// mesh pipeline of the current map. All methods must be called from the
// frame thread.
type TerrainService struct {
	cfg     *config.Config
	quality terrain.QualityPolicy
	log     *zap.Logger

	scene    *scene.Scene
	queue    *meshgen.Queue
	selector *lod.Selector
	camera   *camera.OrbitCamera
	water    *water.Plane

	store   *terrain.Store
	layers  []*layerState
	byLayer map[terrain.Layer]*layerState
	epoch   uint64

	installed int
	listeners []ResetListener
}

// NewTerrainService creates the service. The terrain is empty until Reset.
func NewTerrainService(cfg *config.Config, backend scene.Backend, log *zap.Logger) (*TerrainService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("terrain service: %w", err)
	}
	if log == nil {
		log = logger.Named("world")
	}

	s := &TerrainService{
		cfg: cfg,
		quality: terrain.QualityPolicy{
			BaseThreshold:    cfg.Terrain.Quality.BaseThreshold,
			Growth:           cfg.Terrain.Quality.Growth,
			FullDetailLevel0: cfg.Terrain.Quality.FullDetailLevel0,
		},
		log:      log,
		scene:    scene.New(backend, log.Named("scene")),
		selector: lod.NewSelector(cfg.LODCutoff()),
		camera:   camera.NewOrbitCamera(),
	}
	s.queue = meshgen.NewQueue(meshgen.Options{
		Workers:   cfg.WorkerCount(),
		Installer: meshgen.InstallerFunc(s.install),
		Log:       log.Named("meshgen"),
	})

	s.OnReset(func(t terrain.Terrain) {
		s.camera.FitToTerrain(t.SceneExtent(), CameraHeightRange)
		s.water = water.ForExtent(t.SceneExtent())
	})
	return s, nil
}

// OnReset registers a listener called after every Reset.
func (s *TerrainService) OnReset(fn ResetListener) {
	s.listeners = append(s.listeners, fn)
}

// Reset replaces the terrain with an empty one for spec. Meshes of the
// previous terrain are released and results of tasks queued before the
// reset are discarded when they arrive.
func (s *TerrainService) Reset(spec MapSpec) error {
	t, err := terrain.NewTerrain(spec.Bounds, spec.Size, spec.BlockSize)
	if err != nil {
		return err
	}
	if spec.CellSize > 0 {
		t.CellSize = spec.CellSize
	}
	if spec.Resolution != (mgl32.Vec3{}) {
		t.Resolution = spec.Resolution
	}
	if len(spec.Layers) == 0 {
		return fmt.Errorf("%w: no layers", terrain.ErrInvalidGeometry)
	}

	layers := make([]terrain.Layer, 0, len(spec.Layers))
	for _, ls := range spec.Layers {
		layers = append(layers, ls.Layer)
	}
	store, err := terrain.NewStore(t, layers, s.log.Named("terrain"))
	if err != nil {
		return err
	}

	s.epoch++
	s.scene.Clear()
	s.store = store
	s.layers = s.layers[:0]
	s.byLayer = make(map[terrain.Layer]*layerState, len(spec.Layers))
	for _, ls := range spec.Layers {
		st := &layerState{
			spec:      ls,
			tree:      meshtree.New(t.NumBlocks, s.cfg.Terrain.MaxMeshTreeLevel),
			installed: make(map[meshtree.BlockID]uint64),
		}
		s.layers = append(s.layers, st)
		s.byLayer[ls.Layer] = st
	}
	s.selector.Invalidate()

	s.log.Info("terrain reset",
		zap.Int("rows", t.Size[0]), zap.Int("cols", t.Size[1]),
		zap.Int("block_size", t.BlockSize),
		zap.Ints("num_blocks", t.NumBlocks[:]),
		zap.Int("layers", len(s.layers)),
		zap.Int("tree_levels", s.layers[0].tree.NumLevels()),
		zap.Uint64("epoch", s.epoch))

	for _, fn := range s.listeners {
		fn(t)
	}
	return nil
}

// Terrain returns the current grid geometry.
func (s *TerrainService) Terrain() (terrain.Terrain, bool) {
	if s.store == nil {
		return terrain.Terrain{}, false
	}
	return s.store.Terrain(), true
}

// Store returns the elevation store, nil before the first Reset.
func (s *TerrainService) Store() *terrain.Store { return s.store }

// Tree returns the mesh tree of a layer.
func (s *TerrainService) Tree(l terrain.Layer) (*meshtree.Tree, bool) {
	st, ok := s.byLayer[l]
	if !ok {
		return nil, false
	}
	return st.tree, true
}

// Scene returns the mesh registry.
func (s *TerrainService) Scene() *scene.Scene { return s.scene }

// Camera returns the camera used for LOD selection.
func (s *TerrainService) Camera() *camera.OrbitCamera { return s.camera }

// Water returns the water plane, nil before the first Reset.
func (s *TerrainService) Water() *water.Plane { return s.water }

// IngestTile copies a tile of heights whose map-coordinate rectangle is rect
// into layer l. Tiles that miss the map are skipped.
func (s *TerrainService) IngestTile(l terrain.Layer, rect terrain.Rect, heights *heightfield.Array2) (heightfield.Range2, error) {
	if s.store == nil {
		return heightfield.Range2{}, terrain.ErrNotReset
	}
	t := s.store.Terrain()
	if !rect.Intersects(t.Bounds) {
		s.log.Debug("tile outside map skipped", zap.Stringer("layer", l))
		return heightfield.Range2{}, nil
	}
	row, col := t.CoordToOffset(mgl32.Vec2{rect.Min.X(), rect.Max.Y()})
	return s.store.SetElevation(l, row, col, heights)
}

// ApplyPointEdit sets the height under scene point p on layer l.
func (s *TerrainService) ApplyPointEdit(l terrain.Layer, p mgl32.Vec2, height float32) (heightfield.Range2, error) {
	if s.store == nil {
		return heightfield.Range2{}, terrain.ErrNotReset
	}
	return s.store.ApplyPointEdit(l, p, height)
}

// RaisePoint raises the height under scene point p on layer l by delta.
func (s *TerrainService) RaisePoint(l terrain.Layer, p mgl32.Vec2, delta float32) (heightfield.Range2, error) {
	if s.store == nil {
		return heightfield.Range2{}, terrain.ErrNotReset
	}
	return s.store.RaisePoint(l, p, delta)
}

// ApplyDragEdit levels layer l along the path from start to end.
func (s *TerrainService) ApplyDragEdit(l terrain.Layer, start, end mgl32.Vec2) (heightfield.Range2, error) {
	if s.store == nil {
		return heightfield.Range2{}, terrain.ErrNotReset
	}
	return s.store.ApplyDragEdit(l, start, end)
}

// ElevationAt returns the ground height at a scene point (x, z), or
// terrain.NoElevation outside the map.
func (s *TerrainService) ElevationAt(p mgl32.Vec2) float32 {
	if s.store == nil {
		return terrain.NoElevation
	}
	return s.store.ElevationAt(terrain.LayerElevation, p)
}

// InterpolatedElevationAt returns the bilinearly sampled ground height.
func (s *TerrainService) InterpolatedElevationAt(p mgl32.Vec2) float32 {
	if s.store == nil {
		return terrain.NoElevation
	}
	return s.store.InterpolatedElevationAt(terrain.LayerElevation, p)
}

// PickRay returns the point where r first hits a visible ground mesh.
func (s *TerrainService) PickRay(r picking.Ray) (mgl32.Vec3, bool) {
	hit, ok := picking.PickScene(r, s.scene, terrain.LayerElevation)
	return hit.Point, ok
}

// PickScreen casts a ray through a viewport pixel from the camera and
// returns the ground point under it.
func (s *TerrainService) PickScreen(x, y, width, height float32) (mgl32.Vec3, bool) {
	if width <= 0 || height <= 0 {
		return mgl32.Vec3{}, false
	}
	viewProj := s.camera.ProjectionMatrix(width / height).Mul4(s.camera.ViewMatrix())
	return s.PickRay(picking.ScreenToRay(x, y, width, height, viewProj.Inv()))
}

// UpdateMeshes schedules rebuilds for up to blocks_per_frame dirty blocks and
// every valid ancestor of them, on every layer, then clears the dirty flags
// of blocks not written again meanwhile. It returns the number of tasks queued.
func (s *TerrainService) UpdateMeshes() int {
	if s.store == nil {
		return 0
	}
	infos := s.store.DirtyBlocks(s.cfg.Terrain.BlocksPerFrame)
	if len(infos) == 0 {
		return 0
	}

	shape := s.layers[0].tree
	seen := make(map[meshtree.BlockID]struct{})
	var blocks []meshtree.BlockID
	add := func(id meshtree.BlockID) {
		if _, dup := seen[id]; dup || !shape.Valid(id) {
			return
		}
		seen[id] = struct{}{}
		blocks = append(blocks, id)
	}
	for _, info := range infos {
		leaf := meshtree.BlockID{Row: info.Block.Row, Col: info.Block.Col}
		add(leaf)
		for _, anc := range shape.Ancestors(leaf) {
			add(anc)
		}
	}
	// Coarse levels first, they cover more ground.
	slices.SortStableFunc(blocks, func(a, b meshtree.BlockID) int {
		return cmp.Compare(b.Level, a.Level)
	})

	queued := 0
	for _, id := range blocks {
		for _, st := range s.layers {
			if err := s.queueMeshTask(st, id); err != nil {
				s.log.Error("queue mesh task", zap.Stringer("block", id), zap.Error(err))
				continue
			}
			queued++
		}
	}
	cleared := s.store.ClearDirty(infos)

	s.log.Debug("meshes scheduled",
		zap.Int("dirty_blocks", len(infos)),
		zap.Int("cleared", cleared),
		zap.Int("tasks", queued))
	return queued
}

func (s *TerrainService) queueMeshTask(st *layerState, id meshtree.BlockID) error {
	t := s.store.Terrain()
	patch, err := s.store.BlockSnapshot(st.spec.Layer, id)
	if err != nil {
		return err
	}
	st.seq++
	s.queue.Queue(meshgen.Request{
		Layer:      st.spec.Layer,
		Block:      id,
		Quality:    s.quality.For(id.Level),
		Patch:      patch,
		Resolution: t.Resolution,
		Range:      terrain.BlockRange(t.BlockSize, id),
		Epoch:      s.epoch,
		Seq:        st.seq,
	})
	return nil
}

// install puts a finished mesh into the scene and its tree, releasing the
// mesh it replaces. Failed builds re-mark their blocks dirty. Tasks finish
// out of order: a result older than the mesh installed for its block is
// dropped.
func (s *TerrainService) install(res meshgen.Result) {
	if res.Epoch != s.epoch {
		s.log.Debug("stale mesh dropped", zap.Stringer("block", res.Block), zap.Uint64("epoch", res.Epoch))
		return
	}
	st := s.byLayer[res.Layer]
	if res.Seq < st.installed[res.Block] {
		s.log.Debug("superseded mesh dropped",
			zap.Stringer("layer", res.Layer),
			zap.Stringer("block", res.Block),
			zap.Uint64("seq", res.Seq))
		return
	}
	if res.Err != nil {
		s.log.Warn("mesh build failed",
			zap.Stringer("layer", res.Layer),
			zap.Stringer("block", res.Block),
			zap.Error(res.Err))
		s.store.DirtyRange(res.Range)
		return
	}

	t := s.store.Terrain()
	id, err := s.scene.Add(scene.Object{
		Layer:     res.Layer,
		Block:     res.Block,
		Quality:   res.Quality,
		Geometry:  res.Geometry,
		Transform: terrain.BlockTransform(t, res.Block, st.spec.HeightOffset),
		Material:  st.spec.Material,
	})
	if err != nil {
		s.log.Warn("mesh upload failed", zap.Stringer("block", res.Block), zap.Error(err))
		s.store.DirtyRange(res.Range)
		return
	}

	if old, replaced := st.tree.SetMesh(res.Block, id); replaced {
		s.scene.Remove(old)
	}
	st.installed[res.Block] = res.Seq
	s.installed++
	s.selector.Invalidate()
}

// HarvestMeshes installs every finished mesh task without blocking.
func (s *TerrainService) HarvestMeshes() int {
	return s.queue.PollAndHarvest()
}

// Flush blocks until every queued mesh task has been installed.
func (s *TerrainService) Flush() int {
	return s.queue.Drain()
}

// SelectMeshes updates mesh visibility for the camera position. Without
// force it only runs when the camera moved or meshes changed.
func (s *TerrainService) SelectMeshes(force bool) (lod.Stats, bool) {
	if force {
		s.selector.Invalidate()
	}
	trees := make([]*meshtree.Tree, 0, len(s.layers))
	for _, st := range s.layers {
		trees = append(trees, st.tree)
	}
	return s.selector.Update(trees, s.camera.Position(), s.scene)
}

// Frame runs one tick of the pipeline: schedule, harvest, select.
func (s *TerrainService) Frame() FrameStats {
	var fs FrameStats
	fs.Scheduled = s.UpdateMeshes()
	fs.Installed = s.HarvestMeshes()
	fs.LOD, fs.Selected = s.SelectMeshes(false)
	if s.store != nil {
		fs.Dirty = s.store.DirtyCount()
	}
	fs.Pending = s.queue.Pending()
	return fs
}

// Progress counts populated and valid nodes over every layer's tree.
func (s *TerrainService) Progress() Progress {
	p := Progress{Pending: s.queue.Pending()}
	for _, st := range s.layers {
		populated, valid := st.tree.Progress()
		p.Populated += populated
		p.Valid += valid
	}
	return p
}

// Installed returns the number of meshes installed since creation.
func (s *TerrainService) Installed() int { return s.installed }

// Close stops the workers and releases every mesh.
func (s *TerrainService) Close() {
	s.queue.Close()
	s.scene.Clear()
	s.log.Debug("terrain service closed", zap.Int("installed", s.installed))
}
