package world

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rreng/internal/engine/terrain"
)

// ArrivalThreshold is the distance at which a worker has reached a waypoint.
const ArrivalThreshold = 0.01

// Behaviour is what a worker is currently doing.
type Behaviour uint8

// Worker behaviours.
const (
	Idle Behaviour = iota
	Walking
)

func (b Behaviour) String() string {
	if b == Walking {
		return "walking"
	}
	return "idle"
}

// Worker is a ground-bound agent wandering the terrain.
type Worker struct {
	ID        int
	Position  mgl32.Vec3
	Behaviour Behaviour
	Target    mgl32.Vec3    // final destination while walking
	Since     time.Duration // controller time of the last behaviour change

	path      []mgl32.Vec2
	pathIndex int
}

// Path returns the remaining waypoints as scene (x, z).
func (w *Worker) Path() []mgl32.Vec2 {
	return w.path[w.pathIndex:]
}

// WorkerOptions configures the worker population.
type WorkerOptions struct {
	Count    int
	Speed    float32       // scene units per second
	IdleTime time.Duration // pause before picking the next target
	Path     PathOptions
	Seed     int64
}

// DefaultWorkerOptions returns the stock worker settings.
func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		Count:    8,
		Speed:    4,
		IdleTime: 10 * time.Second,
		Path:     DefaultPathOptions(),
		Seed:     1,
	}
}

// WorkerController moves workers along terrain paths and keeps them on the
// ground. It is respawned on every terrain reset.
type WorkerController struct {
	svc     *TerrainService
	opts    WorkerOptions
	rng     *rand.Rand
	workers []*Worker
	elapsed time.Duration
	log     *zap.Logger
}

// NewWorkerController creates a controller that spawns opts.Count workers
// whenever svc is reset.
func NewWorkerController(svc *TerrainService, opts WorkerOptions, log *zap.Logger) *WorkerController {
	if log == nil {
		log = svc.log.Named("workers")
	}
	c := &WorkerController{
		svc:  svc,
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
		log:  log,
	}
	svc.OnReset(func(terrain.Terrain) {
		c.Spawn(c.opts.Count)
	})
	return c
}

// Workers returns the current population.
func (c *WorkerController) Workers() []*Worker {
	return c.workers
}

// Spawn replaces the population with n idle workers at random positions.
func (c *WorkerController) Spawn(n int) {
	c.workers = c.workers[:0]
	t, ok := c.svc.Terrain()
	if !ok {
		return
	}
	extent := t.SceneExtent()
	for i := range n {
		p := c.randomPoint(extent)
		c.workers = append(c.workers, &Worker{
			ID:       i + 1,
			Position: mgl32.Vec3{p.X(), c.svc.InterpolatedElevationAt(p), p.Y()},
			Since:    c.elapsed,
		})
	}
	c.log.Debug("workers spawned", zap.Int("count", n))
}

func (c *WorkerController) randomPoint(extent mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{c.rng.Float32() * extent.X(), c.rng.Float32() * extent.Y()}
}

// pathFinder builds a finder over the current ground layer.
func (c *WorkerController) pathFinder() (*PathFinder, terrain.Terrain, bool) {
	store := c.svc.Store()
	if store == nil {
		return nil, terrain.Terrain{}, false
	}
	t := store.Terrain()
	dims := t.PointDims()
	return NewPathFinder(StoreHeights(store, terrain.LayerElevation), dims[0], dims[1], c.opts.Path), t, true
}

// MoveTo sends w towards the scene point target. It reports whether a
// walkable path was found.
func (c *WorkerController) MoveTo(w *Worker, target mgl32.Vec2) bool {
	pf, t, ok := c.pathFinder()
	if !ok {
		return false
	}
	sr, sc, ok := t.SceneToCell(mgl32.Vec2{w.Position.X(), w.Position.Z()})
	if !ok {
		return false
	}
	gr, gc, ok := t.SceneToCell(target)
	if !ok {
		return false
	}
	cells := pf.FindPath(Cell{sr, sc}, Cell{gr, gc})
	if cells == nil {
		return false
	}

	// Skip the first node as it's the current cell; the exact target ends it.
	path := make([]mgl32.Vec2, 0, len(cells))
	for _, cell := range cells[1:] {
		path = append(path, t.CellToScene(cell[0], cell[1]))
	}
	if len(path) > 0 {
		path[len(path)-1] = target
	} else {
		path = append(path, target)
	}

	w.path = path
	w.pathIndex = 0
	w.Behaviour = Walking
	w.Target = mgl32.Vec3{target.X(), c.svc.InterpolatedElevationAt(target), target.Y()}
	w.Since = c.elapsed
	return true
}

// Stop makes w idle where it stands.
func (c *WorkerController) Stop(w *Worker) {
	w.path = nil
	w.pathIndex = 0
	w.Behaviour = Idle
	w.Since = c.elapsed
}

// Update advances every worker by dt.
func (c *WorkerController) Update(dt time.Duration) {
	c.elapsed += dt
	for _, w := range c.workers {
		switch w.Behaviour {
		case Idle:
			if c.elapsed-w.Since > c.opts.IdleTime {
				c.wander(w)
			}
		case Walking:
			c.advance(w, dt)
		}
		// The ground may have been edited under the worker.
		w.Position[1] = c.svc.InterpolatedElevationAt(mgl32.Vec2{w.Position.X(), w.Position.Z()})
	}
}

func (c *WorkerController) wander(w *Worker) {
	t, ok := c.svc.Terrain()
	if !ok {
		return
	}
	target := c.randomPoint(t.SceneExtent())
	if !c.MoveTo(w, target) {
		// Try again after the next idle period.
		w.Since = c.elapsed
		return
	}
	c.log.Debug("worker target set", zap.Int("worker", w.ID), zap.Float32s("target", w.Target[:]))
}

// advance moves w towards its next waypoint at constant speed.
func (c *WorkerController) advance(w *Worker, dt time.Duration) {
	if w.pathIndex >= len(w.path) {
		c.arrive(w)
		return
	}
	dest := w.path[w.pathIndex]
	dx := dest.X() - w.Position.X()
	dz := dest.Y() - w.Position.Z()
	dist := float32(math.Sqrt(float64(dx*dx + dz*dz)))

	moveAmount := c.opts.Speed * float32(dt.Seconds())
	if dist > 0 {
		moveAmount = min(moveAmount, dist)
		w.Position[0] += dx / dist * moveAmount
		w.Position[2] += dz / dist * moveAmount
	}

	if dist-moveAmount < ArrivalThreshold {
		w.Position[0], w.Position[2] = dest.X(), dest.Y()
		w.pathIndex++
		if w.pathIndex >= len(w.path) {
			c.arrive(w)
		}
	}
}

func (c *WorkerController) arrive(w *Worker) {
	c.Stop(w)
	c.log.Debug("worker reached target", zap.Int("worker", w.ID))
}
