package meshgen

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/rreng/internal/engine/terrain"
	"github.com/Faultbox/rreng/internal/engine/terrain/meshtree"
	"github.com/Faultbox/rreng/pkg/heightfield"
)

// collector records installed results.
type collector struct {
	results []Result
}

func (c *collector) Install(res Result) {
	c.results = append(c.results, res)
}

func flatRequest(col int) Request {
	patch := heightfield.New(17, 17)
	patch.Fill(1)
	return Request{
		Layer:      terrain.LayerElevation,
		Block:      meshtree.BlockID{Col: col},
		Quality:    terrain.Quality{Threshold: 0.5, Spacing: 1},
		Patch:      patch,
		Resolution: mgl32.Vec3{1, 1, 1},
	}
}

func TestQueueBuildsAndInstalls(t *testing.T) {
	c := &collector{}
	q := NewQueue(Options{Workers: 2, Installer: c, Log: zap.NewNop()})
	defer q.Close()

	for i := range 5 {
		q.Queue(flatRequest(i))
	}
	if n := q.Drain(); n != 5 {
		t.Errorf("Drain() = %d, want 5", n)
	}
	if q.Pending() != 0 {
		t.Errorf("Pending() = %d after Drain, want 0", q.Pending())
	}

	seen := make(map[int]bool)
	for _, res := range c.results {
		if res.Err != nil {
			t.Fatalf("result %s error = %v", res.Block, res.Err)
		}
		if got := res.Geometry.TriangleCount(); got != 2 {
			t.Errorf("flat block built %d triangles, want 2", got)
		}
		seen[res.Block.Col] = true
	}
	if len(seen) != 5 {
		t.Errorf("installed blocks %v, want 5 distinct", seen)
	}
}

func TestQueueNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32
	build := func(req Request) (*terrain.Geometry, error) {
		started.Add(1)
		<-release
		return &terrain.Geometry{}, nil
	}

	c := &collector{}
	q := NewQueue(Options{Workers: 1, Installer: c, Build: build, Log: zap.NewNop()})
	defer q.Close()

	for i := range 4 {
		q.Queue(flatRequest(i))
	}
	if q.Pending() != 4 {
		t.Errorf("Pending() = %d, want 4", q.Pending())
	}
	if n := q.PollAndHarvest(); n != 0 {
		t.Errorf("PollAndHarvest() = %d while builds are blocked, want 0", n)
	}

	close(release)
	if n := q.Drain(); n != 4 {
		t.Errorf("Drain() = %d, want 4", n)
	}
	if got := started.Load(); got != 4 {
		t.Errorf("builds started = %d, want 4", got)
	}
	// The backlog runs in FIFO order on the single worker.
	for i, res := range c.results {
		if res.Block.Col != i {
			t.Errorf("result %d is block %s, want column %d", i, res.Block, i)
		}
	}
}

func TestQueueRecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	build := func(req Request) (*terrain.Geometry, error) {
		if req.Block.Col == 1 {
			panic("bad patch")
		}
		return BuildBlock(req)
	}

	c := &collector{}
	q := NewQueue(Options{Workers: 2, Installer: c, Build: build, Log: zap.New(core)})
	defer q.Close()

	q.Queue(flatRequest(0))
	q.Queue(flatRequest(1))
	q.Drain()

	failed := 0
	for _, res := range c.results {
		if res.Block.Col == 1 {
			if !errors.Is(res.Err, ErrBuildPanic) {
				t.Errorf("panicking build error = %v, want ErrBuildPanic", res.Err)
			}
			if res.Geometry != nil {
				t.Error("panicking build returned geometry")
			}
			failed++
		} else if res.Err != nil {
			t.Errorf("healthy build error = %v", res.Err)
		}
	}
	if failed != 1 {
		t.Errorf("failed results = %d, want 1", failed)
	}
	if n := logs.FilterMessage("mesh build panicked").Len(); n != 1 {
		t.Errorf("panic logged %d times, want 1", n)
	}
}

func TestQueueBuildError(t *testing.T) {
	wantErr := errors.New("no memory")
	build := func(Request) (*terrain.Geometry, error) { return nil, wantErr }

	c := &collector{}
	q := NewQueue(Options{Workers: 1, Installer: c, Build: build, Log: zap.NewNop()})
	defer q.Close()

	q.Queue(flatRequest(0))
	q.Drain()
	if len(c.results) != 1 || !errors.Is(c.results[0].Err, wantErr) {
		t.Errorf("results = %+v, want one failed with %v", c.results, wantErr)
	}
}

func TestQueueClose(t *testing.T) {
	release := make(chan struct{})
	build := func(Request) (*terrain.Geometry, error) {
		<-release
		return &terrain.Geometry{}, nil
	}

	c := &collector{}
	q := NewQueue(Options{Workers: 1, Installer: c, Build: build, Log: zap.NewNop()})
	q.Queue(flatRequest(0))
	q.Queue(flatRequest(1))

	close(release)
	q.Close()
	if q.Pending() != 0 {
		t.Errorf("Pending() = %d after Close, want 0", q.Pending())
	}

	q.Queue(flatRequest(2))
	if n := q.PollAndHarvest(); n != 1 {
		t.Fatalf("PollAndHarvest() = %d after Close, want 1", n)
	}
	last := c.results[len(c.results)-1]
	if !errors.Is(last.Err, ErrQueueClosed) {
		t.Errorf("queue after Close error = %v, want ErrQueueClosed", last.Err)
	}
	q.Close()
}

func TestQueueDrainLongBacklog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := &collector{}
	q := NewQueue(Options{Workers: 1, Installer: c, Log: zap.New(core)})

	for i := range 50 {
		q.Queue(flatRequest(i))
	}
	if n := q.Drain(); n != 50 {
		t.Errorf("Drain() = %d, want 50", n)
	}
	if q.Pending() != 0 {
		t.Errorf("Pending() = %d after Drain, want 0", q.Pending())
	}
	q.Close()

	if n := logs.FilterMessage("mesh worker failed").Len(); n != 0 {
		t.Errorf("logged %d worker failures, want 0", n)
	}
	closed := logs.FilterMessage("mesh queue closed").All()
	if len(closed) != 1 || closed[0].ContextMap()["dropped"] != int64(0) {
		t.Errorf("close log = %+v, want one entry with nothing dropped", closed)
	}
}
