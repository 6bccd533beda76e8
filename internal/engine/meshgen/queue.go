// Package meshgen builds terrain block meshes on a bounded worker pool.
//
// Queueing never blocks the frame thread: a request either starts on a free
// worker or waits in a backlog until PollAndHarvest finds one. Results are
// handed back to an Installer on the frame thread, in PollAndHarvest.
package meshgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Faultbox/rreng/internal/engine/terrain"
	"github.com/Faultbox/rreng/internal/engine/terrain/meshtree"
	"github.com/Faultbox/rreng/internal/logger"
	"github.com/Faultbox/rreng/pkg/heightfield"
)

// Queue errors.
var (
	ErrBuildPanic  = errors.New("mesh build panicked")
	ErrQueueClosed = errors.New("mesh queue closed")
)

// Request is everything a worker needs to build one block mesh. Patch is a
// private copy taken when the request was made.
type Request struct {
	Layer      terrain.Layer
	Block      meshtree.BlockID
	Quality    terrain.Quality
	Patch      *heightfield.Array2
	Resolution mgl32.Vec3
	Range      heightfield.Range2 // grid cells the patch was sampled from
	Epoch      uint64
	Seq        uint64 // grows with every request for the same layer
}

// Result is a finished request.
type Result struct {
	Request
	Geometry *terrain.Geometry
	Err      error
	Elapsed  time.Duration
}

// Installer consumes results on the frame thread. Install must not call
// back into the Queue.
type Installer interface {
	Install(res Result)
}

// InstallerFunc adapts a function to Installer.
type InstallerFunc func(res Result)

// Install calls f(res).
func (f InstallerFunc) Install(res Result) { f(res) }

// BuildFunc turns a request into geometry.
type BuildFunc func(req Request) (*terrain.Geometry, error)

// BuildBlock triangulates the request patch at its quality tier.
func BuildBlock(req Request) (*terrain.Geometry, error) {
	return terrain.BuildBlockGeometry(req.Patch, req.Quality, req.Resolution), nil
}

// Task is one queued request.
type Task struct {
	req  Request
	done chan Result
	res  *Result
}

// Request returns the request the task was queued with.
func (t *Task) Request() Request {
	return t.req
}

// ready reports whether the result has arrived, without blocking.
func (t *Task) ready() bool {
	if t.res != nil {
		return true
	}
	select {
	case r := <-t.done:
		t.res = &r
		return true
	default:
		return false
	}
}

func (t *Task) wait() {
	if t.res == nil {
		r := <-t.done
		t.res = &r
	}
}

// Options configures a Queue.
type Options struct {
	Workers   int
	Installer Installer
	Build     BuildFunc // defaults to BuildBlock
	Log       *zap.Logger
}

// Queue runs mesh builds off the frame thread. Every method except the
// workers themselves must be called from the frame thread.
type Queue struct {
	build     BuildFunc
	installer Installer
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	backlog  []*Task
	inflight []*Task
	closed   bool

	depthLog rate.Sometimes
}

// NewQueue starts a queue with opts.Workers concurrent builds.
func NewQueue(opts Options) *Queue {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Build == nil {
		opts.Build = BuildBlock
	}
	if opts.Log == nil {
		opts.Log = logger.Named("meshgen")
	}
	if opts.Installer == nil {
		opts.Installer = InstallerFunc(func(Result) {})
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		build:     opts.Build,
		installer: opts.Installer,
		log:       opts.Log,
		ctx:       ctx,
		cancel:    cancel,
		depthLog:  rate.Sometimes{Interval: time.Second},
	}
	q.group.SetLimit(opts.Workers)
	return q
}

// Queue schedules req and returns immediately. After Close the task
// completes at once with ErrQueueClosed.
func (q *Queue) Queue(req Request) *Task {
	t := &Task{req: req, done: make(chan Result, 1)}
	if q.closed {
		t.res = &Result{Request: req, Err: ErrQueueClosed}
		q.inflight = append(q.inflight, t)
		return t
	}
	if q.group.TryGo(q.worker(t)) {
		q.inflight = append(q.inflight, t)
	} else {
		q.backlog = append(q.backlog, t)
	}
	return t
}

func (q *Queue) worker(t *Task) func() error {
	return func() error {
		start := time.Now()
		res := Result{Request: t.req}
		defer func() {
			if r := recover(); r != nil {
				res.Geometry = nil
				res.Err = fmt.Errorf("%w: %v", ErrBuildPanic, r)
				q.log.Error("mesh build panicked",
					zap.Stringer("layer", t.req.Layer),
					zap.Stringer("block", t.req.Block),
					zap.Any("panic", r))
			}
			res.Elapsed = time.Since(start)
			t.done <- res
		}()

		if err := q.ctx.Err(); err != nil {
			res.Err = err
			return nil
		}
		res.Geometry, res.Err = q.build(t.req)
		// Build errors travel in the result.
		return nil
	}
}

// start moves backlog tasks onto free workers in FIFO order.
func (q *Queue) start() {
	n := 0
	for _, t := range q.backlog {
		if q.closed || !q.group.TryGo(q.worker(t)) {
			break
		}
		q.inflight = append(q.inflight, t)
		n++
	}
	q.backlog = q.backlog[n:]
}

// PollAndHarvest starts backlog tasks on free workers and installs every
// finished result. It never blocks and returns the number installed.
func (q *Queue) PollAndHarvest() int {
	installed := q.harvest()
	q.start()

	q.depthLog.Do(func() {
		if q.Pending() > 0 {
			q.log.Debug("mesh queue depth",
				zap.Int("running", len(q.inflight)),
				zap.Int("backlog", len(q.backlog)))
		}
	})
	return installed
}

func (q *Queue) harvest() int {
	installed := 0
	remaining := q.inflight[:0]
	for _, t := range q.inflight {
		if !t.ready() {
			remaining = append(remaining, t)
			continue
		}
		q.installer.Install(*t.res)
		installed++
	}
	clear(q.inflight[len(remaining):])
	q.inflight = remaining
	return installed
}

// Drain blocks until every queued task has been installed and returns the
// number installed.
func (q *Queue) Drain() int {
	installed := 0
	for q.Pending() > 0 {
		installed += q.PollAndHarvest()
		switch {
		case len(q.inflight) > 0:
			q.inflight[0].wait()
		case len(q.backlog) > 0:
			// Every result is in but some worker slots are still held.
			q.waitWorkers()
		}
	}
	return installed
}

// waitWorkers blocks until every started worker has returned.
func (q *Queue) waitWorkers() {
	if err := q.group.Wait(); err != nil {
		q.log.Warn("mesh worker failed", zap.Error(err))
	}
}

// Pending returns the number of tasks not yet installed.
func (q *Queue) Pending() int {
	return len(q.backlog) + len(q.inflight)
}

// Close cancels builds that have not started, drops the backlog and waits
// for running workers. Results still unharvested are discarded.
func (q *Queue) Close() {
	if q.closed {
		return
	}
	q.closed = true
	q.cancel()
	dropped := len(q.backlog)
	q.backlog = nil
	q.waitWorkers()
	q.inflight = nil
	q.log.Debug("mesh queue closed", zap.Int("dropped", dropped))
}
