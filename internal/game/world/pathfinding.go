package world

import (
	"container/heap"

	"github.com/Faultbox/rreng/internal/engine/terrain"
	"github.com/Faultbox/rreng/pkg/heightfield"
)

// Cell is a grid point as [row, col].
type Cell [2]int

// HeightSource answers grid height queries for the path finder.
type HeightSource interface {
	HeightAt(row, col int) (float32, bool)
}

type storeHeights struct {
	store *terrain.Store
	layer terrain.Layer
}

func (s storeHeights) HeightAt(row, col int) (float32, bool) {
	return s.store.At(s.layer, row, col)
}

// StoreHeights reads heights from one layer of a store.
func StoreHeights(store *terrain.Store, l terrain.Layer) HeightSource {
	return storeHeights{store: store, layer: l}
}

type gridHeights struct {
	a *heightfield.Array2
}

func (g gridHeights) HeightAt(row, col int) (float32, bool) {
	if !g.a.InBounds(row, col) {
		return 0, false
	}
	return g.a.At(row, col), true
}

// GridHeights reads heights from a plain array.
func GridHeights(a *heightfield.Array2) HeightSource {
	return gridHeights{a: a}
}

// PathOptions limits where workers may walk.
type PathOptions struct {
	MaxStep    float32 // largest height change between neighbouring cells
	WaterLevel float32 // cells below this are flooded
	ClimbCost  float32 // extra cost per height unit climbed or descended
}

// DefaultPathOptions returns the stock walking limits.
func DefaultPathOptions() PathOptions {
	return PathOptions{MaxStep: 1, WaterLevel: 0, ClimbCost: 0.5}
}

// PathNode represents a node in the A* search.
type PathNode struct {
	Row, Col int
	G        float32 // Cost from start
	H        float32 // Heuristic (estimated cost to goal)
	F        float32 // Total cost (G + H)
	Parent   *PathNode
	Index    int // Index in heap
}

// PathHeap implements a priority queue for A* pathfinding.
type PathHeap []*PathNode

func (h PathHeap) Len() int           { return len(h) }
func (h PathHeap) Less(i, j int) bool { return h[i].F < h[j].F }
func (h PathHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].Index = i
	h[j].Index = j
}

func (h *PathHeap) Push(x any) {
	node := x.(*PathNode)
	node.Index = len(*h)
	*h = append(*h, node)
}

func (h *PathHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.Index = -1
	*h = old[:n-1]
	return node
}

// Directions for 8-way movement, straight and diagonal alternating.
var directions = [8]Cell{
	{1, 0},   // S
	{1, -1},  // SW
	{0, -1},  // W
	{-1, -1}, // NW
	{-1, 0},  // N
	{-1, 1},  // NE
	{0, 1},   // E
	{1, 1},   // SE
}

const (
	straightCost = float32(1.0)
	diagonalCost = float32(1.414)
)

// PathFinder finds walkable routes over a height grid.
type PathFinder struct {
	heights HeightSource
	rows    int
	cols    int
	opts    PathOptions
}

// NewPathFinder creates a path finder over a rows x cols grid.
func NewPathFinder(heights HeightSource, rows, cols int, opts PathOptions) *PathFinder {
	if heights == nil || rows <= 0 || cols <= 0 {
		return nil
	}
	return &PathFinder{heights: heights, rows: rows, cols: cols, opts: opts}
}

// FindPath finds a path from start to goal using A*, both ends included.
// Returns nil if no path exists.
func (pf *PathFinder) FindPath(start, goal Cell) []Cell {
	if pf == nil || !pf.IsWalkable(start) || !pf.IsWalkable(goal) {
		return nil
	}

	openSet := &PathHeap{}
	heap.Init(openSet)
	closedSet := make(map[int]bool)
	nodeMap := make(map[int]*PathNode)

	startNode := &PathNode{Row: start[0], Col: start[1], H: heuristic(start, goal)}
	startNode.F = startNode.H
	heap.Push(openSet, startNode)
	nodeMap[pf.key(start)] = startNode

	maxIterations := pf.rows * pf.cols
	for iterations := 0; openSet.Len() > 0 && iterations < maxIterations; iterations++ {
		current := heap.Pop(openSet).(*PathNode)
		cur := Cell{current.Row, current.Col}
		if cur == goal {
			return reconstructPath(current)
		}
		closedSet[pf.key(cur)] = true

		for i, dir := range directions {
			next := Cell{cur[0] + dir[0], cur[1] + dir[1]}
			if closedSet[pf.key(next)] {
				continue
			}
			climb, ok := pf.step(cur, next)
			if !ok {
				continue
			}

			moveCost := straightCost
			if i%2 == 1 {
				moveCost = diagonalCost
				// No corner cutting past unwalkable cells.
				if _, ok := pf.step(cur, Cell{cur[0] + dir[0], cur[1]}); !ok {
					continue
				}
				if _, ok := pf.step(cur, Cell{cur[0], cur[1] + dir[1]}); !ok {
					continue
				}
			}
			g := current.G + moveCost + climb*pf.opts.ClimbCost

			neighbor, exists := nodeMap[pf.key(next)]
			if !exists {
				neighbor = &PathNode{
					Row:    next[0],
					Col:    next[1],
					G:      g,
					H:      heuristic(next, goal),
					Parent: current,
				}
				neighbor.F = neighbor.G + neighbor.H
				nodeMap[pf.key(next)] = neighbor
				heap.Push(openSet, neighbor)
			} else if g < neighbor.G {
				neighbor.G = g
				neighbor.F = neighbor.G + neighbor.H
				neighbor.Parent = current
				heap.Fix(openSet, neighbor.Index)
			}
		}
	}
	return nil
}

// IsWalkable reports whether c is on the grid and above water.
func (pf *PathFinder) IsWalkable(c Cell) bool {
	if pf == nil || !pf.inBounds(c) {
		return false
	}
	h, ok := pf.heights.HeightAt(c[0], c[1])
	return ok && h >= pf.opts.WaterLevel
}

// step returns the absolute height change from a to b when b can be walked
// onto from a.
func (pf *PathFinder) step(a, b Cell) (float32, bool) {
	if !pf.IsWalkable(b) {
		return 0, false
	}
	ha, _ := pf.heights.HeightAt(a[0], a[1])
	hb, _ := pf.heights.HeightAt(b[0], b[1])
	d := hb - ha
	if d < 0 {
		d = -d
	}
	if d > pf.opts.MaxStep {
		return 0, false
	}
	return d, true
}

// heuristic is the octile distance.
func heuristic(a, b Cell) float32 {
	dr := abs(b[0] - a[0])
	dc := abs(b[1] - a[1])
	if dr < dc {
		return float32(dr)*diagonalCost + float32(dc-dr)
	}
	return float32(dc)*diagonalCost + float32(dr-dc)
}

func (pf *PathFinder) inBounds(c Cell) bool {
	return c[0] >= 0 && c[0] < pf.rows && c[1] >= 0 && c[1] < pf.cols
}

func (pf *PathFinder) key(c Cell) int {
	return c[0]*pf.cols + c[1]
}

func reconstructPath(node *PathNode) []Cell {
	var path []Cell
	for node != nil {
		path = append(path, Cell{node.Row, node.Col})
		node = node.Parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
