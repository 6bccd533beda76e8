package terrain

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/rreng/internal/logger"
	"github.com/Faultbox/rreng/pkg/heightfield"
)

// layerGrid is one layer's elevation grid. Writers and snapshot readers
// serialize on mu; nobody holds it longer than a patch copy.
type layerGrid struct {
	mu   sync.Mutex
	data *heightfield.Array2
}

// Store owns the elevation grids of every layer and the block dirty state
// shared by all of them.
type Store struct {
	terrain Terrain
	order   []Layer
	layers  map[Layer]*layerGrid

	blocksMu sync.Mutex
	blocks   []BlockInfo

	log *zap.Logger
}

// NewStore allocates zeroed grids for the given layers.
func NewStore(t Terrain, layers []Layer, log *zap.Logger) (*Store, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrInvalidGeometry)
	}
	if t.NumBlocks[0] <= 0 || t.NumBlocks[1] <= 0 {
		return nil, fmt.Errorf("%w: no blocks", ErrInvalidGeometry)
	}
	if log == nil {
		log = logger.Named("terrain")
	}

	dims := t.PointDims()
	s := &Store{
		terrain: t,
		layers:  make(map[Layer]*layerGrid, len(layers)),
		log:     log,
	}
	for _, l := range layers {
		if _, dup := s.layers[l]; dup {
			return nil, fmt.Errorf("%w: duplicate layer %s", ErrInvalidGeometry, l)
		}
		s.layers[l] = &layerGrid{data: heightfield.New(dims[0], dims[1])}
		s.order = append(s.order, l)
	}

	bs := t.BlockSize
	s.blocks = make([]BlockInfo, 0, t.NumBlocks[0]*t.NumBlocks[1])
	for r := range t.NumBlocks[0] {
		for c := range t.NumBlocks[1] {
			s.blocks = append(s.blocks, BlockInfo{
				Block: BlockRef{Row: r, Col: c},
				Range: heightfield.NewRange2(r*bs, (r+1)*bs+1, c*bs, (c+1)*bs+1),
			})
		}
	}
	return s, nil
}

// Terrain returns the grid geometry.
func (s *Store) Terrain() Terrain {
	return s.terrain
}

// Layers returns the layers in the order they were configured.
func (s *Store) Layers() []Layer {
	return append([]Layer(nil), s.order...)
}

// HasLayer reports whether the store holds a grid for l.
func (s *Store) HasLayer(l Layer) bool {
	_, ok := s.layers[l]
	return ok
}

func (s *Store) grid(l Layer) (*layerGrid, error) {
	g, ok := s.layers[l]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayer, l)
	}
	return g, nil
}

// SetElevation copies patch into the layer grid with its first cell at
// (row, col). Offsets may be negative or overhang the grid; only the
// overlapping part is copied. It returns the written grid range, which is
// empty when the patch misses the grid entirely.
func (s *Store) SetElevation(l Layer, row, col int, patch *heightfield.Array2) (heightfield.Range2, error) {
	g, err := s.grid(l)
	if err != nil {
		return heightfield.Range2{}, err
	}

	g.mu.Lock()
	fromRows, toRows := heightfield.CopyableRange(patch.Rows, row, g.data.Rows)
	fromCols, toCols := heightfield.CopyableRange(patch.Cols, col, g.data.Cols)
	dest := heightfield.Range2{Rows: toRows, Cols: toCols}
	if dest.Empty() {
		g.mu.Unlock()
		return heightfield.Range2{}, nil
	}
	g.data.Assign(dest, patch, heightfield.Range2{Rows: fromRows, Cols: fromCols})
	g.mu.Unlock()

	s.DirtyRange(dest)
	return dest, nil
}

// DirtyRange marks every block overlapping r and returns how many were marked.
func (s *Store) DirtyRange(r heightfield.Range2) int {
	if r.Empty() {
		return 0
	}
	s.blocksMu.Lock()
	defer s.blocksMu.Unlock()

	marked := 0
	for i := range s.blocks {
		bi := &s.blocks[i]
		if !bi.Range.Overlaps(r) {
			continue
		}
		bi.Dirty = true
		bi.Generation++
		marked++
	}
	return marked
}

// Block returns a copy of the block info at (row, col).
func (s *Store) Block(row, col int) BlockInfo {
	s.blocksMu.Lock()
	defer s.blocksMu.Unlock()
	return s.blocks[row*s.terrain.NumBlocks[1]+col]
}

// DirtyBlocks returns up to limit dirty blocks in row-major order. A limit
// of zero or less returns them all.
func (s *Store) DirtyBlocks(limit int) []BlockInfo {
	s.blocksMu.Lock()
	defer s.blocksMu.Unlock()

	var out []BlockInfo
	for _, bi := range s.blocks {
		if !bi.Dirty {
			continue
		}
		out = append(out, bi)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// DirtyCount returns the number of dirty blocks.
func (s *Store) DirtyCount() int {
	s.blocksMu.Lock()
	defer s.blocksMu.Unlock()
	n := 0
	for _, bi := range s.blocks {
		if bi.Dirty {
			n++
		}
	}
	return n
}

// ClearDirty clears the dirty flag of the given blocks unless they were
// written again after the infos were taken. It returns the number cleared.
func (s *Store) ClearDirty(infos []BlockInfo) int {
	s.blocksMu.Lock()
	defer s.blocksMu.Unlock()

	cleared := 0
	for _, info := range infos {
		bi := &s.blocks[info.Block.Row*s.terrain.NumBlocks[1]+info.Block.Col]
		if bi.Generation != info.Generation {
			continue
		}
		bi.Dirty = false
		cleared++
	}
	return cleared
}

// Snapshot copies every stride-th cell of r from the layer grid. The lock is
// held only for the copy.
func (s *Store) Snapshot(l Layer, r heightfield.Range2, stride int) (*heightfield.Array2, error) {
	g, err := s.grid(l)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.data.Strided(r, stride), nil
}

// At returns the stored height at a grid cell.
func (s *Store) At(l Layer, row, col int) (float32, bool) {
	g, ok := s.layers[l]
	if !ok {
		return NoElevation, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.data.InBounds(row, col) {
		return NoElevation, false
	}
	return g.data.At(row, col), true
}

// update runs fn with exclusive access to the layer grid and marks the
// returned range dirty.
func (s *Store) update(l Layer, fn func(data *heightfield.Array2) heightfield.Range2) (heightfield.Range2, error) {
	g, err := s.grid(l)
	if err != nil {
		return heightfield.Range2{}, err
	}
	g.mu.Lock()
	r := fn(g.data)
	g.mu.Unlock()

	s.DirtyRange(r)
	return r, nil
}
