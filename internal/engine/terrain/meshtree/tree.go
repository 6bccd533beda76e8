// Package meshtree indexes which terrain blocks have a built mesh at each
// level of detail. Level 0 holds the finest blocks; every level above halves
// the block grid so the tree is a complete 4-ary tree.
package meshtree

import (
	"fmt"
	"math"
)

// MeshID is an opaque handle to a mesh owned by the scene. Zero means no mesh.
type MeshID uint32

// BlockID identifies a node of the tree.
type BlockID struct {
	Row   int
	Col   int
	Level int
}

// String returns the id as "L<level>(<row>,<col>)".
func (b BlockID) String() string {
	return fmt.Sprintf("L%d(%d,%d)", b.Level, b.Row, b.Col)
}

// Kind is the state of a tree entry.
type Kind uint8

// Entry kinds.
const (
	Pending   Kind = iota // inside the map, mesh not built yet
	Populated             // mesh built, Entry.Mesh is set
	Invalid               // outside the map
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case Pending:
		return "Pending"
	case Populated:
		return "Populated"
	case Invalid:
		return "Invalid"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Entry is the content of one tree node.
type Entry struct {
	Kind Kind
	Mesh MeshID
}

// Level is one tier of the tree.
type Level struct {
	Rows    int
	Cols    int
	entries []Entry
}

func (l *Level) at(row, col int) *Entry {
	return &l.entries[row*l.Cols+col]
}

// Tree is the mesh tree of one terrain layer.
type Tree struct {
	height int
	width  int
	levels []Level
}

// New builds a tree over a numBlocks[0] x numBlocks[1] block grid. The depth
// is ceil(log2(min(rows, cols))) capped at maxLevel. Each level is allocated
// at a multiple of the coarsest block size so every parent has four children;
// cells outside the block grid are Invalid.
func New(numBlocks [2]int, maxLevel int) *Tree {
	height, width := numBlocks[0], numBlocks[1]
	if height <= 0 || width <= 0 {
		panic(fmt.Sprintf("meshtree: invalid block grid %dx%d", height, width))
	}

	girth := min(height, width)
	top := int(math.Ceil(math.Log2(float64(girth))))
	top = max(min(top, maxLevel), 0)
	coarsest := 1 << top

	levelHeight := divCeil(height, coarsest) * coarsest
	levelWidth := divCeil(width, coarsest) * coarsest
	validHeight, validWidth := height, width

	levels := make([]Level, 0, top+1)
	for range top + 1 {
		lvl := Level{
			Rows:    levelHeight,
			Cols:    levelWidth,
			entries: make([]Entry, levelHeight*levelWidth),
		}
		for r := range levelHeight {
			for c := range levelWidth {
				if r >= validHeight || c >= validWidth {
					lvl.at(r, c).Kind = Invalid
				}
			}
		}
		levels = append(levels, lvl)

		levelHeight /= 2
		levelWidth /= 2
		validHeight /= 2
		validWidth /= 2
	}

	return &Tree{
		height: height,
		width:  width,
		levels: levels,
	}
}

func divCeil(a, b int) int {
	return (a + b - 1) / b
}

// NumBlocks returns the level-0 block grid the tree was built for.
func (t *Tree) NumBlocks() [2]int {
	return [2]int{t.height, t.width}
}

// NumLevels returns the number of levels, finest included.
func (t *Tree) NumLevels() int {
	return len(t.levels)
}

// TopLevel returns the index of the coarsest level.
func (t *Tree) TopLevel() int {
	return len(t.levels) - 1
}

// Level returns the allocated dimensions of a level.
func (t *Tree) Level(level int) (rows, cols int) {
	l := &t.levels[level]
	return l.Rows, l.Cols
}

// Contains reports whether id addresses an allocated cell of the tree.
func (t *Tree) Contains(id BlockID) bool {
	if id.Level < 0 || id.Level >= len(t.levels) {
		return false
	}
	l := &t.levels[id.Level]
	return id.Row >= 0 && id.Col >= 0 && id.Row < l.Rows && id.Col < l.Cols
}

// Parent returns the block one level up covering id.
func (t *Tree) Parent(id BlockID) BlockID {
	return BlockID{Row: id.Row / 2, Col: id.Col / 2, Level: id.Level + 1}
}

// Children returns the four blocks below id in row-major order, or nil at level 0.
func (t *Tree) Children(id BlockID) []BlockID {
	if id.Level == 0 {
		return nil
	}
	children := make([]BlockID, 0, 4)
	for i := range 4 {
		children = append(children, BlockID{
			Row:   id.Row*2 + i>>1,
			Col:   id.Col*2 + i&1,
			Level: id.Level - 1,
		})
	}
	return children
}

// Ancestors returns every block above id, nearest first.
func (t *Tree) Ancestors(id BlockID) []BlockID {
	var results []BlockID
	row, col := id.Row, id.Col
	for lvl := id.Level + 1; lvl < len(t.levels); lvl++ {
		row /= 2
		col /= 2
		results = append(results, BlockID{Row: row, Col: col, Level: lvl})
	}
	return results
}

// Descendants returns every block strictly below id in pre-order.
func (t *Tree) Descendants(id BlockID) []BlockID {
	var results []BlockID
	var expand func(BlockID)
	expand = func(b BlockID) {
		for _, child := range t.Children(b) {
			results = append(results, child)
			expand(child)
		}
	}
	expand(id)
	return results
}

// Entry returns the entry for id. It panics if id is outside the tree.
func (t *Tree) Entry(id BlockID) Entry {
	return *t.entry(id)
}

func (t *Tree) entry(id BlockID) *Entry {
	if !t.Contains(id) {
		panic(fmt.Sprintf("meshtree: block %s outside tree", id))
	}
	return t.levels[id.Level].at(id.Row, id.Col)
}

// Valid reports whether id lies inside the map.
func (t *Tree) Valid(id BlockID) bool {
	return t.entry(id).Kind != Invalid
}

// Populated reports whether id has a mesh.
func (t *Tree) Populated(id BlockID) bool {
	return t.entry(id).Kind == Populated
}

// SetMesh installs mesh at id and returns the mesh it replaced, if any.
// Installing on an Invalid entry is a caller bug and panics.
func (t *Tree) SetMesh(id BlockID, mesh MeshID) (MeshID, bool) {
	e := t.entry(id)
	if e.Kind == Invalid {
		panic(fmt.Sprintf("meshtree: set mesh on invalid block %s", id))
	}
	old := *e
	*e = Entry{Kind: Populated, Mesh: mesh}
	if old.Kind == Populated {
		return old.Mesh, true
	}
	return 0, false
}

// ClearMesh returns id to Pending and reports the mesh it held, if any.
func (t *Tree) ClearMesh(id BlockID) (MeshID, bool) {
	e := t.entry(id)
	if e.Kind != Populated {
		return 0, false
	}
	old := e.Mesh
	*e = Entry{Kind: Pending}
	return old, true
}

// Roots returns the blocks of the coarsest level in row-major order.
func (t *Tree) Roots() []BlockID {
	top := len(t.levels) - 1
	l := &t.levels[top]
	roots := make([]BlockID, 0, l.Rows*l.Cols)
	for r := range l.Rows {
		for c := range l.Cols {
			roots = append(roots, BlockID{Row: r, Col: c, Level: top})
		}
	}
	return roots
}

// Visitor is called for every block reached by Walk. Returning true
// descends into the block's children.
type Visitor func(t *Tree, id BlockID) bool

// Walk visits the tree in pre-order starting from every root.
func (t *Tree) Walk(visit Visitor) {
	var walkBlock func(BlockID)
	walkBlock = func(id BlockID) {
		if !visit(t, id) {
			return
		}
		for _, child := range t.Children(id) {
			walkBlock(child)
		}
	}
	for _, root := range t.Roots() {
		walkBlock(root)
	}
}

// Meshes returns every populated mesh handle.
func (t *Tree) Meshes() []MeshID {
	var ids []MeshID
	for i := range t.levels {
		for _, e := range t.levels[i].entries {
			if e.Kind == Populated {
				ids = append(ids, e.Mesh)
			}
		}
	}
	return ids
}

// Progress counts valid and populated nodes.
func (t *Tree) Progress() (populated, valid int) {
	for i := range t.levels {
		for _, e := range t.levels[i].entries {
			switch e.Kind {
			case Populated:
				populated++
				valid++
			case Pending:
				valid++
			}
		}
	}
	return populated, valid
}
