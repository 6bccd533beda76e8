package main

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/Faultbox/rreng/internal/engine/terrain"
	"github.com/Faultbox/rreng/internal/game/world"
	"github.com/Faultbox/rreng/pkg/heightfield"
)

// tile is one elevation tile in map coordinates.
type tile struct {
	Rect    terrain.Rect
	Heights *heightfield.Array2
}

// NoiseParams shapes the synthetic landscape.
type NoiseParams struct {
	Octaves     int
	Frequency   float64 // per map unit
	Persistence float64
	Amplitude   float64 // height units above and below Base
	Base        float64
}

// DefaultNoiseParams returns rolling hills with a few flooded valleys.
func DefaultNoiseParams() NoiseParams {
	return NoiseParams{
		Octaves:     5,
		Frequency:   0.01,
		Persistence: 0.5,
		Amplitude:   30,
		Base:        6,
	}
}

// tileSource cuts a synthetic landscape into square tiles, north-west first.
type tileSource struct {
	spec     world.MapSpec
	cells    int // cells per tile edge
	noise    opensimplex.Noise
	params   NoiseParams
	next     int
	numTiles [2]int
}

func newTileSource(spec world.MapSpec, cells int, seed int64) *tileSource {
	return &tileSource{
		spec:   spec,
		cells:  cells,
		noise:  opensimplex.NewNormalized(seed),
		params: DefaultNoiseParams(),
		numTiles: [2]int{
			(spec.Size[0] + cells - 1) / cells,
			(spec.Size[1] + cells - 1) / cells,
		},
	}
}

// height samples the landscape at a map coordinate.
func (ts *tileSource) height(x, y float64) float32 {
	p := ts.params
	total, amplitude, maxVal := 0.0, 1.0, 0.0
	frequency := p.Frequency
	for range p.Octaves {
		total += ts.noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= p.Persistence
		frequency *= 2
	}
	// Normalized noise is in [0, 1]; centre it on Base.
	return float32(p.Base + (total/maxVal*2-1)*p.Amplitude)
}

// Remaining returns the number of tiles not yet handed out.
func (ts *tileSource) Remaining() int {
	return ts.numTiles[0]*ts.numTiles[1] - ts.next
}

// Next returns the next tile. Tiles overlap their neighbours by one cell so
// shared edges agree.
func (ts *tileSource) Next() (tile, bool) {
	if ts.Remaining() <= 0 {
		return tile{}, false
	}
	tr, tc := ts.next/ts.numTiles[1], ts.next%ts.numTiles[1]
	ts.next++

	cell := float64(ts.spec.CellSize)
	if cell <= 0 {
		cell = 1
	}
	n := ts.cells + 1
	minX := float64(ts.spec.Bounds.Min.X()) + float64(tc*ts.cells)*cell
	maxY := float64(ts.spec.Bounds.Max.Y()) - float64(tr*ts.cells)*cell

	heights := heightfield.FromFunc(n, n, func(row, col int) float32 {
		return ts.height(minX+float64(col)*cell, maxY-float64(row)*cell)
	})
	rect := terrain.NewRect(
		float32(minX), float32(maxY-float64(n)*cell),
		float32(minX+float64(n)*cell), float32(maxY),
	)
	return tile{Rect: rect, Heights: heights}, true
}
