package terrain

import "errors"

// Terrain errors.
var (
	ErrUnknownLayer    = errors.New("unknown terrain layer")
	ErrInvalidGeometry = errors.New("invalid terrain geometry")
	ErrNotReset        = errors.New("terrain not reset")
)

// NoElevation is returned by elevation queries outside the grid.
const NoElevation float32 = -1
