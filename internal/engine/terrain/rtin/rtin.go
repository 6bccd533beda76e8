// Package rtin triangulates square height patches with right-triangulated
// irregular networks: a longest-edge bisection hierarchy of right triangles
// that is refined only where the surface needs it.
package rtin

import (
	"fmt"

	"github.com/Faultbox/rreng/pkg/heightfield"
)

// Point is a grid coordinate as [row, col].
type Point [2]int

// Triangle is three grid corners.
type Triangle struct {
	Points [3]Point
}

// Triangulation is a triangle list over a patch.
type Triangulation struct {
	Triangles []Triangle
}

// Basic builds exactly two triangles per grid cell. It accepts any patch with
// at least two rows and columns.
func Basic(points *heightfield.Array2) Triangulation {
	h, w := points.Dim()
	if h < 2 || w < 2 {
		panic(fmt.Sprintf("rtin: patch %dx%d too small to triangulate", h, w))
	}

	triangles := make([]Triangle, 0, 2*(h-1)*(w-1))
	for i := range h - 1 {
		for j := range w - 1 {
			v1 := Point{i, j}
			v2 := Point{i, j + 1}
			v3 := Point{i + 1, j}
			v4 := Point{i + 1, j + 1}

			triangles = append(triangles,
				Triangle{Points: [3]Point{v1, v2, v3}},
				Triangle{Points: [3]Point{v3, v2, v4}},
			)
		}
	}
	return Triangulation{Triangles: triangles}
}

// Triangulate approximates a (2^k+1)-sided patch so that no point deviates
// from the mesh by more than threshold. A threshold of exactly zero skips
// simplification and returns Basic.
func Triangulate(points *heightfield.Array2, threshold float32) Triangulation {
	if threshold == 0 {
		return Basic(points)
	}
	errors := BuildErrorMap(points)
	return Triangulation{Triangles: buildMesh(points, threshold, errors)}
}

// checkPatch enforces the square 2^k+1 contract. Callers only ever pass
// power-of-two aligned block ranges, so a violation is a programming error.
func checkPatch(points *heightfield.Array2) int {
	h, w := points.Dim()
	tile := h - 1
	if h != w || tile < 1 || tile&(tile-1) != 0 {
		panic(fmt.Sprintf("rtin: patch must be square with side 2^k+1, got %dx%d", h, w))
	}
	return tile
}

// BuildErrorMap computes, for the midpoint of every triangle's hypotenuse,
// the largest interpolation error of that triangle and all triangles below it.
//
// Triangles are numbered implicitly as a binary tree. Ids 2 and 3 are the two
// root halves of the square; the children of id are 2*id and 2*id+1. Walking
// an id's bits from the top down therefore replays the bisections that
// produced it. For a 2x2 tile (3x3 grid) the six triangles are i = 0..5, so
// id = i+2 = 2..7. With corners written as (x, y) = (col, row), id 7
// (binary 111) starts as the bottom-left root a=(0,0) b=(2,2) c=(2,0),
// shifts to 11, takes the left half and ends as a=(2,0) b=(0,0) c=(1,1),
// so its error is stored at the hypotenuse midpoint (1,0).
func BuildErrorMap(points *heightfield.Array2) *heightfield.Array2 {
	tile := checkPatch(points)
	gridSize := tile + 1

	numSmallest := tile * tile
	numTriangles := numSmallest*2 - 2
	lastLevelIndex := numTriangles - numSmallest

	errors := heightfield.New(gridSize, gridSize)

	// iterate over all possible triangles, starting from the smallest level
	for i := numTriangles - 1; i >= 0; i-- {
		id := i + 2
		var ax, ay, bx, by, cx, cy int
		if id&1 == 1 {
			bx, by, cx = tile, tile, tile // bottom-left triangle
		} else {
			ax, ay, cy = tile, tile, tile // top-right triangle
		}

		for {
			id >>= 1
			if id <= 1 {
				break
			}
			mx := (ax + bx) >> 1
			my := (ay + by) >> 1

			if id&1 == 1 { // left half
				bx, by = ax, ay
				ax, ay = cx, cy
			} else { // right half
				ax, ay = bx, by
				bx, by = cx, cy
			}
			cx, cy = mx, my
		}

		interpolated := (points.At(ay, ax) + points.At(by, bx)) / 2
		mx := (ax + bx) >> 1
		my := (ay + by) >> 1
		middleError := abs(interpolated - points.At(my, mx))

		if i >= lastLevelIndex {
			errors.Set(my, mx, middleError)
			continue
		}

		leftChildError := errors.At((ay+cy)>>1, (ax+cx)>>1)
		rightChildError := errors.At((by+cy)>>1, (bx+cx)>>1)
		errors.Set(my, mx, max(errors.At(my, mx), middleError, leftChildError, rightChildError))
	}

	return errors
}

func buildMesh(points *heightfield.Array2, threshold float32, errors *heightfield.Array2) []Triangle {
	tile := points.Rows - 1
	var triangles []Triangle

	var process func(ax, ay, bx, by, cx, cy int)
	process = func(ax, ay, bx, by, cx, cy int) {
		// middle of the long edge
		mx := (ax + bx) >> 1
		my := (ay + by) >> 1

		if absDiff(ax, cx)+absDiff(ay, cy) > 1 && errors.At(my, mx) > threshold {
			process(cx, cy, ax, ay, mx, my)
			process(bx, by, cx, cy, mx, my)
			return
		}
		triangles = append(triangles, Triangle{Points: [3]Point{{ay, ax}, {by, bx}, {cy, cx}}})
	}

	process(0, 0, tile, tile, tile, 0)
	process(tile, tile, 0, 0, 0, tile)

	return triangles
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
