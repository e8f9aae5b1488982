// Package quantized implements the quantized-mesh terrain tile format.
//
// A tile is a triangulated heightmap whose vertices are stored as unsigned
// 15-bit values: u=0 is the tile's west edge and u=32767 its east edge, v=0
// is south and v=32767 north, height=0 maps to the tile's minimum height and
// height=32767 to its maximum. Vertices on tile edges overlap the matching
// vertices of the neighboring tile.
package quantized

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/geodeck/terramesh/pkg/geodetic"
)

// Payload errors.
var (
	ErrTruncated        = errors.New("truncated quantized-mesh data")
	ErrVertexCount      = errors.New("invalid vertex count")
	ErrIndexOutOfRange  = errors.New("triangle index out of range")
	ErrMissingVertices  = errors.New("payload has no vertex data")
	ErrMissingIndices   = errors.New("payload has no triangle indices")
	ErrMissingEdge      = errors.New("payload is missing an edge index list")
	ErrMissingBounds    = errors.New("payload has no bounding sphere")
	ErrMissingOcclusion = errors.New("payload has no horizon occlusion point")
	ErrNegativeSkirt    = errors.New("skirt height must not be negative")
	ErrHeightRange      = errors.New("minimum height exceeds maximum height")
)

// MaxQuantized is the largest quantized coordinate or height value.
const MaxQuantized = 32767

// Child mask bits. A set bit means real data exists for that child tile.
const (
	ChildSouthwest uint8 = 1 << 0
	ChildSoutheast uint8 = 1 << 1
	ChildNorthwest uint8 = 1 << 2
	ChildNortheast uint8 = 1 << 3

	// ChildMaskAll assumes all four children exist until proven otherwise.
	ChildMaskAll uint8 = 15
)

// TilePayload is a decoded quantized-mesh tile: quantized vertex buffers,
// triangle indices, the four edge index lists, bounding volumes, and the
// per-edge skirt heights in meters.
type TilePayload struct {
	// U, V and Height are parallel per-vertex buffers in [0, MaxQuantized].
	U      []uint16
	V      []uint16
	Height []uint16

	// Indices holds triangle index triples into the vertex buffers.
	Indices []uint32

	// Edge index lists. West and east are ordered by v ascending, south and
	// north by u ascending once NormalizeEdges has run.
	WestIndices  []uint32
	SouthIndices []uint32
	EastIndices  []uint32
	NorthIndices []uint32

	// MinHeight and MaxHeight span the dequantized height range in meters.
	MinHeight float64
	MaxHeight float64

	BoundingSphere        geodetic.BoundingSphere
	OrientedBoundingBox   *geodetic.OrientedBoundingBox
	HorizonOcclusionPoint mgl64.Vec3

	// Per-edge skirt heights in meters.
	WestSkirtHeight  float64
	SouthSkirtHeight float64
	EastSkirtHeight  float64
	NorthSkirtHeight float64

	ChildMask uint8

	// Credits holds attribution strings carried with the tile, if any.
	Credits []string
}

// VertexCount returns the number of vertices in the payload.
func (p *TilePayload) VertexCount() int {
	return len(p.U)
}

// TriangleCount returns the number of triangles in the payload.
func (p *TilePayload) TriangleCount() int {
	return len(p.Indices) / 3
}

// Validate checks that every required field is present and consistent.
func (p *TilePayload) Validate() error {
	n := len(p.U)
	if n == 0 {
		return ErrMissingVertices
	}
	if len(p.V) != n || len(p.Height) != n {
		return fmt.Errorf("%w: u/v/height lengths %d/%d/%d", ErrVertexCount, len(p.U), len(p.V), len(p.Height))
	}
	if len(p.Indices) == 0 || len(p.Indices)%3 != 0 {
		return ErrMissingIndices
	}
	for _, idx := range p.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d with %d vertices", ErrIndexOutOfRange, idx, n)
		}
	}
	for _, edge := range []struct {
		name    string
		indices []uint32
	}{
		{"west", p.WestIndices},
		{"south", p.SouthIndices},
		{"east", p.EastIndices},
		{"north", p.NorthIndices},
	} {
		if len(edge.indices) == 0 {
			return fmt.Errorf("%w: %s", ErrMissingEdge, edge.name)
		}
		for _, idx := range edge.indices {
			if int(idx) >= n {
				return fmt.Errorf("%w: %s edge index %d with %d vertices", ErrIndexOutOfRange, edge.name, idx, n)
			}
		}
	}
	if p.MinHeight > p.MaxHeight {
		return fmt.Errorf("%w: %f > %f", ErrHeightRange, p.MinHeight, p.MaxHeight)
	}
	if p.BoundingSphere.Radius <= 0 {
		return ErrMissingBounds
	}
	if p.HorizonOcclusionPoint == (mgl64.Vec3{}) {
		return ErrMissingOcclusion
	}
	for _, s := range []float64{p.WestSkirtHeight, p.SouthSkirtHeight, p.EastSkirtHeight, p.NorthSkirtHeight} {
		if s < 0 {
			return ErrNegativeSkirt
		}
	}
	return nil
}

// NormalizeEdges sorts the four edge lists into their canonical order: west
// and east by v ascending, south and north by u ascending. Producer order is
// not trusted, but lists that are already sorted are left untouched.
func (p *TilePayload) NormalizeEdges() {
	sortEdge(p.WestIndices, p.V)
	sortEdge(p.EastIndices, p.V)
	sortEdge(p.SouthIndices, p.U)
	sortEdge(p.NorthIndices, p.U)
}

// sortEdge orders edge by ascending key, with an O(n) pre-check so a sorted
// list is not rewritten.
func sortEdge(edge []uint32, key []uint16) {
	sorted := true
	for i := 1; i < len(edge); i++ {
		if key[edge[i-1]] > key[edge[i]] {
			sorted = false
			break
		}
	}
	if sorted {
		return
	}
	sort.Slice(edge, func(i, j int) bool {
		return key[edge[i]] < key[edge[j]]
	})
}

// ChildBit returns the mask bit for the child at (childX, childY) of the tile
// at (x, y). Child x parity selects the west or east half, child y parity the
// north or south half (tile y grows southward).
func ChildBit(x, y, childX, childY int) uint8 {
	bit := ChildNorthwest
	if childX != x*2 {
		bit = ChildNortheast
	}
	if childY != y*2 {
		bit >>= 2
	}
	return bit
}
