package terrain

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/geodeck/terramesh/pkg/geodetic"
)

// Skirt extrude direction codes stored in the extrude vertex attribute.
// Core surface vertices carry ExtrudeNone; skirt vertices carry the edge
// they were extruded from.
const (
	ExtrudeNone float32 = iota
	ExtrudeWest
	ExtrudeSouth
	ExtrudeEast
	ExtrudeNorth
)

// VertexEncoding describes the attribute layout of a mesh vertex buffer:
// the float stride per vertex and the offset of each attribute within it.
type VertexEncoding struct {
	Stride         int
	PositionOffset int
	HeightOffset   int
	TexCoordOffset int
	ExtrudeOffset  int
}

// meshEncoding is the layout produced by the mesh builder: position (3),
// height (1), texture coordinates (2), extrude direction (1).
var meshEncoding = VertexEncoding{
	Stride:         7,
	PositionOffset: 0,
	HeightOffset:   3,
	TexCoordOffset: 4,
	ExtrudeOffset:  6,
}

// Mesh is the immutable output of a meshing task: a recentered, packed
// vertex buffer plus triangle indices, with skirt geometry appended after
// the core surface. A completed Mesh is never mutated and is safe for
// concurrent readers.
type Mesh struct {
	// Center is the recentering origin; vertex positions are offsets from
	// it in Earth-centered fixed coordinates.
	Center mgl64.Vec3

	// Vertices is packed per Encoding. The first CoreVertexCount vertices
	// are the surface; the rest are skirts.
	Vertices []float32
	Encoding VertexEncoding

	// Indices holds triangle triples. The first CoreIndexCount entries
	// index the surface; the rest close the skirts. IndexBytes records the
	// minimal integer width (2 or 4) for the combined vertex count.
	Indices    []uint32
	IndexBytes int

	CoreVertexCount int
	CoreIndexCount  int

	// MinHeight and MaxHeight span the surface heights, excluding skirts.
	MinHeight float64
	MaxHeight float64

	BoundingSphere geodetic.BoundingSphere
	Box            geodetic.OrientedBoundingBox

	// OccludeePoint is in the ellipsoid-scaled frame.
	OccludeePoint mgl64.Vec3

	// Edge vertex indices for neighbor stitching, in the same order as the
	// source tile's edge lists.
	WestIndices  []uint32
	SouthIndices []uint32
	EastIndices  []uint32
	NorthIndices []uint32
}

// VertexCount returns the combined surface and skirt vertex count.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / m.Encoding.Stride
}

// IndexCount returns the combined surface and skirt index count.
func (m *Mesh) IndexCount() int {
	return len(m.Indices)
}

// DecodeHeight returns the height in meters of vertex i.
func (m *Mesh) DecodeHeight(i int) float64 {
	return float64(m.Vertices[i*m.Encoding.Stride+m.Encoding.HeightOffset])
}

// DecodeTextureCoordinates returns the (u, v) coordinates of vertex i in
// [0, 1].
func (m *Mesh) DecodeTextureCoordinates(i int) (u, v float64) {
	base := i*m.Encoding.Stride + m.Encoding.TexCoordOffset
	return float64(m.Vertices[base]), float64(m.Vertices[base+1])
}

// DecodePosition returns the absolute position of vertex i.
func (m *Mesh) DecodePosition(i int) mgl64.Vec3 {
	base := i*m.Encoding.Stride + m.Encoding.PositionOffset
	return m.Center.Add(mgl64.Vec3{
		float64(m.Vertices[base]),
		float64(m.Vertices[base+1]),
		float64(m.Vertices[base+2]),
	})
}
