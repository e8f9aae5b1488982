// Package terrain turns quantized heightmap tiles into renderable meshes,
// synthesizes child tiles from parent meshes, and answers point-height
// queries against either representation.
package terrain

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/geodeck/terramesh/pkg/geodetic"
	"github.com/geodeck/terramesh/pkg/quantized"
)

// SkirtHeights holds the per-edge skirt drop in meters.
type SkirtHeights struct {
	West  float64
	South float64
	East  float64
	North float64
}

// Shortest returns the smallest of the four skirt heights.
func (s SkirtHeights) Shortest() float64 {
	shortest := s.West
	for _, h := range []float64{s.South, s.East, s.North} {
		if h < shortest {
			shortest = h
		}
	}
	return shortest
}

// Tile is a terrain tile in one of two states: freshly constructed it owns
// the raw quantized buffers of its payload; once a meshing task completes
// it owns the built Mesh instead and the raw buffers are released. Exactly
// one of the two representations exists at any time.
type Tile struct {
	mu      sync.RWMutex
	payload *quantized.TilePayload
	mesh    *Mesh

	minHeight float64
	maxHeight float64
	sphere    geodetic.BoundingSphere
	box       *geodetic.OrientedBoundingBox
	occlusion mgl64.Vec3
	skirts    SkirtHeights

	childMask uint8
	upsampled bool
	credits   []string
}

// NewTile validates the payload and constructs a tile in the raw state.
// Edge lists are sorted into canonical order; producer order is not
// trusted.
func NewTile(payload *quantized.TilePayload) (*Tile, error) {
	if payload == nil {
		return nil, fmt.Errorf("invalid tile payload: %w", quantized.ErrMissingVertices)
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tile payload: %w", err)
	}
	payload.NormalizeEdges()
	return &Tile{
		payload:   payload,
		minHeight: payload.MinHeight,
		maxHeight: payload.MaxHeight,
		sphere:    payload.BoundingSphere,
		box:       payload.OrientedBoundingBox,
		occlusion: payload.HorizonOcclusionPoint,
		skirts: SkirtHeights{
			West:  payload.WestSkirtHeight,
			South: payload.SouthSkirtHeight,
			East:  payload.EastSkirtHeight,
			North: payload.NorthSkirtHeight,
		},
		childMask: payload.ChildMask,
		credits:   payload.Credits,
	}, nil
}

// newUpsampledTile wraps a payload synthesized by the upsampler. The child
// mask is forced to zero: an upsampled tile is the finest known data for
// its extent and no real children should be fetched beneath it.
func newUpsampledTile(payload *quantized.TilePayload) (*Tile, error) {
	payload.ChildMask = 0
	t, err := NewTile(payload)
	if err != nil {
		return nil, err
	}
	t.upsampled = true
	return t, nil
}

// Payload returns the raw quantized buffers, or nil once the tile has been
// meshed.
func (t *Tile) Payload() *quantized.TilePayload {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.payload
}

// Mesh returns the built mesh, or nil while the tile is still raw.
func (t *Tile) Mesh() *Mesh {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mesh
}

// CanUpsample reports whether the tile holds a mesh that child tiles can be
// synthesized from.
func (t *Tile) CanUpsample() bool {
	return t.Mesh() != nil
}

// WasCreatedByUpsampling reports whether the tile was synthesized from a
// parent mesh rather than fetched.
func (t *Tile) WasCreatedByUpsampling() bool {
	return t.upsampled
}

// MinHeight returns the tile's minimum height in meters.
func (t *Tile) MinHeight() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.minHeight
}

// MaxHeight returns the tile's maximum height in meters.
func (t *Tile) MaxHeight() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.maxHeight
}

// BoundingSphere returns the tile's bounding sphere.
func (t *Tile) BoundingSphere() geodetic.BoundingSphere {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sphere
}

// OrientedBox returns the tile's oriented bounding box, or nil when the
// source payload carried none and no mesh has been built yet.
func (t *Tile) OrientedBox() *geodetic.OrientedBoundingBox {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.box
}

// OcclusionPoint returns the horizon occlusion point in the
// ellipsoid-scaled frame.
func (t *Tile) OcclusionPoint() mgl64.Vec3 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.occlusion
}

// Skirts returns the per-edge skirt heights.
func (t *Tile) Skirts() SkirtHeights {
	return t.skirts
}

// Credits returns the attribution records carried with the tile.
func (t *Tile) Credits() []string {
	return t.credits
}

// IsChildAvailable reports whether real data exists for the child tile at
// (childX, childY), given this tile's address (x, y).
func (t *Tile) IsChildAvailable(x, y, childX, childY int) bool {
	return t.childMask&quantized.ChildBit(x, y, childX, childY) != 0
}

// InterpolateHeight returns the height at (lon, lat), given the tile's
// rectangle. The point is clamped into the rectangle and normalized to
// quantized space, then resolved against the mesh if one has been built and
// the raw buffers otherwise. The second result is false when the point
// falls outside every triangle.
func (t *Tile) InterpolateHeight(rect geodetic.Rectangle, lon, lat float64) (float64, bool) {
	lon, lat = rect.Clamp(lon, lat)
	u := (lon - rect.West) / rect.Width() * quantized.MaxQuantized
	v := (lat - rect.South) / rect.Height() * quantized.MaxQuantized

	t.mu.RLock()
	mesh, payload := t.mesh, t.payload
	t.mu.RUnlock()

	if mesh != nil {
		return sampleMeshHeight(mesh, u, v)
	}
	return sampleRawHeight(payload, u, v)
}

// adoptMesh installs the mesh built from the raw buffers and releases them.
// The transition is one-way; the buffers were moved into the meshing task
// and must not be aliased afterwards.
func (t *Tile) adoptMesh(m *Mesh) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mesh = m
	t.payload = nil
	t.minHeight = m.MinHeight
	t.maxHeight = m.MaxHeight
	t.sphere = m.BoundingSphere
	t.box = &m.Box
	t.occlusion = m.OccludeePoint
}
