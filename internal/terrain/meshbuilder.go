package terrain

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/geodeck/terramesh/internal/scheduler"
	"github.com/geodeck/terramesh/pkg/geodetic"
	"github.com/geodeck/terramesh/pkg/quantized"
)

// ErrNoRawData is returned by a meshing task whose tile has neither raw
// buffers nor a mesh. It indicates a caller bug, not a retryable condition.
var ErrNoRawData = errors.New("tile has no raw buffers to mesh")

// MeshParams carries the tiling context for a meshing task.
type MeshParams struct {
	X, Y, Level int

	// Rectangle is the tile's geodetic bounds, from the tiling scheme.
	Rectangle geodetic.Rectangle
	Ellipsoid geodetic.Ellipsoid

	// Exaggeration scales heights away from ExaggerationRelativeHeight.
	// Zero means no exaggeration.
	Exaggeration               float64
	ExaggerationRelativeHeight float64

	// Unthrottled dispatches the task outside the worker limit. The default
	// throttled policy is rejected when the pool is saturated.
	Unthrottled bool
}

// MeshBuilder schedules the asynchronous decode of a tile's raw quantized
// buffers into a Mesh. The scheduler is injected so tests can run tasks
// deterministically.
type MeshBuilder struct {
	sched scheduler.Scheduler
	log   *zap.Logger
}

// NewMeshBuilder returns a builder that dispatches onto sched.
func NewMeshBuilder(sched scheduler.Scheduler, log *zap.Logger) *MeshBuilder {
	if log == nil {
		log = zap.NewNop()
	}
	return &MeshBuilder{sched: sched, log: log}
}

// CreateMesh schedules the meshing task for a raw tile. It never blocks:
// when the pool is saturated it returns (nil, false) with no state changed,
// and the caller retries later. On success the future yields the *Mesh and
// the tile has adopted it, releasing the raw buffers. A tile that is
// already meshed yields a completed future with the existing mesh.
func (b *MeshBuilder) CreateMesh(tile *Tile, params MeshParams) (*scheduler.Future, bool) {
	if m := tile.Mesh(); m != nil {
		return scheduler.Completed(m, nil), true
	}

	task := func() (any, error) {
		payload := tile.Payload()
		if payload == nil {
			return nil, ErrNoRawData
		}
		mesh := buildMesh(payload, params)
		tile.adoptMesh(mesh)
		b.log.Debug("meshed tile",
			zap.Int("x", params.X), zap.Int("y", params.Y), zap.Int("level", params.Level),
			zap.Int("vertices", mesh.VertexCount()),
			zap.Int("coreVertices", mesh.CoreVertexCount))
		return mesh, nil
	}

	if params.Unthrottled {
		return b.sched.SubmitNow(task), true
	}
	return b.sched.TrySubmit(task)
}

// buildMesh decodes the quantized buffers into world-space geometry:
// dequantized vertices converted to Earth-centered fixed coordinates and
// recentered, skirt vertices appended per edge and lowered by that edge's
// skirt height, and skirt triangles closing the gaps.
func buildMesh(p *quantized.TilePayload, params MeshParams) *Mesh {
	ellipsoid := params.Ellipsoid
	if ellipsoid.Radii == (mgl64.Vec3{}) {
		ellipsoid = geodetic.WGS84
	}
	rect := params.Rectangle

	n := p.VertexCount()
	skirtCount := len(p.WestIndices) + len(p.SouthIndices) + len(p.EastIndices) + len(p.NorthIndices)
	total := n + skirtCount

	lons := make([]float64, n)
	lats := make([]float64, n)
	heights := make([]float64, n)
	uvs := make([][2]float64, n)
	positions := make([]mgl64.Vec3, 0, total)

	minHeight := mgl64.MaxValue
	maxHeight := -mgl64.MaxValue
	for i := 0; i < n; i++ {
		u := float64(p.U[i]) / quantized.MaxQuantized
		v := float64(p.V[i]) / quantized.MaxQuantized
		h := quantized.Dequantize(p.Height[i], p.MinHeight, p.MaxHeight)
		h = exaggerate(h, params)

		lons[i] = rect.West + u*rect.Width()
		lats[i] = rect.South + v*rect.Height()
		heights[i] = h
		uvs[i] = [2]float64{u, v}
		if h < minHeight {
			minHeight = h
		}
		if h > maxHeight {
			maxHeight = h
		}
		positions = append(positions, ellipsoid.CartographicToCartesian(lons[i], lats[i], h))
	}
	corePositions := make([]mgl64.Vec3, n)
	copy(corePositions, positions)

	// Skirt vertices duplicate their edge vertex lowered by the edge's
	// skirt height.
	type skirtEdge struct {
		indices []uint32
		height  float64
		extrude float32
	}
	edges := []skirtEdge{
		{p.WestIndices, p.WestSkirtHeight, ExtrudeWest},
		{p.SouthIndices, p.SouthSkirtHeight, ExtrudeSouth},
		{p.EastIndices, p.EastSkirtHeight, ExtrudeEast},
		{p.NorthIndices, p.NorthSkirtHeight, ExtrudeNorth},
	}

	enc := meshEncoding
	vertices := make([]float32, 0, total*enc.Stride)
	indices := make([]uint32, 0, len(p.Indices)+skirtCount*6)
	indices = append(indices, p.Indices...)

	skirtHeights := make([]float64, 0, skirtCount)
	skirtUVs := make([][2]float64, 0, skirtCount)
	skirtExtrudes := make([]float32, 0, skirtCount)

	next := uint32(n)
	for _, edge := range edges {
		first := next
		for _, src := range edge.indices {
			h := heights[src] - edge.height
			positions = append(positions, ellipsoid.CartographicToCartesian(lons[src], lats[src], h))
			skirtHeights = append(skirtHeights, h)
			skirtUVs = append(skirtUVs, uvs[src])
			skirtExtrudes = append(skirtExtrudes, edge.extrude)
			next++
		}
		// Close the gap between consecutive edge vertices with two
		// triangles each.
		for j := 0; j+1 < len(edge.indices); j++ {
			a, b := edge.indices[j], edge.indices[j+1]
			sa, sb := first+uint32(j), first+uint32(j)+1
			indices = append(indices, a, b, sb, a, sb, sa)
		}
	}

	sphere := geodetic.BoundingSphereFromPoints(positions)
	center := sphere.Center

	appendVertex := func(pos mgl64.Vec3, h float64, uv [2]float64, extrude float32) []float32 {
		rel := pos.Sub(center)
		return append(vertices,
			float32(rel.X()), float32(rel.Y()), float32(rel.Z()),
			float32(h),
			float32(uv[0]), float32(uv[1]),
			extrude)
	}
	for i := 0; i < n; i++ {
		vertices = appendVertex(positions[i], heights[i], uvs[i], ExtrudeNone)
	}
	for i := 0; i < skirtCount; i++ {
		vertices = appendVertex(positions[n+i], skirtHeights[i], skirtUVs[i], skirtExtrudes[i])
	}

	centerLon, centerLat := rect.Center()
	occludee := ellipsoid.OccludeePoint(
		ellipsoid.CartographicToCartesian(centerLon, centerLat, 0),
		corePositions)

	return &Mesh{
		Center:          center,
		Vertices:        vertices,
		Encoding:        enc,
		Indices:         indices,
		IndexBytes:      quantized.IndexWidth(total),
		CoreVertexCount: n,
		CoreIndexCount:  len(p.Indices),
		MinHeight:       minHeight,
		MaxHeight:       maxHeight,
		BoundingSphere:  sphere,
		Box:             geodetic.OrientedBoundingBoxFromRectangle(rect, minHeight, maxHeight, ellipsoid),
		OccludeePoint:   occludee,
		WestIndices:     p.WestIndices,
		SouthIndices:    p.SouthIndices,
		EastIndices:     p.EastIndices,
		NorthIndices:    p.NorthIndices,
	}
}

// exaggerate scales a height away from the relative height.
func exaggerate(h float64, params MeshParams) float64 {
	if params.Exaggeration == 0 || params.Exaggeration == 1 {
		return h
	}
	return (h-params.ExaggerationRelativeHeight)*params.Exaggeration + params.ExaggerationRelativeHeight
}
