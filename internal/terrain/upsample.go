package terrain

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/geodeck/terramesh/internal/scheduler"
	"github.com/geodeck/terramesh/pkg/geodetic"
	"github.com/geodeck/terramesh/pkg/quantized"
)

// Upsampler errors.
var (
	ErrUnsupported  = errors.New("upsampling is only supported to the immediate child level")
	ErrEmptyQuarter = errors.New("no parent geometry intersects the child extent")
)

// Upsampler schedules the synthesis of a child tile from a parent tile's
// mesh, serving higher-detail requests before real data exists.
type Upsampler struct {
	sched     scheduler.Scheduler
	scheme    geodetic.TilingScheme
	ellipsoid geodetic.Ellipsoid
	log       *zap.Logger
}

// NewUpsampler returns an upsampler using the given tiling scheme on the
// WGS84 ellipsoid.
func NewUpsampler(sched scheduler.Scheduler, scheme geodetic.TilingScheme, log *zap.Logger) *Upsampler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Upsampler{sched: sched, scheme: scheme, ellipsoid: geodetic.WGS84, log: log}
}

// Upsample schedules the subdivision of the parent's mesh into the child
// tile at (childX, childY, childLevel). The child must be exactly one level
// deeper than the parent or ErrUnsupported is returned. The call is a no-op
// rejection when the parent has no mesh yet or the pool is saturated; no
// state is mutated in either case. On success the future yields a new raw
// *Tile flagged as created by upsampling, with an empty child mask.
func (u *Upsampler) Upsample(parent *Tile, parentX, parentY, parentLevel, childX, childY, childLevel int) (*scheduler.Future, bool, error) {
	if childLevel != parentLevel+1 || childX/2 != parentX || childY/2 != parentY {
		return nil, false, ErrUnsupported
	}
	mesh := parent.Mesh()
	if mesh == nil {
		return nil, false, nil
	}

	task := func() (any, error) {
		tile, err := u.upsampleMesh(parent, mesh, childX, childY, childLevel)
		if err != nil {
			return nil, err
		}
		u.log.Debug("upsampled tile",
			zap.Int("x", childX), zap.Int("y", childY), zap.Int("level", childLevel),
			zap.Int("vertices", tile.Payload().VertexCount()))
		return tile, nil
	}

	fut, ok := u.sched.TrySubmit(task)
	if !ok {
		return nil, false, nil
	}
	return fut, true, nil
}

// uvh is a vertex during clipping: texture coordinates in [0, 1] of the
// parent tile plus the height in meters.
type uvh struct {
	u, v, h float64
}

// upsampleMesh clips the parent mesh to the child's quarter of the parent
// extent, renormalizes the surviving geometry into the child's quantized
// space, and assembles a raw tile payload for it.
func (u *Upsampler) upsampleMesh(parent *Tile, mesh *Mesh, childX, childY, childLevel int) (*Tile, error) {
	isEastChild := childX%2 == 1
	isNorthChild := childY%2 == 0 // tile y grows southward

	keepU := func(p uvh) bool { return p.u <= 0.5 }
	if isEastChild {
		keepU = func(p uvh) bool { return p.u >= 0.5 }
	}
	keepV := func(p uvh) bool { return p.v <= 0.5 }
	if isNorthChild {
		keepV = func(p uvh) bool { return p.v >= 0.5 }
	}

	splitU := func(a, b uvh) uvh { return lerpAtU(a, b, 0.5) }
	splitV := func(a, b uvh) uvh { return lerpAtV(a, b, 0.5) }

	// Clip the parent's core triangles (skirts excluded) against the two
	// split boundaries, then fan-triangulate whatever survives.
	var clipped []uvh
	coreIndices := mesh.Indices[:mesh.CoreIndexCount]
	var triangles [][3]uvh
	for i := 0; i+2 < len(coreIndices); i += 3 {
		tri := [3]uvh{
			meshVertexUVH(mesh, int(coreIndices[i])),
			meshVertexUVH(mesh, int(coreIndices[i+1])),
			meshVertexUVH(mesh, int(coreIndices[i+2])),
		}
		clipped = clipPolygon(tri[:], keepU, splitU)
		clipped = clipPolygon(clipped, keepV, splitV)
		for j := 2; j < len(clipped); j++ {
			triangles = append(triangles, [3]uvh{clipped[0], clipped[j-1], clipped[j]})
		}
	}
	if len(triangles) == 0 {
		return nil, ErrEmptyQuarter
	}

	// Transform into the child's [0, 1] space and find the height range.
	toChild := func(p uvh) uvh {
		if isEastChild {
			p.u = (p.u - 0.5) * 2
		} else {
			p.u = p.u * 2
		}
		if isNorthChild {
			p.v = (p.v - 0.5) * 2
		} else {
			p.v = p.v * 2
		}
		return p
	}
	minHeight := math.Inf(1)
	maxHeight := math.Inf(-1)
	for i := range triangles {
		for j := range triangles[i] {
			triangles[i][j] = toChild(triangles[i][j])
			h := triangles[i][j].h
			minHeight = math.Min(minHeight, h)
			maxHeight = math.Max(maxHeight, h)
		}
	}

	// Quantize and deduplicate into a compact vertex set.
	payload := &quantized.TilePayload{
		MinHeight: minHeight,
		MaxHeight: maxHeight,
	}
	seen := make(map[[2]uint16]uint32)
	addVertex := func(p uvh) uint32 {
		qu := uint16(math.Round(clamp01(p.u) * quantized.MaxQuantized))
		qv := uint16(math.Round(clamp01(p.v) * quantized.MaxQuantized))
		key := [2]uint16{qu, qv}
		if idx, ok := seen[key]; ok {
			return idx
		}
		idx := uint32(len(payload.U))
		seen[key] = idx
		payload.U = append(payload.U, qu)
		payload.V = append(payload.V, qv)
		payload.Height = append(payload.Height, quantized.Quantize(p.h, minHeight, maxHeight))
		return idx
	}
	for _, tri := range triangles {
		i0 := addVertex(tri[0])
		i1 := addVertex(tri[1])
		i2 := addVertex(tri[2])
		// Quantization can collapse slivers along the split boundary.
		if i0 == i1 || i1 == i2 || i2 == i0 {
			continue
		}
		payload.Indices = append(payload.Indices, i0, i1, i2)
	}
	if len(payload.Indices) == 0 {
		return nil, ErrEmptyQuarter
	}

	for i := range payload.U {
		idx := uint32(i)
		if payload.U[i] == 0 {
			payload.WestIndices = append(payload.WestIndices, idx)
		}
		if payload.U[i] == quantized.MaxQuantized {
			payload.EastIndices = append(payload.EastIndices, idx)
		}
		if payload.V[i] == 0 {
			payload.SouthIndices = append(payload.SouthIndices, idx)
		}
		if payload.V[i] == quantized.MaxQuantized {
			payload.NorthIndices = append(payload.NorthIndices, idx)
		}
	}

	// Bounding volumes over the child's dequantized geometry.
	rect := u.scheme.TileRectangle(childX, childY, childLevel)
	positions := make([]mgl64.Vec3, len(payload.U))
	for i := range payload.U {
		lon := rect.West + float64(payload.U[i])/quantized.MaxQuantized*rect.Width()
		lat := rect.South + float64(payload.V[i])/quantized.MaxQuantized*rect.Height()
		h := quantized.Dequantize(payload.Height[i], minHeight, maxHeight)
		positions[i] = u.ellipsoid.CartographicToCartesian(lon, lat, h)
	}
	payload.BoundingSphere = geodetic.BoundingSphereFromPoints(positions)
	obb := geodetic.OrientedBoundingBoxFromRectangle(rect, minHeight, maxHeight, u.ellipsoid)
	payload.OrientedBoundingBox = &obb
	centerLon, centerLat := rect.Center()
	payload.HorizonOcclusionPoint = u.ellipsoid.OccludeePoint(
		u.ellipsoid.CartographicToCartesian(centerLon, centerLat, 0), positions)

	// Asymmetric skirt policy: the two child edges on the interior split
	// get half the parent's shortest skirt, so the sibling across the cut
	// ends up with a matching half-skirt. The two edges on the parent's
	// outer boundary inherit the parent's skirt unchanged, matching the
	// parent's untouched neighbors.
	parentSkirts := parent.Skirts()
	half := parentSkirts.Shortest() / 2
	if isEastChild {
		payload.WestSkirtHeight = half
		payload.EastSkirtHeight = parentSkirts.East
	} else {
		payload.WestSkirtHeight = parentSkirts.West
		payload.EastSkirtHeight = half
	}
	if isNorthChild {
		payload.SouthSkirtHeight = half
		payload.NorthSkirtHeight = parentSkirts.North
	} else {
		payload.SouthSkirtHeight = parentSkirts.South
		payload.NorthSkirtHeight = half
	}

	payload.Credits = parent.Credits()
	return newUpsampledTile(payload)
}

func meshVertexUVH(m *Mesh, i int) uvh {
	u, v := m.DecodeTextureCoordinates(i)
	return uvh{u: u, v: v, h: m.DecodeHeight(i)}
}

// clipPolygon is one Sutherland-Hodgman pass against a single boundary.
// intersect must return the crossing point of an edge that straddles it.
func clipPolygon(poly []uvh, inside func(uvh) bool, intersect func(a, b uvh) uvh) []uvh {
	if len(poly) == 0 {
		return nil
	}
	out := make([]uvh, 0, len(poly)+2)
	prev := poly[len(poly)-1]
	prevInside := inside(prev)
	for _, cur := range poly {
		curInside := inside(cur)
		switch {
		case curInside && prevInside:
			out = append(out, cur)
		case curInside && !prevInside:
			out = append(out, intersect(prev, cur), cur)
		case !curInside && prevInside:
			out = append(out, intersect(prev, cur))
		}
		prev, prevInside = cur, curInside
	}
	return out
}

// lerpAtU returns the point on segment a-b with u == value.
func lerpAtU(a, b uvh, value float64) uvh {
	t := (value - a.u) / (b.u - a.u)
	return uvh{
		u: value,
		v: a.v + t*(b.v-a.v),
		h: a.h + t*(b.h-a.h),
	}
}

// lerpAtV returns the point on segment a-b with v == value.
func lerpAtV(a, b uvh, value float64) uvh {
	t := (value - a.v) / (b.v - a.v)
	return uvh{
		u: a.u + t*(b.u-a.u),
		v: value,
		h: a.h + t*(b.h-a.h),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
