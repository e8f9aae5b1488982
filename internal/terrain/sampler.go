package terrain

import (
	"math"

	"github.com/geodeck/terramesh/pkg/quantized"
)

// barycentricTolerance absorbs floating error for query points on triangle
// boundaries.
const barycentricTolerance = -1e-15

// sampleHeight scans triangle index triples for one containing (u, v) and
// blends the triangle's three heights by the barycentric weights of the
// point. Triangles are pre-filtered by an axis-aligned bounding box check.
// The second result is false when no triangle contains the point.
func sampleHeight(indices []uint32, uvAt func(i uint32) (float64, float64), heightAt func(i uint32) float64, u, v float64) (float64, bool) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		u0, v0 := uvAt(i0)
		u1, v1 := uvAt(i1)
		u2, v2 := uvAt(i2)

		if u < math.Min(u0, math.Min(u1, u2)) || u > math.Max(u0, math.Max(u1, u2)) {
			continue
		}
		if v < math.Min(v0, math.Min(v1, v2)) || v > math.Max(v0, math.Max(v1, v2)) {
			continue
		}

		b0, b1, b2, ok := barycentric(u, v, u0, v0, u1, v1, u2, v2)
		if !ok {
			continue
		}
		if b0 >= barycentricTolerance && b1 >= barycentricTolerance && b2 >= barycentricTolerance {
			return b0*heightAt(i0) + b1*heightAt(i1) + b2*heightAt(i2), true
		}
	}
	return 0, false
}

// barycentric returns the weights of (u, v) relative to the triangle
// (u0,v0) (u1,v1) (u2,v2). ok is false for degenerate triangles, such as the
// zero-area skirt triangles a mesh carries in texture space.
func barycentric(u, v, u0, v0, u1, v1, u2, v2 float64) (b0, b1, b2 float64, ok bool) {
	den := (v1-v2)*(u0-u2) + (u2-u1)*(v0-v2)
	if den == 0 {
		return 0, 0, 0, false
	}
	b0 = ((v1-v2)*(u-u2) + (u2-u1)*(v-v2)) / den
	b1 = ((v2-v0)*(u-u2) + (u0-u2)*(v-v2)) / den
	b2 = 1 - b0 - b1
	return b0, b1, b2, true
}

// sampleRawHeight queries the quantized buffers directly. u and v are in
// quantized space [0, MaxQuantized].
func sampleRawHeight(p *quantized.TilePayload, u, v float64) (float64, bool) {
	return sampleHeight(p.Indices,
		func(i uint32) (float64, float64) {
			return float64(p.U[i]), float64(p.V[i])
		},
		func(i uint32) float64 {
			return quantized.Dequantize(p.Height[i], p.MinHeight, p.MaxHeight)
		},
		u, v)
}

// sampleMeshHeight queries a built mesh. u and v are in quantized space
// [0, MaxQuantized]; mesh texture coordinates are scaled to match. Skirt
// triangles are degenerate in texture space and reject themselves.
func sampleMeshHeight(m *Mesh, u, v float64) (float64, bool) {
	return sampleHeight(m.Indices,
		func(i uint32) (float64, float64) {
			mu, mv := m.DecodeTextureCoordinates(int(i))
			return mu * quantized.MaxQuantized, mv * quantized.MaxQuantized
		},
		func(i uint32) float64 {
			return m.DecodeHeight(int(i))
		},
		u, v)
}
