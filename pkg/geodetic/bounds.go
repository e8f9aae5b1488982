package geodetic

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BoundingSphere encloses a set of positions.
type BoundingSphere struct {
	Center mgl64.Vec3
	Radius float64
}

// BoundingSphereFromPoints computes a tight sphere around points using
// Ritter's algorithm: an initial sphere from the axis-aligned extremes,
// grown to cover outliers.
func BoundingSphereFromPoints(points []mgl64.Vec3) BoundingSphere {
	if len(points) == 0 {
		return BoundingSphere{}
	}

	minX, maxX := points[0], points[0]
	minY, maxY := points[0], points[0]
	minZ, maxZ := points[0], points[0]
	for _, p := range points[1:] {
		if p.X() < minX.X() {
			minX = p
		}
		if p.X() > maxX.X() {
			maxX = p
		}
		if p.Y() < minY.Y() {
			minY = p
		}
		if p.Y() > maxY.Y() {
			maxY = p
		}
		if p.Z() < minZ.Z() {
			minZ = p
		}
		if p.Z() > maxZ.Z() {
			maxZ = p
		}
	}

	// Pick the axis pair with the largest span for the initial sphere.
	a, b := minX, maxX
	if maxY.Sub(minY).Len() > b.Sub(a).Len() {
		a, b = minY, maxY
	}
	if maxZ.Sub(minZ).Len() > b.Sub(a).Len() {
		a, b = minZ, maxZ
	}

	center := a.Add(b).Mul(0.5)
	radius := b.Sub(center).Len()

	for _, p := range points {
		d := p.Sub(center).Len()
		if d > radius {
			// Grow just enough to include p, keeping the far side fixed.
			newRadius := (radius + d) / 2
			center = center.Add(p.Sub(center).Mul((d - newRadius) / d))
			radius = newRadius
		}
	}

	return BoundingSphere{Center: center, Radius: radius}
}

// OrientedBoundingBox is a box described by its center and three half-axis
// vectors stored as matrix columns.
type OrientedBoundingBox struct {
	Center   mgl64.Vec3
	HalfAxes mgl64.Mat3
}

// OrientedBoundingBoxFromRectangle fits a box around the portion of the
// ellipsoid surface covered by rect between minHeight and maxHeight. The box
// is aligned to the east-north-up frame at the rectangle center.
func OrientedBoundingBoxFromRectangle(rect Rectangle, minHeight, maxHeight float64, e Ellipsoid) OrientedBoundingBox {
	centerLon, centerLat := rect.Center()
	up := e.SurfaceNormal(centerLon, centerLat)
	east := mgl64.Vec3{-math.Sin(centerLon), math.Cos(centerLon), 0}
	north := up.Cross(east)
	origin := e.CartographicToCartesian(centerLon, centerLat, 0)

	lons := []float64{rect.West, (rect.West + rect.East) / 2, rect.East}
	lats := []float64{rect.South, (rect.South + rect.North) / 2, rect.North}
	heights := []float64{minHeight, maxHeight}

	min := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, lon := range lons {
		for _, lat := range lats {
			for _, h := range heights {
				d := e.CartographicToCartesian(lon, lat, h).Sub(origin)
				local := mgl64.Vec3{d.Dot(east), d.Dot(north), d.Dot(up)}
				for i := 0; i < 3; i++ {
					min[i] = math.Min(min[i], local[i])
					max[i] = math.Max(max[i], local[i])
				}
			}
		}
	}

	halfExtents := max.Sub(min).Mul(0.5)
	localCenter := min.Add(halfExtents)
	center := origin.
		Add(east.Mul(localCenter.X())).
		Add(north.Mul(localCenter.Y())).
		Add(up.Mul(localCenter.Z()))

	return OrientedBoundingBox{
		Center: center,
		HalfAxes: mgl64.Mat3FromCols(
			east.Mul(halfExtents.X()),
			north.Mul(halfExtents.Y()),
			up.Mul(halfExtents.Z()),
		),
	}
}
