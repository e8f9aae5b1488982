package geodetic

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Ellipsoid is a quadratic surface centered on the origin with axis-aligned
// radii, used to convert between cartographic and Earth-centered fixed
// coordinates.
type Ellipsoid struct {
	Radii mgl64.Vec3
}

// WGS84 is the standard Earth ellipsoid.
var WGS84 = Ellipsoid{Radii: mgl64.Vec3{6378137.0, 6378137.0, 6356752.3142451793}}

// MaximumRadius returns the largest of the three radii.
func (e Ellipsoid) MaximumRadius() float64 {
	return math.Max(e.Radii.X(), math.Max(e.Radii.Y(), e.Radii.Z()))
}

func (e Ellipsoid) radiiSquared() mgl64.Vec3 {
	return mgl64.Vec3{
		e.Radii.X() * e.Radii.X(),
		e.Radii.Y() * e.Radii.Y(),
		e.Radii.Z() * e.Radii.Z(),
	}
}

// SurfaceNormal returns the geodetic surface normal at a cartographic
// position.
func (e Ellipsoid) SurfaceNormal(lon, lat float64) mgl64.Vec3 {
	cosLat := math.Cos(lat)
	return mgl64.Vec3{
		cosLat * math.Cos(lon),
		cosLat * math.Sin(lon),
		math.Sin(lat),
	}
}

// CartographicToCartesian converts (lon, lat) in radians and a height in
// meters to Earth-centered fixed coordinates.
func (e Ellipsoid) CartographicToCartesian(lon, lat, height float64) mgl64.Vec3 {
	n := e.SurfaceNormal(lon, lat)
	r2 := e.radiiSquared()
	k := mgl64.Vec3{r2.X() * n.X(), r2.Y() * n.Y(), r2.Z() * n.Z()}
	gamma := math.Sqrt(n.Dot(k))
	return k.Mul(1 / gamma).Add(n.Mul(height))
}

// ScaleToGeodeticSurface returns the point on the ellipsoid surface along
// the geodetic normal through position. The iteration converges in a few
// steps for points near the surface.
func (e Ellipsoid) ScaleToGeodeticSurface(position mgl64.Vec3) mgl64.Vec3 {
	r2 := e.radiiSquared()
	oneOverRadiiSquared := mgl64.Vec3{1 / r2.X(), 1 / r2.Y(), 1 / r2.Z()}

	x2 := position.X() * position.X() * oneOverRadiiSquared.X()
	y2 := position.Y() * position.Y() * oneOverRadiiSquared.Y()
	z2 := position.Z() * position.Z() * oneOverRadiiSquared.Z()
	squaredNorm := x2 + y2 + z2
	ratio := math.Sqrt(1 / squaredNorm)

	intersection := position.Mul(ratio)
	if squaredNorm < 0.1 {
		return intersection
	}

	gradient := mgl64.Vec3{
		intersection.X() * oneOverRadiiSquared.X() * 2,
		intersection.Y() * oneOverRadiiSquared.Y() * 2,
		intersection.Z() * oneOverRadiiSquared.Z() * 2,
	}
	lambda := (1 - ratio) * position.Len() / (gradient.Len() / 2)

	for i := 0; i < 10; i++ {
		xm := position.X() / (1 + lambda*oneOverRadiiSquared.X())
		ym := position.Y() / (1 + lambda*oneOverRadiiSquared.Y())
		zm := position.Z() / (1 + lambda*oneOverRadiiSquared.Z())
		f := xm*xm*oneOverRadiiSquared.X() + ym*ym*oneOverRadiiSquared.Y() + zm*zm*oneOverRadiiSquared.Z() - 1
		if math.Abs(f) < 1e-12 {
			break
		}
		denom := xm*xm*oneOverRadiiSquared.X()*oneOverRadiiSquared.X()/(1+lambda*oneOverRadiiSquared.X()) +
			ym*ym*oneOverRadiiSquared.Y()*oneOverRadiiSquared.Y()/(1+lambda*oneOverRadiiSquared.Y()) +
			zm*zm*oneOverRadiiSquared.Z()*oneOverRadiiSquared.Z()/(1+lambda*oneOverRadiiSquared.Z())
		lambda += f / (2 * denom)
	}

	return mgl64.Vec3{
		position.X() / (1 + lambda*oneOverRadiiSquared.X()),
		position.Y() / (1 + lambda*oneOverRadiiSquared.Y()),
		position.Z() / (1 + lambda*oneOverRadiiSquared.Z()),
	}
}

// scaleToScaledSpace divides a position by the radii, mapping the ellipsoid
// onto the unit sphere.
func (e Ellipsoid) scaleToScaledSpace(position mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		position.X() / e.Radii.X(),
		position.Y() / e.Radii.Y(),
		position.Z() / e.Radii.Z(),
	}
}

// OccludeePoint computes the horizon occlusion point for a set of positions,
// expressed in the ellipsoid-scaled frame. If the returned point is below
// the horizon, every input position is below the horizon as well.
// directionToPoint is a surface point roughly at the center of the positions.
func (e Ellipsoid) OccludeePoint(directionToPoint mgl64.Vec3, positions []mgl64.Vec3) mgl64.Vec3 {
	scaledDir := e.scaleToScaledSpace(directionToPoint)
	if scaledDir.Len() == 0 {
		return mgl64.Vec3{}
	}
	scaledDir = scaledDir.Normalize()

	var resultMagnitude float64
	for _, pos := range positions {
		scaled := e.scaleToScaledSpace(pos)
		magnitudeSquared := scaled.Dot(scaled)
		magnitude := math.Sqrt(magnitudeSquared)
		direction := scaled.Mul(1 / magnitude)

		// Points inside the unit sphere are treated as on its surface.
		magnitudeSquared = math.Max(1, magnitudeSquared)
		magnitude = math.Max(1, magnitude)

		cosAlpha := direction.Dot(scaledDir)
		sinAlpha := direction.Cross(scaledDir).Len()
		cosBeta := 1 / magnitude
		sinBeta := math.Sqrt(magnitudeSquared-1) * cosBeta

		denom := cosAlpha*cosBeta - sinAlpha*sinBeta
		if denom <= 0 {
			// A position at or beyond the horizon has no valid occludee point.
			return mgl64.Vec3{}
		}
		resultMagnitude = math.Max(resultMagnitude, 1/denom)
	}

	return scaledDir.Mul(resultMagnitude)
}
