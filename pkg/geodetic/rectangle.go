// Package geodetic provides the rectangle, ellipsoid and tiling-scheme math
// used by the terrain meshing pipeline.
package geodetic

import "math"

// Rectangle is a geodetic rectangle in radians.
type Rectangle struct {
	West  float64
	South float64
	East  float64
	North float64
}

// Width returns the longitudinal span in radians.
func (r Rectangle) Width() float64 {
	return r.East - r.West
}

// Height returns the latitudinal span in radians.
func (r Rectangle) Height() float64 {
	return r.North - r.South
}

// Center returns the center longitude and latitude.
func (r Rectangle) Center() (lon, lat float64) {
	return (r.West + r.East) / 2, (r.South + r.North) / 2
}

// Contains reports whether (lon, lat) lies inside or on the rectangle.
func (r Rectangle) Contains(lon, lat float64) bool {
	return lon >= r.West && lon <= r.East && lat >= r.South && lat <= r.North
}

// Clamp returns (lon, lat) moved to the nearest point inside the rectangle.
func (r Rectangle) Clamp(lon, lat float64) (float64, float64) {
	return math.Min(math.Max(lon, r.West), r.East), math.Min(math.Max(lat, r.South), r.North)
}
