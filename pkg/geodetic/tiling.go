package geodetic

import (
	"math"

	"github.com/davvo/mercator"
)

// TilingScheme maps tile addresses (x, y, level) to geodetic rectangles.
// Tile y grows southward: row 0 is the northernmost row of a level.
type TilingScheme interface {
	// TileRectangle returns the geodetic bounds of a tile.
	TileRectangle(x, y, level int) Rectangle
	// RootTiles returns the number of tile columns and rows at level 0.
	RootTiles() (x, y int)
	// LevelMaximumGeometricError estimates the maximum screen-space error
	// contribution of a tile at the given level, in meters.
	LevelMaximumGeometricError(level int) float64
}

// heightmapTileWidth is the assumed sample width of a source tile, used for
// geometric error estimation.
const heightmapTileWidth = 65

// Geographic is the equirectangular tiling scheme with a 2x1 tile root
// covering the whole globe.
type Geographic struct {
	Ellipsoid Ellipsoid
}

// NewGeographic returns a geographic tiling scheme on the WGS84 ellipsoid.
func NewGeographic() Geographic {
	return Geographic{Ellipsoid: WGS84}
}

// RootTiles returns the 2x1 root layout.
func (g Geographic) RootTiles() (int, int) {
	return 2, 1
}

// TileRectangle returns the bounds of a geographic tile.
func (g Geographic) TileRectangle(x, y, level int) Rectangle {
	tilesX := 2 << level
	tilesY := 1 << level
	width := 2 * math.Pi / float64(tilesX)
	height := math.Pi / float64(tilesY)
	return Rectangle{
		West:  -math.Pi + float64(x)*width,
		East:  -math.Pi + float64(x+1)*width,
		North: math.Pi/2 - float64(y)*height,
		South: math.Pi/2 - float64(y+1)*height,
	}
}

// LevelMaximumGeometricError halves with each level from the heightmap
// estimate at level 0.
func (g Geographic) LevelMaximumGeometricError(level int) float64 {
	rootX, _ := g.RootTiles()
	levelZero := g.Ellipsoid.MaximumRadius() * 2 * math.Pi * 0.25 / (heightmapTileWidth * float64(rootX))
	return levelZero / float64(int(1)<<level)
}

// WebMercator is the EPSG:3857 tiling scheme with a single root tile.
type WebMercator struct {
	Ellipsoid Ellipsoid
}

// NewWebMercator returns a web-mercator tiling scheme on the WGS84
// ellipsoid.
func NewWebMercator() WebMercator {
	return WebMercator{Ellipsoid: WGS84}
}

// RootTiles returns the 1x1 root layout.
func (w WebMercator) RootTiles() (int, int) {
	return 1, 1
}

// TileRectangle returns the bounds of a web-mercator tile. Tile addresses
// use the XYZ convention (y = 0 at the north); the mercator package speaks
// TMS, so the row is flipped before conversion.
func (w WebMercator) TileRectangle(x, y, level int) Rectangle {
	tmsY := (1 << level) - 1 - y
	minX, minY, maxX, maxY := mercator.TileBounds(x, tmsY, level)
	southLat, westLon := mercator.MetersToLatLon(minX, minY)
	northLat, eastLon := mercator.MetersToLatLon(maxX, maxY)
	return Rectangle{
		West:  radians(westLon),
		South: radians(southLat),
		East:  radians(eastLon),
		North: radians(northLat),
	}
}

// LevelMaximumGeometricError halves with each level from the heightmap
// estimate at level 0.
func (w WebMercator) LevelMaximumGeometricError(level int) float64 {
	rootX, _ := w.RootTiles()
	levelZero := w.Ellipsoid.MaximumRadius() * 2 * math.Pi * 0.25 / (heightmapTileWidth * float64(rootX))
	return levelZero / float64(int(1)<<level)
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
