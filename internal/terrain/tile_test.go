package terrain

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/geodeck/terramesh/pkg/quantized"
)

func TestNewTileRejectsInvalidPayload(t *testing.T) {
	p := testPayload()
	p.WestIndices = nil
	if _, err := NewTile(p); !errors.Is(err, quantized.ErrMissingEdge) {
		t.Errorf("expected missing-edge error, got %v", err)
	}

	if _, err := NewTile(nil); err == nil {
		t.Error("expected error for nil payload")
	}
}

func TestNewTileSortsEdges(t *testing.T) {
	p := testPayload()
	p.EastIndices = []uint32{3, 1} // v descending

	tile, err := NewTile(p)
	if err != nil {
		t.Fatalf("NewTile failed: %v", err)
	}

	east := tile.Payload().EastIndices
	if east[0] != 1 || east[1] != 3 {
		t.Errorf("east edge not sorted by v: %v", east)
	}
}

func TestTileStartsRaw(t *testing.T) {
	tile := testTile()

	if tile.Payload() == nil {
		t.Error("expected raw buffers before meshing")
	}
	if tile.Mesh() != nil {
		t.Error("expected no mesh before meshing")
	}
	if tile.CanUpsample() {
		t.Error("expected CanUpsample to be false before meshing")
	}
	if tile.WasCreatedByUpsampling() {
		t.Error("expected a constructed tile not to be flagged as upsampled")
	}
}

func TestTileBoundingVolumes(t *testing.T) {
	raw := testTile()

	// The fixture payload carries a sphere and occlusion point but no box.
	if raw.OrientedBox() != nil {
		t.Error("expected no oriented box before meshing")
	}
	if raw.OcclusionPoint() != (mgl64.Vec3{1.5, 0, 0}) {
		t.Errorf("unexpected raw occlusion point %v", raw.OcclusionPoint())
	}
	if raw.BoundingSphere().Radius != 7000000 {
		t.Errorf("unexpected raw sphere radius %f", raw.BoundingSphere().Radius)
	}

	// Meshing replaces the payload volumes with the mesh's own.
	meshed := meshedTestTile()
	box := meshed.OrientedBox()
	if box == nil {
		t.Fatal("expected an oriented box after meshing")
	}
	if *box != meshed.Mesh().Box {
		t.Error("oriented box does not match the mesh's")
	}
	if meshed.OcclusionPoint() != meshed.Mesh().OccludeePoint {
		t.Error("occlusion point does not match the mesh's")
	}
	if meshed.BoundingSphere() != meshed.Mesh().BoundingSphere {
		t.Error("bounding sphere does not match the mesh's")
	}
}

func TestIsChildAvailable(t *testing.T) {
	p := testPayload()
	p.ChildMask = quantized.ChildSoutheast | quantized.ChildNorthwest
	tile, err := NewTile(p)
	if err != nil {
		t.Fatalf("NewTile failed: %v", err)
	}

	// Children of tile (0, 0): y=0 is the northern row.
	if !tile.IsChildAvailable(0, 0, 0, 0) {
		t.Error("expected northwest child to be available")
	}
	if !tile.IsChildAvailable(0, 0, 1, 1) {
		t.Error("expected southeast child to be available")
	}
	if tile.IsChildAvailable(0, 0, 1, 0) {
		t.Error("expected northeast child to be unavailable")
	}
	if tile.IsChildAvailable(0, 0, 0, 1) {
		t.Error("expected southwest child to be unavailable")
	}
}

func TestInterpolateHeightCornersWithinRange(t *testing.T) {
	tile := testTile()
	rect := testRect()

	corners := [][2]float64{
		{rect.West, rect.South},
		{rect.East, rect.South},
		{rect.West, rect.North},
		{rect.East, rect.North},
	}
	for _, c := range corners {
		h, ok := tile.InterpolateHeight(rect, c[0], c[1])
		if !ok {
			t.Errorf("no height at corner (%f, %f)", c[0], c[1])
			continue
		}
		if h < tile.MinHeight() || h > tile.MaxHeight() {
			t.Errorf("corner height %f outside [%f, %f]", h, tile.MinHeight(), tile.MaxHeight())
		}
	}
}

func TestInterpolateHeightCentroid(t *testing.T) {
	tile := testTile()
	rect := testRect()

	// Centroid of the triangle spanning the first three corners. The
	// expected value is the mean of the dequantized corner heights:
	// (-100 + 2201*16384/32767, -100, 2101) -> 1000.511193.
	lon := rect.West + rect.Width()/3
	lat := rect.South + rect.Height()/3

	h, ok := tile.InterpolateHeight(rect, lon, lat)
	if !ok {
		t.Fatal("no height at centroid")
	}
	if math.Abs(h-1000.511193) > 1e-3 {
		t.Errorf("expected 1000.511193 at the centroid, got %f", h)
	}
}

func TestInterpolateHeightClampsOutsidePoints(t *testing.T) {
	tile := testTile()
	rect := testRect()

	h, ok := tile.InterpolateHeight(rect, rect.East+1, rect.North+1)
	if !ok {
		t.Fatal("expected clamped point to resolve")
	}
	if h < tile.MinHeight() || h > tile.MaxHeight() {
		t.Errorf("clamped height %f outside [%f, %f]", h, tile.MinHeight(), tile.MaxHeight())
	}
}

func TestInterpolateHeightNotFound(t *testing.T) {
	// A single triangle covering only the lower-left half leaves the
	// region near the northeast corner uncovered.
	p := testPayload()
	p.U = []uint16{0, quantized.MaxQuantized, 0}
	p.V = []uint16{0, 0, quantized.MaxQuantized}
	p.Height = []uint16{16384, 0, quantized.MaxQuantized}
	p.Indices = []uint32{0, 1, 2}
	p.WestIndices = []uint32{0, 2}
	p.SouthIndices = []uint32{0, 1}
	p.EastIndices = []uint32{1}
	p.NorthIndices = []uint32{2}

	tile, err := NewTile(p)
	if err != nil {
		t.Fatalf("NewTile failed: %v", err)
	}

	rect := testRect()
	lon := rect.West + rect.Width()*0.9
	lat := rect.South + rect.Height()*0.9
	if _, ok := tile.InterpolateHeight(rect, lon, lat); ok {
		t.Error("expected no height outside the triangulated region")
	}
}

func TestInterpolateHeightMeshPathMatchesRawPath(t *testing.T) {
	raw := testTile()
	meshed := meshedTestTile()
	rect := testRect()

	for _, frac := range [][2]float64{{1. / 3, 1. / 3}, {0.25, 0.5}, {0.7, 0.6}, {0.5, 0.5}} {
		lon := rect.West + rect.Width()*frac[0]
		lat := rect.South + rect.Height()*frac[1]

		hr, okRaw := raw.InterpolateHeight(rect, lon, lat)
		hm, okMesh := meshed.InterpolateHeight(rect, lon, lat)
		if okRaw != okMesh {
			t.Errorf("raw and mesh paths disagree on containment at %v", frac)
			continue
		}
		if okRaw && math.Abs(hr-hm) > 0.01 {
			t.Errorf("raw %f vs mesh %f at %v", hr, hm, frac)
		}
	}
}
