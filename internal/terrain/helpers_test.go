package terrain

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/geodeck/terramesh/internal/scheduler"
	"github.com/geodeck/terramesh/pkg/geodetic"
	"github.com/geodeck/terramesh/pkg/quantized"
)

// fakeScheduler runs tasks synchronously, or rejects everything when
// saturated. It keeps the async tests deterministic without a real pool.
type fakeScheduler struct {
	saturated bool
	submitted int
}

func (s *fakeScheduler) TrySubmit(t scheduler.Task) (*scheduler.Future, bool) {
	if s.saturated {
		return nil, false
	}
	s.submitted++
	return scheduler.Completed(t()), true
}

func (s *fakeScheduler) SubmitNow(t scheduler.Task) *scheduler.Future {
	s.submitted++
	return scheduler.Completed(t())
}

// testRect is the western-hemisphere root tile of the geographic scheme.
func testRect() geodetic.Rectangle {
	return geodetic.NewGeographic().TileRectangle(0, 0, 0)
}

// testPayload builds a four-corner tile covering the full extent with two
// triangles. Heights quantize to roughly 1000.5, -100, 2101 and 1000.5
// meters.
func testPayload() *quantized.TilePayload {
	max := uint16(quantized.MaxQuantized)
	return &quantized.TilePayload{
		U:            []uint16{0, max, 0, max},
		V:            []uint16{0, 0, max, max},
		Height:       []uint16{16384, 0, max, 16384},
		Indices:      []uint32{0, 1, 2, 1, 3, 2},
		WestIndices:  []uint32{0, 2},
		SouthIndices: []uint32{0, 1},
		EastIndices:  []uint32{1, 3},
		NorthIndices: []uint32{2, 3},
		MinHeight:    -100,
		MaxHeight:    2101,
		BoundingSphere: geodetic.BoundingSphere{
			Center: mgl64.Vec3{6378137, 0, 0},
			Radius: 7000000,
		},
		HorizonOcclusionPoint: mgl64.Vec3{1.5, 0, 0},
		WestSkirtHeight:       4,
		SouthSkirtHeight:      4,
		EastSkirtHeight:       4,
		NorthSkirtHeight:      4,
		ChildMask:             quantized.ChildMaskAll,
	}
}

func testTile() *Tile {
	t, err := NewTile(testPayload())
	if err != nil {
		panic(err)
	}
	return t
}

// meshedTestTile returns a tile whose mesh has been built synchronously.
func meshedTestTile() *Tile {
	t := testTile()
	b := NewMeshBuilder(&fakeScheduler{}, nil)
	fut, ok := b.CreateMesh(t, MeshParams{Rectangle: testRect()})
	if !ok {
		panic("mesh task rejected")
	}
	if _, err := fut.Wait(); err != nil {
		panic(err)
	}
	return t
}
