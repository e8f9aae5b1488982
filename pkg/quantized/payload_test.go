package quantized

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TilePayload)
		want   error
	}{
		{"no vertices", func(p *TilePayload) { p.U = nil }, ErrMissingVertices},
		{"mismatched buffers", func(p *TilePayload) { p.V = p.V[:2] }, ErrVertexCount},
		{"no indices", func(p *TilePayload) { p.Indices = nil }, ErrMissingIndices},
		{"partial triangle", func(p *TilePayload) { p.Indices = p.Indices[:4] }, ErrMissingIndices},
		{"index out of range", func(p *TilePayload) { p.Indices[0] = 99 }, ErrIndexOutOfRange},
		{"missing west edge", func(p *TilePayload) { p.WestIndices = nil }, ErrMissingEdge},
		{"missing north edge", func(p *TilePayload) { p.NorthIndices = nil }, ErrMissingEdge},
		{"edge index out of range", func(p *TilePayload) { p.EastIndices[0] = 99 }, ErrIndexOutOfRange},
		{"inverted height range", func(p *TilePayload) { p.MinHeight, p.MaxHeight = 10, -10 }, ErrHeightRange},
		{"no bounding sphere", func(p *TilePayload) { p.BoundingSphere.Radius = 0 }, ErrMissingBounds},
		{"no occlusion point", func(p *TilePayload) { p.HorizonOcclusionPoint = mgl64.Vec3{} }, ErrMissingOcclusion},
		{"negative skirt", func(p *TilePayload) { p.SouthSkirtHeight = -1 }, ErrNegativeSkirt},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := testPayload()
			tc.mutate(p)
			if err := p.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateAcceptsCompletePayload(t *testing.T) {
	if err := testPayload().Validate(); err != nil {
		t.Errorf("expected valid payload, got %v", err)
	}
}

func TestNormalizeEdgesSortsUnsortedInput(t *testing.T) {
	p := testPayload()
	p.WestIndices = []uint32{2, 0}  // v descending
	p.NorthIndices = []uint32{3, 2} // u descending

	p.NormalizeEdges()

	if p.WestIndices[0] != 0 || p.WestIndices[1] != 2 {
		t.Errorf("west edge not sorted by v: %v", p.WestIndices)
	}
	if p.NorthIndices[0] != 2 || p.NorthIndices[1] != 3 {
		t.Errorf("north edge not sorted by u: %v", p.NorthIndices)
	}
}

func TestNormalizeEdgesLeavesSortedInputUntouched(t *testing.T) {
	p := testPayload()
	west := p.WestIndices
	south := p.SouthIndices

	p.NormalizeEdges()

	// Same backing arrays, same order: the pre-check skipped the sort.
	if &west[0] != &p.WestIndices[0] || &south[0] != &p.SouthIndices[0] {
		t.Error("sorted edge lists were reallocated")
	}
	if west[0] != 0 || west[1] != 2 {
		t.Errorf("sorted west edge changed: %v", west)
	}
}

func TestChildBit(t *testing.T) {
	// Children of tile (1, 1): x in {2, 3}, y in {2, 3}; tile y grows
	// southward so y=2 is the northern row.
	tests := []struct {
		childX, childY int
		want           uint8
	}{
		{2, 2, ChildNorthwest},
		{3, 2, ChildNortheast},
		{2, 3, ChildSouthwest},
		{3, 3, ChildSoutheast},
	}
	for _, tc := range tests {
		if got := ChildBit(1, 1, tc.childX, tc.childY); got != tc.want {
			t.Errorf("ChildBit(1,1,%d,%d) = %d, expected %d", tc.childX, tc.childY, got, tc.want)
		}
	}
}
