package quantized

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/geodeck/terramesh/pkg/geodetic"
)

var byteorder = binary.LittleEndian

// headerSize is the fixed quantized-mesh header: tile center (3x float64),
// min/max height (2x float32), bounding sphere (4x float64) and horizon
// occlusion point (3x float64).
const headerSize = 88

// header mirrors the on-wire tile header. Coordinates are Earth-centered
// fixed; the horizon occlusion point is in the ellipsoid-scaled frame.
type header struct {
	CenterX, CenterY, CenterZ float64

	MinimumHeight float32
	MaximumHeight float32

	BoundingSphereCenterX float64
	BoundingSphereCenterY float64
	BoundingSphereCenterZ float64
	BoundingSphereRadius  float64

	HorizonOcclusionPointX float64
	HorizonOcclusionPointY float64
	HorizonOcclusionPointZ float64
}

// Parse decodes a quantized-mesh tile. Vertex attributes arrive zig-zag
// delta encoded; triangle indices use the high-water-mark encoding with 2 or
// 4 byte width chosen by the vertex count. Extension records after the edge
// lists are ignored.
func Parse(data []byte) (*TilePayload, error) {
	r := bytes.NewReader(data)

	var h header
	if err := binary.Read(r, byteorder, &h); err != nil {
		return nil, fmt.Errorf("%w: header", ErrTruncated)
	}

	var vertexCount uint32
	if err := binary.Read(r, byteorder, &vertexCount); err != nil {
		return nil, fmt.Errorf("%w: vertex count", ErrTruncated)
	}
	if vertexCount == 0 || vertexCount > math.MaxInt32/3 {
		return nil, fmt.Errorf("%w: %d", ErrVertexCount, vertexCount)
	}

	p := &TilePayload{
		MinHeight: float64(h.MinimumHeight),
		MaxHeight: float64(h.MaximumHeight),
		BoundingSphere: geodetic.BoundingSphere{
			Center: mgl64.Vec3{h.BoundingSphereCenterX, h.BoundingSphereCenterY, h.BoundingSphereCenterZ},
			Radius: h.BoundingSphereRadius,
		},
		HorizonOcclusionPoint: mgl64.Vec3{h.HorizonOcclusionPointX, h.HorizonOcclusionPointY, h.HorizonOcclusionPointZ},
		ChildMask:             ChildMaskAll,
	}

	var err error
	if p.U, err = readPackedVertexData(r, int(vertexCount)); err != nil {
		return nil, fmt.Errorf("%w: u buffer", err)
	}
	if p.V, err = readPackedVertexData(r, int(vertexCount)); err != nil {
		return nil, fmt.Errorf("%w: v buffer", err)
	}
	if p.Height, err = readPackedVertexData(r, int(vertexCount)); err != nil {
		return nil, fmt.Errorf("%w: height buffer", err)
	}

	// Indices are aligned to their width relative to the start of the tile.
	width := IndexWidth(int(vertexCount))
	consumed := len(data) - r.Len()
	if pad := consumed % width; pad != 0 {
		if _, err := r.Seek(int64(width-pad), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("%w: index padding", ErrTruncated)
		}
	}

	var triangleCount uint32
	if err := binary.Read(r, byteorder, &triangleCount); err != nil {
		return nil, fmt.Errorf("%w: triangle count", ErrTruncated)
	}
	if p.Indices, err = readHighWaterIndices(r, int(triangleCount)*3, width); err != nil {
		return nil, err
	}

	for _, edge := range []*[]uint32{&p.WestIndices, &p.SouthIndices, &p.EastIndices, &p.NorthIndices} {
		var edgeCount uint32
		if err := binary.Read(r, byteorder, &edgeCount); err != nil {
			return nil, fmt.Errorf("%w: edge count", ErrTruncated)
		}
		if *edge, err = readAbsoluteIndices(r, int(edgeCount), width); err != nil {
			return nil, err
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.NormalizeEdges()
	return p, nil
}

// Encode writes a payload back to the wire format, choosing the minimal
// index width for the vertex count and padding to keep indices aligned.
func Encode(p *TilePayload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	w := new(bytes.Buffer)
	h := header{
		CenterX:                p.BoundingSphere.Center.X(),
		CenterY:                p.BoundingSphere.Center.Y(),
		CenterZ:                p.BoundingSphere.Center.Z(),
		MinimumHeight:          float32(p.MinHeight),
		MaximumHeight:          float32(p.MaxHeight),
		BoundingSphereCenterX:  p.BoundingSphere.Center.X(),
		BoundingSphereCenterY:  p.BoundingSphere.Center.Y(),
		BoundingSphereCenterZ:  p.BoundingSphere.Center.Z(),
		BoundingSphereRadius:   p.BoundingSphere.Radius,
		HorizonOcclusionPointX: p.HorizonOcclusionPoint.X(),
		HorizonOcclusionPointY: p.HorizonOcclusionPoint.Y(),
		HorizonOcclusionPointZ: p.HorizonOcclusionPoint.Z(),
	}
	if err := binary.Write(w, byteorder, h); err != nil {
		return nil, err
	}

	if err := binary.Write(w, byteorder, uint32(p.VertexCount())); err != nil {
		return nil, err
	}
	for _, buf := range [][]uint16{p.U, p.V, p.Height} {
		if err := writePackedVertexData(w, buf); err != nil {
			return nil, err
		}
	}

	width := IndexWidth(p.VertexCount())
	if pad := w.Len() % width; pad != 0 {
		w.Write(make([]byte, width-pad))
	}
	if err := binary.Write(w, byteorder, uint32(p.TriangleCount())); err != nil {
		return nil, err
	}
	if err := writeHighWaterIndices(w, p.Indices, width); err != nil {
		return nil, err
	}

	for _, edge := range [][]uint32{p.WestIndices, p.SouthIndices, p.EastIndices, p.NorthIndices} {
		if err := binary.Write(w, byteorder, uint32(len(edge))); err != nil {
			return nil, err
		}
		if err := writeAbsoluteIndices(w, edge, width); err != nil {
			return nil, err
		}
	}

	return w.Bytes(), nil
}

// readPackedVertexData reads count zig-zag delta encoded values. The count
// is bounded by the remaining input before anything is allocated, so a
// malformed tile claiming a huge count fails fast instead of forcing a
// matching allocation.
func readPackedVertexData(r *bytes.Reader, count int) ([]uint16, error) {
	if count*2 > r.Len() {
		return nil, ErrTruncated
	}
	packed := make([]uint16, count)
	if err := binary.Read(r, byteorder, packed); err != nil {
		return nil, ErrTruncated
	}
	out := make([]uint16, count)
	var value int32
	for i, code := range packed {
		value += zigzagDecode(code)
		if value < 0 || value > MaxQuantized {
			return nil, fmt.Errorf("%w: decoded value %d", ErrVertexCount, value)
		}
		out[i] = uint16(value)
	}
	return out, nil
}

func writePackedVertexData(w *bytes.Buffer, values []uint16) error {
	packed := make([]uint16, len(values))
	var prev int32
	for i, v := range values {
		packed[i] = zigzagEncode(int32(v) - prev)
		prev = int32(v)
	}
	return binary.Write(w, byteorder, packed)
}

func zigzagDecode(code uint16) int32 {
	return int32(code>>1) ^ -int32(code&1)
}

func zigzagEncode(value int32) uint16 {
	return uint16((value << 1) ^ (value >> 31))
}

// readHighWaterIndices decodes count indices stored as deltas from a high
// water mark: each stored value is highest-index, and a stored zero bumps
// the mark.
func readHighWaterIndices(r *bytes.Reader, count, width int) ([]uint32, error) {
	codes, err := readAbsoluteIndices(r, count, width)
	if err != nil {
		return nil, err
	}
	var highest uint32
	for i, code := range codes {
		if code > highest {
			return nil, fmt.Errorf("%w: high-water code %d above mark %d", ErrIndexOutOfRange, code, highest)
		}
		codes[i] = highest - code
		if code == 0 {
			highest++
		}
	}
	return codes, nil
}

func writeHighWaterIndices(w *bytes.Buffer, indices []uint32, width int) error {
	codes := make([]uint32, len(indices))
	var highest uint32
	for i, idx := range indices {
		codes[i] = highest - idx
		if idx == highest {
			highest++
		}
	}
	return writeAbsoluteIndices(w, codes, width)
}

func readAbsoluteIndices(r *bytes.Reader, count, width int) ([]uint32, error) {
	if count*width > r.Len() {
		return nil, ErrTruncated
	}
	if width == 4 {
		out := make([]uint32, count)
		if err := binary.Read(r, byteorder, out); err != nil {
			return nil, ErrTruncated
		}
		return out, nil
	}
	raw := make([]uint16, count)
	if err := binary.Read(r, byteorder, raw); err != nil {
		return nil, ErrTruncated
	}
	out := make([]uint32, count)
	for i, v := range raw {
		out[i] = uint32(v)
	}
	return out, nil
}

func writeAbsoluteIndices(w *bytes.Buffer, indices []uint32, width int) error {
	if width == 4 {
		return binary.Write(w, byteorder, indices)
	}
	raw := make([]uint16, len(indices))
	for i, v := range indices {
		raw[i] = uint16(v)
	}
	return binary.Write(w, byteorder, raw)
}
