package pointpack

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Record is one decoded package record.
type Record struct {
	Point  orb.Point // Origin plus delta
	DeltaX float32
	DeltaY float32
	Time   int64     // Epoch milliseconds, 0 without a time attribute
	Values []float64 // Measures; int32 and float32 are exact in float64
}

// Package is a fully decoded package.
type Package struct {
	Header  Header
	Records []Record
}

// DecodeHeader reads the fixed-size header at the start of data.
func DecodeHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: header needs %d bytes, have %d", ErrInvalidData, HeaderSize, len(data))
	}

	h.Count = int32(binary.BigEndian.Uint32(data[0:]))
	h.FieldCount = int16(binary.BigEndian.Uint16(data[4:]))
	h.Flags = int16(binary.BigEndian.Uint16(data[6:]))
	if h.Integer() {
		h.NullInt = int32(binary.BigEndian.Uint32(data[8:]))
	} else {
		h.NullFloat = math.Float32frombits(binary.BigEndian.Uint32(data[8:]))
	}
	h.SRID = SRID(int32(binary.BigEndian.Uint32(data[12:])))
	h.OriginX = math.Float64frombits(binary.BigEndian.Uint64(data[16:]))
	h.OriginY = math.Float64frombits(binary.BigEndian.Uint64(data[24:]))

	if h.Count < 0 || h.FieldCount < 0 {
		return h, fmt.Errorf("%w: negative count in header", ErrInvalidData)
	}
	return h, nil
}

// Decode parses an uncompressed package.
func Decode(data []byte) (*Package, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	size := h.RecordSize()
	want := HeaderSize + int(h.Count)*size
	if len(data) != want {
		return nil, fmt.Errorf("%w: %d records need %d bytes, have %d", ErrInvalidData, h.Count, want, len(data))
	}

	pkg := &Package{Header: h, Records: make([]Record, 0, h.Count)}
	for off := HeaderSize; off < len(data); off += size {
		pkg.Records = append(pkg.Records, decodeRecord(h, data[off:off+size]))
	}
	return pkg, nil
}

func decodeRecord(h Header, b []byte) Record {
	var r Record
	r.DeltaX = math.Float32frombits(binary.BigEndian.Uint32(b[0:]))
	r.DeltaY = math.Float32frombits(binary.BigEndian.Uint32(b[4:]))
	r.Point = orb.Point{h.OriginX + float64(r.DeltaX), h.OriginY + float64(r.DeltaY)}
	b = b[8:]

	if h.HasTime() {
		r.Time = int64(binary.BigEndian.Uint64(b))
		b = b[8:]
	}

	if h.FieldCount > 0 {
		r.Values = make([]float64, h.FieldCount)
		for i := range r.Values {
			bits := binary.BigEndian.Uint32(b[4*i:])
			if h.Integer() {
				r.Values[i] = float64(int32(bits))
			} else {
				r.Values[i] = float64(math.Float32frombits(bits))
			}
		}
	}
	return r
}
