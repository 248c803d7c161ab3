package pointpack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// encoder accumulates the state of a single Encode call.
type encoder struct {
	sel       Selection
	timeName  string
	names     []string // value attribute names, parallel to sel.ValueIndexes
	transform Transform

	buf     []byte
	origin  orb.Point
	count   int
	skipped int
}

// Encode writes the package header and one record per feature read from cur.
// The cursor is consumed once and is not closed. Features without geometry
// are skipped. It returns the buffer with a zero record count, to be fixed
// with PatchCount, and the number of records emitted.
func Encode(schema *Schema, cur Cursor, sel Selection, transform Transform, srid SRID) ([]byte, int, error) {
	e, err := newEncoder(schema, sel, transform)
	if err != nil {
		return nil, 0, err
	}

	e.writeHeader(srid)
	for cur.Next() {
		if err := e.add(cur.Feature()); err != nil {
			return nil, 0, err
		}
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("pointpack: reading records: %w", err)
	}
	e.finish()

	return e.buf, e.count, nil
}

func newEncoder(schema *Schema, sel Selection, transform Transform) (*encoder, error) {
	if len(sel.ValueIndexes) > math.MaxInt16 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyAttributes, len(sel.ValueIndexes))
	}

	e := &encoder{
		sel:       sel,
		transform: transform,
		buf:       make([]byte, 0, 4096),
	}

	attributeName := func(i int) (string, error) {
		if schema == nil || i < 0 || i >= len(schema.Attributes) {
			return "", fmt.Errorf("pointpack: attribute index %d out of range", i)
		}
		return schema.Attributes[i].Name, nil
	}

	if sel.HasTime() {
		name, err := attributeName(sel.TimeIndex)
		if err != nil {
			return nil, err
		}
		e.timeName = name
	}
	e.names = make([]string, 0, len(sel.ValueIndexes))
	for _, i := range sel.ValueIndexes {
		name, err := attributeName(i)
		if err != nil {
			return nil, err
		}
		e.names = append(e.names, name)
	}

	return e, nil
}

// writeHeader writes every header field up to the origin. The origin is
// written by the first record, or by finish when there is none.
func (e *encoder) writeHeader(srid SRID) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, 0)
	e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(len(e.sel.ValueIndexes)))
	e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(e.sel.Flags()))
	null := NullSentinel
	if e.sel.Integer {
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(null))
	} else {
		e.buf = binary.BigEndian.AppendUint32(e.buf, math.Float32bits(float32(null)))
	}
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(srid))
}

func (e *encoder) writeOrigin(p orb.Point) {
	e.origin = p
	e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(p[0]))
	e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(p[1]))
}

// add emits one feature.
func (e *encoder) add(f *geojson.Feature) error {
	if f == nil || isEmptyGeometry(f.Geometry) {
		e.skipped++
		return nil
	}
	if e.count == math.MaxInt32 {
		return ErrTooManyRecords
	}
	if err := checkGeometry(f.Geometry); err != nil {
		return err
	}

	p, err := e.transform.Apply(representativePoint(f.Geometry))
	if err != nil {
		if !errors.Is(err, ErrGeometryTransform) {
			err = fmt.Errorf("%w: %v", ErrGeometryTransform, err)
		}
		return err
	}

	if e.count == 0 {
		e.writeOrigin(p)
	}

	e.buf = binary.BigEndian.AppendUint32(e.buf, math.Float32bits(float32(p[0]-e.origin[0])))
	e.buf = binary.BigEndian.AppendUint32(e.buf, math.Float32bits(float32(p[1]-e.origin[1])))

	if e.sel.HasTime() {
		ms, err := timeMillis(f.Properties[e.timeName])
		if err != nil {
			return fmt.Errorf("attribute %q: %w", e.timeName, err)
		}
		e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(ms))
	}

	for _, name := range e.names {
		if err := e.writeValue(f.Properties[name]); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
	}

	e.count++
	return nil
}

// writeValue emits one measure, substituting the null sentinel for absent
// values.
func (e *encoder) writeValue(v interface{}) error {
	if v == nil {
		v = NullSentinel
	}

	if e.sel.Integer {
		n, err := int32Value(v)
		if err != nil {
			return err
		}
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(n))
		return nil
	}

	f, err := float32Value(v)
	if err != nil {
		return err
	}
	e.buf = binary.BigEndian.AppendUint32(e.buf, math.Float32bits(f))
	return nil
}

// finish completes the header of an empty package.
func (e *encoder) finish() {
	if e.count == 0 {
		e.writeOrigin(orb.Point{0, 0})
	}
}

// PatchCount overwrites the record count at the start of buf.
func PatchCount(buf []byte, count int) error {
	if len(buf) < 4 {
		return fmt.Errorf("%w: buffer of %d bytes has no count field", ErrInvalidData, len(buf))
	}
	if count < 0 || count > math.MaxInt32 {
		return fmt.Errorf("%w: %d", ErrTooManyRecords, count)
	}
	binary.BigEndian.PutUint32(buf[:4], uint32(count))
	return nil
}
