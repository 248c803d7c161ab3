package layer

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"time"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb/geojson"
	pointpack "github.com/tingold/orb-pointpack"
)

// column is a planned property column.
type column struct {
	name string
	typ  flattypes.ColumnType
}

// planColumns derives the property columns of a layer from the packaging
// schema inferred over features. Temporal attributes become DateTime columns.
func planColumns(features []*geojson.Feature) []column {
	schema := pointpack.InferSchema(features)

	columns := make([]column, 0, len(schema.Attributes))
	for _, a := range schema.Attributes {
		col := column{name: a.Name}
		switch a.Kind {
		case pointpack.KindNumeric:
			if a.Integer {
				col.typ = flattypes.ColumnTypeLong
			} else {
				col.typ = flattypes.ColumnTypeDouble
			}
		case pointpack.KindTemporal:
			col.typ = flattypes.ColumnTypeDateTime
		default:
			col.typ = otherColumnType(features, a.Name)
		}
		columns = append(columns, col)
	}

	return columns
}

// otherColumnType picks Bool or String when every non-null value of the
// property has that type, and Json otherwise.
func otherColumnType(features []*geojson.Feature, name string) flattypes.ColumnType {
	var bools, strs, others int
	for _, f := range features {
		if f == nil {
			continue
		}
		switch f.Properties[name].(type) {
		case nil:
		case bool:
			bools++
		case string:
			strs++
		default:
			others++
		}
	}

	switch {
	case others == 0 && strs == 0 && bools > 0:
		return flattypes.ColumnTypeBool
	case others == 0 && bools == 0:
		return flattypes.ColumnTypeString
	default:
		return flattypes.ColumnTypeJson
	}
}

// encodeProperties encodes properties to the FlatGeobuf binary layout:
// [uint16 column index][value] repeated, little-endian. Null values and
// values that do not fit their column are left out and read back as absent.
func encodeProperties(props geojson.Properties, columns []column) []byte {
	if len(props) == 0 || len(columns) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i, col := range columns {
		value, ok := props[col.name]
		if !ok || value == nil {
			continue
		}

		encoded, ok := encodeValue(value, col.typ)
		if !ok {
			continue
		}
		buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(i)))
		buf.Write(encoded)
	}

	return buf.Bytes()
}

func encodeValue(value interface{}, typ flattypes.ColumnType) ([]byte, bool) {
	switch typ {
	case flattypes.ColumnTypeBool:
		v, ok := value.(bool)
		if !ok {
			return nil, false
		}
		if v {
			return []byte{1}, true
		}
		return []byte{0}, true

	case flattypes.ColumnTypeLong:
		v, ok := toInt64(value)
		if !ok {
			return nil, false
		}
		return binary.LittleEndian.AppendUint64(nil, uint64(v)), true

	case flattypes.ColumnTypeDouble:
		v, ok := toFloat64(value)
		if !ok {
			return nil, false
		}
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)), true

	case flattypes.ColumnTypeDateTime:
		var s string
		switch v := value.(type) {
		case time.Time:
			s = v.UTC().Format(time.RFC3339Nano)
		case *time.Time:
			if v == nil {
				return nil, false
			}
			s = v.UTC().Format(time.RFC3339Nano)
		case string:
			s = v
		default:
			return nil, false
		}
		return appendString(nil, s), true

	case flattypes.ColumnTypeString:
		s, ok := value.(string)
		if !ok {
			return nil, false
		}
		return appendString(nil, s), true

	case flattypes.ColumnTypeJson:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, false
		}
		return appendString(nil, string(b)), true

	default:
		return nil, false
	}
}

// appendString appends s as a uint32 length followed by its bytes.
func appendString(dst []byte, s string) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// decodeProperties decodes FlatGeobuf binary properties. DateTime values are
// returned as time.Time when they parse as RFC 3339.
func decodeProperties(data []byte, header *flattypes.Header) geojson.Properties {
	props := make(geojson.Properties)
	offset := 0

	for offset+2 <= len(data) {
		colIndex := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2

		var col flattypes.Column
		if colIndex >= header.ColumnsLength() || !header.Columns(&col, colIndex) {
			break
		}

		value, n := readValue(data[offset:], col.Type())
		if n == 0 {
			break
		}
		offset += n

		props[string(col.Name())] = value
	}

	return props
}

// readValue reads one value of type typ. It returns the value and the number
// of bytes consumed, or 0 when data is too short.
func readValue(data []byte, typ flattypes.ColumnType) (interface{}, int) {
	fixed := func(size int) bool { return len(data) >= size }

	switch typ {
	case flattypes.ColumnTypeBool:
		if !fixed(1) {
			return nil, 0
		}
		return data[0] != 0, 1
	case flattypes.ColumnTypeByte:
		if !fixed(1) {
			return nil, 0
		}
		return int8(data[0]), 1
	case flattypes.ColumnTypeUByte:
		if !fixed(1) {
			return nil, 0
		}
		return data[0], 1
	case flattypes.ColumnTypeShort:
		if !fixed(2) {
			return nil, 0
		}
		return int16(binary.LittleEndian.Uint16(data)), 2
	case flattypes.ColumnTypeUShort:
		if !fixed(2) {
			return nil, 0
		}
		return binary.LittleEndian.Uint16(data), 2
	case flattypes.ColumnTypeInt:
		if !fixed(4) {
			return nil, 0
		}
		return int32(binary.LittleEndian.Uint32(data)), 4
	case flattypes.ColumnTypeUInt:
		if !fixed(4) {
			return nil, 0
		}
		return binary.LittleEndian.Uint32(data), 4
	case flattypes.ColumnTypeLong:
		if !fixed(8) {
			return nil, 0
		}
		return int64(binary.LittleEndian.Uint64(data)), 8
	case flattypes.ColumnTypeULong:
		if !fixed(8) {
			return nil, 0
		}
		return binary.LittleEndian.Uint64(data), 8
	case flattypes.ColumnTypeFloat:
		if !fixed(4) {
			return nil, 0
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(data)), 4
	case flattypes.ColumnTypeDouble:
		if !fixed(8) {
			return nil, 0
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), 8
	}

	// Variable length types carry a uint32 byte length.
	if len(data) < 4 {
		return nil, 0
	}
	size := int(binary.LittleEndian.Uint32(data))
	if len(data) < 4+size {
		return nil, 0
	}
	raw := data[4 : 4+size]
	n := 4 + size

	switch typ {
	case flattypes.ColumnTypeString:
		return string(raw), n
	case flattypes.ColumnTypeDateTime:
		if t, err := time.Parse(time.RFC3339Nano, string(raw)); err == nil {
			return t, n
		}
		return string(raw), n
	case flattypes.ColumnTypeJson:
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return string(raw), n
		}
		return v, n
	case flattypes.ColumnTypeBinary:
		return append([]byte(nil), raw...), n
	default:
		return nil, 0
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float32:
		return int64(val), true
	case float64:
		return int64(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
