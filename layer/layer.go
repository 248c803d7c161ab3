// Package layer stores point packaging sources as FlatGeobuf files. A Reader
// exposes a layer as a pointpack.Source, with bounding box queries served by
// the file's packed R-tree index, and a Catalog names the layers kept in one
// directory.
package layer

import (
	"errors"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	pointpack "github.com/tingold/orb-pointpack"
)

// Common errors returned by this package.
var (
	ErrEmptyLayer       = errors.New("layer: no features to write")
	ErrInvalidData      = errors.New("layer: invalid data")
	ErrNoIndex          = errors.New("layer: file has no spatial index")
	ErrLayerNotFound    = errors.New("layer: layer not found")
	ErrInvalidLayerName = errors.New("layer: invalid layer name")
)

// Extension is the file extension of catalog layers.
const Extension = ".fgb"

// Options configures layer writing.
type Options struct {
	Name         string         // Layer name
	Description  string         // Layer description
	IncludeIndex bool           // Include spatial index (default: true)
	CRS          *pointpack.CRS // Reference system of the coordinates (default: EPSG:4326)
}

// DefaultOptions returns default options for writing layers.
func DefaultOptions() *Options {
	return &Options{
		IncludeIndex: true,
		CRS:          pointpack.WGS84(),
	}
}

// ColumnInfo describes a property column of a layer.
type ColumnInfo struct {
	Name     string
	Type     string // FlatGeobuf column type ("Int", "Double", "DateTime", ...)
	Kind     pointpack.Kind
	Integer  bool
	Nullable bool
}

// Header contains layer metadata.
type Header struct {
	Name          string
	Description   string
	GeometryType  string
	FeaturesCount uint64
	Envelope      [4]float64 // [minX, minY, maxX, maxY]
	CRS           *pointpack.CRS
	HasIndex      bool
	Columns       []ColumnInfo
}

// columnKind maps a FlatGeobuf column type to the attribute kind used for
// packaging.
func columnKind(t flattypes.ColumnType) (pointpack.Kind, bool) {
	switch t {
	case flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte,
		flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort,
		flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt,
		flattypes.ColumnTypeLong, flattypes.ColumnTypeULong:
		return pointpack.KindNumeric, true
	case flattypes.ColumnTypeFloat, flattypes.ColumnTypeDouble:
		return pointpack.KindNumeric, false
	case flattypes.ColumnTypeDateTime:
		return pointpack.KindTemporal, false
	default:
		return pointpack.KindOther, false
	}
}
