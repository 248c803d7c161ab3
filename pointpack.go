// Package pointpack packages point-like geospatial records into a compact,
// big-endian binary buffer for visualization clients.
//
// A package is a fixed 32-byte header followed by one fixed-size record per
// emitted feature. Coordinates are stored as float32 offsets from the first
// emitted point, which is written in the header as float64. Records may carry
// an epoch-millisecond timestamp and any number of numeric measures, all
// encoded either as int32 or as float32. Packages can optionally be wrapped in
// a zlib stream.
package pointpack

import (
	"errors"
	"math"

	"github.com/rs/zerolog"
)

// Common errors returned by this package.
var (
	ErrTransformResolution = errors.New("pointpack: cannot resolve coordinate transform")
	ErrGeometryTransform   = errors.New("pointpack: geometry transform failed")
	ErrInvalidData         = errors.New("pointpack: invalid data")
	ErrInvalidValue        = errors.New("pointpack: invalid attribute value")
	ErrTooManyRecords      = errors.New("pointpack: too many records")
	ErrTooManyAttributes   = errors.New("pointpack: too many value attributes")
	ErrUnsupportedGeometry = errors.New("pointpack: unsupported geometry type")
)

// Package flags stored at offset 6 of the header.
const (
	FlagNone       int16 = 0
	FlagHasTime    int16 = 1
	FlagIntegerVal int16 = 2
)

// HeaderSize is the fixed size of a package header in bytes.
const HeaderSize = 32

// NullSentinel is substituted for absent measure values. Float packages store
// it converted to float32.
const NullSentinel int32 = math.MinInt32

// Options configures packaging.
type Options struct {
	Adapter CoordinateAdapter // Resolves transforms and SRIDs (default: DefaultAdapter)
	Logger  *zerolog.Logger   // Debug logging (default: disabled)
}

// DefaultOptions returns default options for packaging.
func DefaultOptions() *Options {
	nop := zerolog.Nop()
	return &Options{
		Adapter: DefaultAdapter,
		Logger:  &nop,
	}
}

func (o *Options) withDefaults() *Options {
	d := DefaultOptions()
	if o == nil {
		return d
	}
	if o.Adapter != nil {
		d.Adapter = o.Adapter
	}
	if o.Logger != nil {
		d.Logger = o.Logger
	}
	return d
}

// Request describes what to package.
type Request struct {
	ValueAttributes []string // Numeric attributes to emit as measures
	TimeAttribute   string   // Temporal attribute to emit (optional)
	TargetCRS       *CRS     // Output reference system (optional)
	Compress        bool     // Wrap the package in a zlib stream
}

// Header is the decoded fixed-size package header.
type Header struct {
	Count      int32
	FieldCount int16
	Flags      int16
	NullInt    int32   // Sentinel when FlagIntegerVal is set
	NullFloat  float32 // Sentinel otherwise
	SRID       SRID
	OriginX    float64
	OriginY    float64
}

// HasTime reports whether records carry a timestamp.
func (h Header) HasTime() bool { return h.Flags&FlagHasTime != 0 }

// Integer reports whether measures are encoded as int32.
func (h Header) Integer() bool { return h.Flags&FlagIntegerVal != 0 }

// RecordSize returns the encoded size of one record.
func (h Header) RecordSize() int {
	size := 8 + 4*int(h.FieldCount)
	if h.HasTime() {
		size += 8
	}
	return size
}

// IsNull reports whether a decoded measure equals the null sentinel. A real
// value equal to the sentinel is indistinguishable from a missing one.
func (h Header) IsNull(v float64) bool {
	if h.Integer() {
		return v == float64(h.NullInt)
	}
	return float32(v) == h.NullFloat
}
