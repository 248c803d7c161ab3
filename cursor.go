package pointpack

import (
	"github.com/paulmach/orb/geojson"
)

// Cursor is a forward-only iterator over records. Callers must Close it on
// every path once they are done.
type Cursor interface {
	// Next advances to the next feature. It returns false when the cursor is
	// exhausted or failed; Err distinguishes the two.
	Next() bool

	// Feature returns the current feature.
	Feature() *geojson.Feature

	// Err returns the error that stopped iteration, if any.
	Err() error

	Close() error
}

// Source provides a schema and opens cursors over its records.
type Source interface {
	Schema() *Schema
	Features() (Cursor, error)
}

// SliceCursor iterates an in-memory feature slice.
type SliceCursor struct {
	features []*geojson.Feature
	index    int
	current  *geojson.Feature
	closed   bool
}

var _ Cursor = (*SliceCursor)(nil)

// NewSliceCursor creates a cursor over features.
func NewSliceCursor(features []*geojson.Feature) *SliceCursor {
	return &SliceCursor{features: features}
}

// Next implements Cursor.
func (c *SliceCursor) Next() bool {
	if c.closed || c.index >= len(c.features) {
		c.current = nil
		return false
	}
	c.current = c.features[c.index]
	c.index++
	return true
}

// Feature implements Cursor.
func (c *SliceCursor) Feature() *geojson.Feature { return c.current }

// Err implements Cursor.
func (c *SliceCursor) Err() error { return nil }

// Close implements Cursor.
func (c *SliceCursor) Close() error {
	c.closed = true
	c.current = nil
	return nil
}

// CollectionSource serves a GeoJSON feature collection. GeoJSON coordinates
// are WGS84 (RFC 7946), so the schema CRS is EPSG:4326.
type CollectionSource struct {
	fc     *geojson.FeatureCollection
	schema *Schema
}

var _ Source = (*CollectionSource)(nil)

// NewCollectionSource creates a source with a schema inferred from the
// collection's properties.
func NewCollectionSource(fc *geojson.FeatureCollection) *CollectionSource {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	schema := InferSchema(fc.Features)
	schema.CRS = WGS84()
	return &CollectionSource{fc: fc, schema: schema}
}

// Schema implements Source.
func (s *CollectionSource) Schema() *Schema { return s.schema }

// Features implements Source.
func (s *CollectionSource) Features() (Cursor, error) {
	return NewSliceCursor(s.fc.Features), nil
}
